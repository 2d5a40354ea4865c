package engine

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/examdesk/exam-scheduler-api/internal/models"
)

// newTestEngine builds an engine over an in-memory database. The returned
// clock pointer can be reassigned to move time forward.
func newTestEngine(t *testing.T) (*Engine, *gorm.DB, *time.Time) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	// A single connection keeps every goroutine on the same in-memory DB.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.RegistrationWindow{},
		&models.ScheduleEntry{},
		&models.Registration{},
		&models.RegistrationEvent{},
	)
	if err != nil {
		t.Fatalf("failed to auto migrate: %v", err)
	}

	now := date(2025, 1, 6)
	eng := New(db, nil, Options{
		Clock: func() time.Time { return now },
	})
	return eng, db, &now
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustCreateEntry(t *testing.T, db *gorm.DB, day time.Time, session models.Session, maxCapacity, current int, status models.ScheduleStatus) models.ScheduleEntry {
	t.Helper()
	entry := models.ScheduleEntry{
		Date:                 day,
		Session:              session,
		StartTime:            "09:00",
		EndTime:              "12:00",
		MaxCapacity:          maxCapacity,
		CurrentRegistrations: current,
		Status:               status,
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("failed to create entry: %v", err)
	}
	return entry
}

func mustCreateRegistration(t *testing.T, db *gorm.DB, examineeID string, status models.RegistrationStatus, entry *models.ScheduleEntry) models.Registration {
	t.Helper()
	reg := models.Registration{
		ExamineeID:   examineeID,
		Status:       status,
		RegisteredAt: date(2025, 1, 2),
	}
	if entry != nil {
		reg.ScheduleEntryID = &entry.ID
		reg.AssignedDate = &entry.Date
		session := entry.Session
		reg.AssignedSession = &session
	}
	if err := db.Create(&reg).Error; err != nil {
		t.Fatalf("failed to create registration: %v", err)
	}
	return reg
}

func reloadEntry(t *testing.T, db *gorm.DB, id uint) models.ScheduleEntry {
	t.Helper()
	var entry models.ScheduleEntry
	if err := db.First(&entry, id).Error; err != nil {
		t.Fatalf("failed to reload entry %d: %v", id, err)
	}
	return entry
}

func reloadRegistration(t *testing.T, db *gorm.DB, id uint) models.Registration {
	t.Helper()
	var reg models.Registration
	if err := db.First(&reg, id).Error; err != nil {
		t.Fatalf("failed to reload registration %d: %v", id, err)
	}
	return reg
}

func mustOpenWindow(t *testing.T, eng *Engine, start, end time.Time, capacityPerDay int) {
	t.Helper()
	_, err := eng.OpenWindow(context.Background(), OpenWindowParams{
		StartDate:      start,
		EndDate:        end,
		CapacityPerDay: capacityPerDay,
	})
	if err != nil {
		t.Fatalf("failed to open window: %v", err)
	}
}
