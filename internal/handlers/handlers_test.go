package handlers

import (
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/examdesk/exam-scheduler-api/internal/engine"
	"github.com/examdesk/exam-scheduler-api/internal/models"
)

func newTestEngine(t *testing.T) (*engine.Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
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

	eng := engine.New(db, nil, engine.Options{
		Clock: func() time.Time { return time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC) },
	})
	return eng, db
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	se, ok := err.(huma.StatusError)
	if !ok {
		t.Fatalf("expected a huma status error, got %T: %v", err, err)
	}
	return se.GetStatus()
}
