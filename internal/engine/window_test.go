package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/examdesk/exam-scheduler-api/internal/models"
)

func TestOpenWindowGeneratesSchedules(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	w, err := eng.OpenWindow(context.Background(), OpenWindowParams{
		StartDate:      date(2025, 1, 6), // Monday
		EndDate:        date(2025, 1, 7),
		CapacityPerDay: 4,
	})
	if err != nil {
		t.Fatalf("OpenWindow returned error: %v", err)
	}
	if !w.IsOpen {
		t.Error("expected window to be open")
	}
	if w.StartDate == nil || !w.StartDate.Equal(date(2025, 1, 6)) {
		t.Errorf("unexpected start date: %v", w.StartDate)
	}

	var entries []models.ScheduleEntry
	if err := db.Order("date ASC, session ASC").Find(&entries).Error; err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries (2 dates x 2 sessions), got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.MaxCapacity != 2 {
			t.Errorf("entry %s: expected max capacity 2, got %d", entry.Key(), entry.MaxCapacity)
		}
		if entry.Status != models.ScheduleOpen {
			t.Errorf("entry %s: expected status open, got %s", entry.Key(), entry.Status)
		}
		if entry.CurrentRegistrations != 0 {
			t.Errorf("entry %s: expected 0 registrations, got %d", entry.Key(), entry.CurrentRegistrations)
		}
	}
}

func TestOpenWindowInvertedRange(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	_, err := eng.OpenWindow(context.Background(), OpenWindowParams{
		StartDate:      date(2025, 1, 10),
		EndDate:        date(2025, 1, 6),
		CapacityPerDay: 4,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestWindowDefaultsToClosed(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	w, err := eng.Window(context.Background())
	if err != nil {
		t.Fatalf("Window returned error: %v", err)
	}
	if w.IsOpen {
		t.Error("expected a never-opened window to read as closed")
	}
	if w.CapacityPerDay < 1 {
		t.Errorf("expected a usable default capacity, got %d", w.CapacityPerDay)
	}
}

func TestCloseWindowClearsDatesAndClosesSchedules(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	mustOpenWindow(t, eng, date(2025, 1, 6), date(2025, 1, 7), 4)

	w, err := eng.CloseWindow(context.Background(), true)
	if err != nil {
		t.Fatalf("CloseWindow returned error: %v", err)
	}
	if w.IsOpen {
		t.Error("expected window to be closed")
	}
	if w.StartDate != nil || w.EndDate != nil {
		t.Error("expected dates to be cleared")
	}

	var open int64
	db.Model(&models.ScheduleEntry{}).Where("status <> ?", models.ScheduleClosed).Count(&open)
	if open != 0 {
		t.Errorf("expected every entry to be closed, %d still open", open)
	}

	// Closing an already-closed window is illegal.
	if _, err := eng.CloseWindow(context.Background(), false); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestCloseWindowKeepsSchedulesWhenNotRequested(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	mustOpenWindow(t, eng, date(2025, 1, 6), date(2025, 1, 7), 4)

	if _, err := eng.CloseWindow(context.Background(), false); err != nil {
		t.Fatalf("CloseWindow returned error: %v", err)
	}

	var open int64
	db.Model(&models.ScheduleEntry{}).Where("status = ?", models.ScheduleOpen).Count(&open)
	if open != 4 {
		t.Errorf("expected 4 entries to remain open, got %d", open)
	}
}

func TestAutoCloseIfExpired(t *testing.T) {
	eng, _, now := newTestEngine(t)
	mustOpenWindow(t, eng, date(2025, 1, 6), date(2025, 1, 7), 4)

	// Still inside the period: nothing happens.
	closed, err := eng.AutoCloseIfExpired(context.Background())
	if err != nil {
		t.Fatalf("AutoCloseIfExpired returned error: %v", err)
	}
	if closed {
		t.Fatal("window closed before its end date")
	}

	*now = date(2025, 1, 8)
	closed, err = eng.AutoCloseIfExpired(context.Background())
	if err != nil {
		t.Fatalf("AutoCloseIfExpired returned error: %v", err)
	}
	if !closed {
		t.Fatal("expected expired window to close")
	}

	w, err := eng.Window(context.Background())
	if err != nil {
		t.Fatalf("Window returned error: %v", err)
	}
	if w.Message == "" {
		t.Error("expected an explanatory message after auto close")
	}

	// Idempotent: a second call is a no-op.
	closed, err = eng.AutoCloseIfExpired(context.Background())
	if err != nil {
		t.Fatalf("second AutoCloseIfExpired returned error: %v", err)
	}
	if closed {
		t.Error("expected second call to be a no-op")
	}
}
