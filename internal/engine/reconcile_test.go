package engine

import (
	"context"
	"testing"

	"github.com/examdesk/exam-scheduler-api/internal/models"
)

func TestReconcileCorrectsDrift(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	// Counter says 5, truth is 1 assigned and 1 completed minus the
	// cancelled one that no longer holds a seat.
	entry := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 3, 5, models.ScheduleFull)
	mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &entry)
	mustCreateRegistration(t, db, "exam-002", models.StatusCompleted, &entry)
	mustCreateRegistration(t, db, "exam-003", models.StatusCancelled, &entry)

	result, err := eng.ReconcileCapacity(context.Background())
	if err != nil {
		t.Fatalf("ReconcileCapacity returned error: %v", err)
	}
	if result.CorrectedCount != 1 {
		t.Errorf("expected 1 correction, got %d", result.CorrectedCount)
	}

	after := reloadEntry(t, db, entry.ID)
	if after.CurrentRegistrations != 2 {
		t.Errorf("expected counter 2, got %d", after.CurrentRegistrations)
	}
	if after.Status != models.ScheduleOpen {
		t.Errorf("expected status open below capacity, got %s", after.Status)
	}

	// A second run finds nothing to fix.
	result, err = eng.ReconcileCapacity(context.Background())
	if err != nil {
		t.Fatalf("second ReconcileCapacity returned error: %v", err)
	}
	if result.CorrectedCount != 0 {
		t.Errorf("expected no corrections on a clean catalog, got %d", result.CorrectedCount)
	}
}

func TestReconcileRecomputesFullStatus(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	entry := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 1, 0, models.ScheduleOpen)
	mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &entry)

	if _, err := eng.ReconcileCapacity(context.Background()); err != nil {
		t.Fatalf("ReconcileCapacity returned error: %v", err)
	}

	after := reloadEntry(t, db, entry.ID)
	if after.CurrentRegistrations != 1 {
		t.Errorf("expected counter 1, got %d", after.CurrentRegistrations)
	}
	if after.Status != models.ScheduleFull {
		t.Errorf("expected status full at capacity, got %s", after.Status)
	}
}

func TestReconcileKeepsManualClosedSticky(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	entry := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 3, 9, models.ScheduleClosed)
	mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &entry)

	if _, err := eng.ReconcileCapacity(context.Background()); err != nil {
		t.Fatalf("ReconcileCapacity returned error: %v", err)
	}

	after := reloadEntry(t, db, entry.ID)
	if after.CurrentRegistrations != 1 {
		t.Errorf("expected corrected counter 1, got %d", after.CurrentRegistrations)
	}
	if after.Status != models.ScheduleClosed {
		t.Errorf("expected closed to stay closed, got %s", after.Status)
	}
}
