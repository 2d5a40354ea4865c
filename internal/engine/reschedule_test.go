package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/examdesk/exam-scheduler-api/internal/models"
)

func TestRescheduleDayMovesAssignedRegistrations(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	fromMorning := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 2, 2, models.ScheduleFull)
	fromAfternoon := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionAfternoon, 2, 1, models.ScheduleOpen)
	toMorning := mustCreateEntry(t, db, date(2025, 1, 8), models.SessionMorning, 4, 0, models.ScheduleOpen)
	toAfternoon := mustCreateEntry(t, db, date(2025, 1, 8), models.SessionAfternoon, 4, 0, models.ScheduleOpen)

	a := mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &fromMorning)
	b := mustCreateRegistration(t, db, "exam-002", models.StatusAssigned, &fromMorning)
	c := mustCreateRegistration(t, db, "exam-003", models.StatusAssigned, &fromAfternoon)
	done := mustCreateRegistration(t, db, "exam-004", models.StatusCompleted, &fromAfternoon)

	moved, err := eng.RescheduleDay(context.Background(), date(2025, 1, 6), date(2025, 1, 8))
	if err != nil {
		t.Fatalf("RescheduleDay returned error: %v", err)
	}
	if moved != 3 {
		t.Fatalf("expected 3 moved registrations, got %d", moved)
	}

	for _, id := range []uint{a.ID, b.ID, c.ID} {
		reg := reloadRegistration(t, db, id)
		if reg.AssignedDate == nil || !reg.AssignedDate.Equal(date(2025, 1, 8)) {
			t.Errorf("registration %d not moved: %v", id, reg.AssignedDate)
		}
	}
	// Completed registrations stay where they sat the exam.
	if reg := reloadRegistration(t, db, done.ID); reg.ScheduleEntryID == nil || *reg.ScheduleEntryID != fromAfternoon.ID {
		t.Error("completed registration must not move")
	}

	if after := reloadEntry(t, db, fromMorning.ID); after.CurrentRegistrations != 0 || after.Status != models.ScheduleOpen {
		t.Errorf("source morning not released: %d %s", after.CurrentRegistrations, after.Status)
	}
	if after := reloadEntry(t, db, toMorning.ID); after.CurrentRegistrations != 2 {
		t.Errorf("target morning counter %d, want 2", after.CurrentRegistrations)
	}
	if after := reloadEntry(t, db, toAfternoon.ID); after.CurrentRegistrations != 1 {
		t.Errorf("target afternoon counter %d, want 1", after.CurrentRegistrations)
	}
}

func TestRescheduleDayEnforcesTargetCapacity(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	from := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 2, 2, models.ScheduleFull)
	to := mustCreateEntry(t, db, date(2025, 1, 8), models.SessionMorning, 1, 0, models.ScheduleOpen)
	mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &from)
	mustCreateRegistration(t, db, "exam-002", models.StatusAssigned, &from)

	_, err := eng.RescheduleDay(context.Background(), date(2025, 1, 6), date(2025, 1, 8))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	// All-or-nothing within the session: nothing moved.
	if after := reloadEntry(t, db, from.ID); after.CurrentRegistrations != 2 {
		t.Errorf("source counter changed: %d", after.CurrentRegistrations)
	}
	if after := reloadEntry(t, db, to.ID); after.CurrentRegistrations != 0 {
		t.Errorf("target counter changed: %d", after.CurrentRegistrations)
	}
}

func TestRescheduleDayMissingTarget(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	from := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 2, 1, models.ScheduleOpen)
	mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &from)

	_, err := eng.RescheduleDay(context.Background(), date(2025, 1, 6), date(2025, 1, 8))
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}
}
