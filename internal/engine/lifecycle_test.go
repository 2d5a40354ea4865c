package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/examdesk/exam-scheduler-api/internal/models"
)

func TestCancelReleasesSeat(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	entry := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 1, 1, models.ScheduleFull)
	reg := mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &entry)

	got, err := eng.Cancel(context.Background(), reg.ID, "examinee withdrew")
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if got.Status != models.StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}

	after := reloadEntry(t, db, entry.ID)
	if after.CurrentRegistrations != 0 {
		t.Errorf("expected released seat, counter %d", after.CurrentRegistrations)
	}
	if after.Status != models.ScheduleOpen {
		t.Errorf("expected full entry to reopen, got %s", after.Status)
	}

	// Double cancel is illegal.
	if _, err := eng.Cancel(context.Background(), reg.ID, "again"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestReinstateClearsAssignment(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	entry := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 2, 1, models.ScheduleOpen)
	reg := mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &entry)

	if _, err := eng.Cancel(context.Background(), reg.ID, "no-show"); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	got, err := eng.Reinstate(context.Background(), reg.ID)
	if err != nil {
		t.Fatalf("Reinstate returned error: %v", err)
	}
	if got.Status != models.StatusRegistered {
		t.Errorf("expected registered, got %s", got.Status)
	}

	// The stale assignment is gone in the same write as the status change.
	after := reloadRegistration(t, db, reg.ID)
	if after.ScheduleEntryID != nil || after.AssignedDate != nil || after.AssignedSession != nil {
		t.Errorf("expected assignment cleared, got entry=%v date=%v session=%v",
			after.ScheduleEntryID, after.AssignedDate, after.AssignedSession)
	}

	events, err := eng.RegistrationEvents(context.Background(), reg.ID)
	if err != nil {
		t.Fatalf("RegistrationEvents returned error: %v", err)
	}
	if len(events) == 0 || events[len(events)-1].Note != "reinstated" {
		t.Errorf("expected a reinstated event, got %+v", events)
	}
}

func TestCompleteKeepsSeatCounted(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	entry := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 2, 1, models.ScheduleOpen)
	reg := mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &entry)

	if _, err := eng.Complete(context.Background(), reg.ID); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if after := reloadEntry(t, db, entry.ID); after.CurrentRegistrations != 1 {
		t.Errorf("completed registration must keep its seat, counter %d", after.CurrentRegistrations)
	}

	// Only assigned registrations can complete.
	other := mustCreateRegistration(t, db, "exam-002", models.StatusRegistered, nil)
	if _, err := eng.Complete(context.Background(), other.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestArchiveReleasesCompletedSeat(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	entry := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 2, 1, models.ScheduleOpen)
	reg := mustCreateRegistration(t, db, "exam-001", models.StatusCompleted, &entry)

	if _, err := eng.Archive(context.Background(), reg.ID); err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	if after := reloadEntry(t, db, entry.ID); after.CurrentRegistrations != 0 {
		t.Errorf("expected archived seat released, counter %d", after.CurrentRegistrations)
	}
}

func TestDeleteIsHardDelete(t *testing.T) {
	eng, db, _ := newTestEngine(t)

	entry := mustCreateEntry(t, db, date(2025, 1, 6), models.SessionMorning, 2, 1, models.ScheduleOpen)
	reg := mustCreateRegistration(t, db, "exam-001", models.StatusAssigned, &entry)

	if err := eng.Delete(context.Background(), reg.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var count int64
	db.Unscoped().Model(&models.Registration{}).Where("id = ?", reg.ID).Count(&count)
	if count != 0 {
		t.Error("expected the row to be gone, not soft-deleted")
	}
	if after := reloadEntry(t, db, entry.ID); after.CurrentRegistrations != 0 {
		t.Errorf("expected released seat, counter %d", after.CurrentRegistrations)
	}

	if err := eng.Delete(context.Background(), reg.ID); !errors.Is(err, ErrRegistrationNotFound) {
		t.Fatalf("expected ErrRegistrationNotFound, got %v", err)
	}
}

func TestRegistrationEventsAuditTrail(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	mustOpenWindow(t, eng, date(2025, 1, 6), date(2025, 1, 7), 4)

	reg, err := eng.RegisterExaminee(context.Background(), "exam-001")
	if err != nil {
		t.Fatalf("RegisterExaminee returned error: %v", err)
	}
	if _, err := eng.SelfAssign(context.Background(), reg.ID, date(2025, 1, 6), models.SessionMorning); err != nil {
		t.Fatalf("SelfAssign returned error: %v", err)
	}
	if _, err := eng.Cancel(context.Background(), reg.ID, "changed plans"); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	events, err := eng.RegistrationEvents(context.Background(), reg.ID)
	if err != nil {
		t.Fatalf("RegistrationEvents returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 audit events, got %d", len(events))
	}
	if events[1].FromStatus != models.StatusRegistered || events[1].ToStatus != models.StatusAssigned {
		t.Errorf("unexpected second event: %s -> %s", events[1].FromStatus, events[1].ToStatus)
	}
	if events[2].ToStatus != models.StatusCancelled {
		t.Errorf("unexpected final event: %s", events[2].ToStatus)
	}
	if events[1].ScheduleKey == "" {
		t.Error("expected assignment event to record the schedule key")
	}
}
