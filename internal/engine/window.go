package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/examdesk/exam-scheduler-api/internal/models"
	"github.com/examdesk/exam-scheduler-api/internal/notifier"
)

// OpenWindowParams describes a window-open request.
type OpenWindowParams struct {
	StartDate      time.Time `validate:"required"`
	EndDate        time.Time `validate:"required"`
	CapacityPerDay int       `validate:"required,min=1"`
	Message        string
	Times          TimeSettings
	SelectedDates  []time.Time
}

// Window returns the current window state. A row that has never been written
// reads as closed with engine defaults.
func (e *Engine) Window(ctx context.Context) (*models.RegistrationWindow, error) {
	var w models.RegistrationWindow
	err := e.db.WithContext(ctx).First(&w, models.WindowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.RegistrationWindow{
			Model:          gorm.Model{ID: models.WindowID},
			IsOpen:         false,
			CapacityPerDay: e.defaultCapacityPerDay,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}
	return &w, nil
}

// OpenWindow opens the registration window for the given period and generates
// the schedule catalog for it.
func (e *Engine) OpenWindow(ctx context.Context, p OpenWindowParams) (*models.RegistrationWindow, error) {
	if err := e.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	start := models.DateOnly(p.StartDate)
	end := models.DateOnly(p.EndDate)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date is after end date", ErrValidation)
	}

	e.windowMu.Lock()
	defer e.windowMu.Unlock()

	var w models.RegistrationWindow
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.FirstOrInit(&w, models.RegistrationWindow{Model: gorm.Model{ID: models.WindowID}}).Error; err != nil {
			return err
		}
		w.ID = models.WindowID
		w.IsOpen = true
		w.StartDate = &start
		w.EndDate = &end
		w.CapacityPerDay = p.CapacityPerDay
		w.Message = p.Message
		return tx.Save(&w).Error
	})
	if err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}

	if _, err := e.GenerateSchedules(ctx, GenerateParams{
		StartDate:      start,
		EndDate:        end,
		CapacityPerDay: p.CapacityPerDay,
		SelectedDates:  p.SelectedDates,
		Times:          p.Times,
	}); err != nil {
		return nil, err
	}

	e.notify(func(n notifier.Notifier) error {
		return n.NotifyWindowOpened(start, end, p.CapacityPerDay)
	})

	return &w, nil
}

// CloseWindow closes the registration window. With closeSchedules set, every
// still-open entry up to the current end date is swept closed first,
// including entries that never received a registration.
func (e *Engine) CloseWindow(ctx context.Context, closeSchedules bool) (*models.RegistrationWindow, error) {
	e.windowMu.Lock()
	defer e.windowMu.Unlock()
	return e.closeWindowLocked(ctx, closeSchedules, "")
}

func (e *Engine) closeWindowLocked(ctx context.Context, closeSchedules bool, message string) (*models.RegistrationWindow, error) {
	w, err := e.Window(ctx)
	if err != nil {
		return nil, err
	}
	if !w.IsOpen {
		return nil, fmt.Errorf("%w: window is already closed", ErrIllegalTransition)
	}

	if closeSchedules && w.EndDate != nil {
		through := *w.EndDate
		if _, err := e.sweepScheduleClosures(ctx, &through, true); err != nil {
			return nil, err
		}
	}

	w.IsOpen = false
	w.StartDate = nil
	w.EndDate = nil
	if message != "" {
		w.Message = message
	}
	if err := e.db.WithContext(ctx).Save(w).Error; err != nil {
		return nil, fmt.Errorf("close window: %w", err)
	}

	e.notify(func(n notifier.Notifier) error {
		return n.NotifyWindowClosed(w.Message)
	})

	return w, nil
}

// AutoCloseIfExpired closes the window once today is past its end date. It is
// a no-op on a closed window, so repeated calls are safe.
func (e *Engine) AutoCloseIfExpired(ctx context.Context) (bool, error) {
	e.windowMu.Lock()
	defer e.windowMu.Unlock()

	w, err := e.Window(ctx)
	if err != nil {
		return false, err
	}
	if !w.IsOpen || w.EndDate == nil {
		return false, nil
	}
	today := models.DateOnly(e.clock.now())
	if !today.After(models.DateOnly(*w.EndDate)) {
		return false, nil
	}

	message := fmt.Sprintf("Registration period ended on %s; window closed automatically.", w.EndDate.Format("2006-01-02"))
	if _, err := e.closeWindowLocked(ctx, true, message); err != nil {
		return false, err
	}
	return true, nil
}
