package handlers

import (
	"context"
	"time"

	"github.com/examdesk/exam-scheduler-api/internal/engine"
	"github.com/examdesk/exam-scheduler-api/internal/models"
)

type WindowHandler struct {
	engine *engine.Engine
}

func NewWindowHandler(e *engine.Engine) *WindowHandler {
	return &WindowHandler{engine: e}
}

type WindowResponse struct {
	Body models.RegistrationWindow
}

func (h *WindowHandler) HandleGetWindow(ctx context.Context, input *struct{}) (*WindowResponse, error) {
	w, err := h.engine.Window(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &WindowResponse{Body: *w}, nil
}

type OpenWindowRequest struct {
	Body struct {
		StartDate      time.Time   `json:"start_date" doc:"First exam date of the period"`
		EndDate        time.Time   `json:"end_date" doc:"Last exam date of the period"`
		CapacityPerDay int         `json:"capacity_per_day" doc:"Total examinees per day, split across both sessions"`
		Message        string      `json:"message,omitempty" doc:"Announcement shown to examinees"`
		SelectedDates  []time.Time `json:"selected_dates,omitempty" doc:"Explicit exam dates; defaults to all weekdays in range"`
		MorningStart   string      `json:"morning_start,omitempty" doc:"Morning session start time (HH:MM)"`
		MorningEnd     string      `json:"morning_end,omitempty"`
		AfternoonStart string      `json:"afternoon_start,omitempty"`
		AfternoonEnd   string      `json:"afternoon_end,omitempty"`
	}
}

func (h *WindowHandler) HandleOpenWindow(ctx context.Context, input *OpenWindowRequest) (*WindowResponse, error) {
	w, err := h.engine.OpenWindow(ctx, engine.OpenWindowParams{
		StartDate:      input.Body.StartDate,
		EndDate:        input.Body.EndDate,
		CapacityPerDay: input.Body.CapacityPerDay,
		Message:        input.Body.Message,
		SelectedDates:  input.Body.SelectedDates,
		Times: engine.TimeSettings{
			MorningStart:   input.Body.MorningStart,
			MorningEnd:     input.Body.MorningEnd,
			AfternoonStart: input.Body.AfternoonStart,
			AfternoonEnd:   input.Body.AfternoonEnd,
		},
	})
	if err != nil {
		return nil, httpError(err)
	}
	return &WindowResponse{Body: *w}, nil
}

type CloseWindowRequest struct {
	Body struct {
		CloseSchedules bool `json:"close_schedules" doc:"Also close every remaining open session up to the window end date"`
	}
}

func (h *WindowHandler) HandleCloseWindow(ctx context.Context, input *CloseWindowRequest) (*WindowResponse, error) {
	w, err := h.engine.CloseWindow(ctx, input.Body.CloseSchedules)
	if err != nil {
		return nil, httpError(err)
	}
	return &WindowResponse{Body: *w}, nil
}
