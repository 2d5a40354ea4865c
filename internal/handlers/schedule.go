package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/examdesk/exam-scheduler-api/internal/engine"
	"github.com/examdesk/exam-scheduler-api/internal/models"
)

type ScheduleHandler struct {
	engine *engine.Engine
}

func NewScheduleHandler(e *engine.Engine) *ScheduleHandler {
	return &ScheduleHandler{engine: e}
}

type GenerateSchedulesRequest struct {
	Body struct {
		StartDate      time.Time   `json:"start_date,omitempty"`
		EndDate        time.Time   `json:"end_date,omitempty"`
		CapacityPerDay int         `json:"capacity_per_day"`
		SelectedDates  []time.Time `json:"selected_dates,omitempty"`
		MorningStart   string      `json:"morning_start,omitempty"`
		MorningEnd     string      `json:"morning_end,omitempty"`
		AfternoonStart string      `json:"afternoon_start,omitempty"`
		AfternoonEnd   string      `json:"afternoon_end,omitempty"`
	}
}

type GenerateSchedulesResponse struct {
	Body struct {
		Entries []models.ScheduleEntry `json:"entries"`
	}
}

func (h *ScheduleHandler) HandleGenerate(ctx context.Context, input *GenerateSchedulesRequest) (*GenerateSchedulesResponse, error) {
	entries, err := h.engine.GenerateSchedules(ctx, engine.GenerateParams{
		StartDate:      input.Body.StartDate,
		EndDate:        input.Body.EndDate,
		CapacityPerDay: input.Body.CapacityPerDay,
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
	res := &GenerateSchedulesResponse{}
	res.Body.Entries = entries
	return res, nil
}

type CatalogRequest struct {
	From string `query:"from" doc:"Lower date bound (YYYY-MM-DD)"`
	To   string `query:"to" doc:"Upper date bound (YYYY-MM-DD)"`
}

type CatalogResponse struct {
	Body struct {
		Days []engine.CatalogDay `json:"days"`
	}
}

func (h *ScheduleHandler) HandleCatalog(ctx context.Context, input *CatalogRequest) (*CatalogResponse, error) {
	from, err := parseDateParam(input.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDateParam(input.To)
	if err != nil {
		return nil, err
	}

	days, err := h.engine.Catalog(ctx, from, to)
	if err != nil {
		return nil, httpError(err)
	}
	res := &CatalogResponse{}
	res.Body.Days = days
	return res, nil
}

type GenerateCodeRequest struct {
	Date string `path:"date" doc:"Exam date (YYYY-MM-DD)"`
	Body struct {
		BaseReference string `json:"base_reference" doc:"Reference string the code is derived from" required:"true"`
	}
}

type GenerateCodeResponse struct {
	Body struct {
		Code string `json:"code"`
	}
}

func (h *ScheduleHandler) HandleGenerateCode(ctx context.Context, input *GenerateCodeRequest) (*GenerateCodeResponse, error) {
	date, err := parseDateParam(input.Date)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, huma.Error400BadRequest("date is required")
	}

	code, err := h.engine.GenerateScheduleCode(ctx, date, input.Body.BaseReference)
	if err != nil {
		return nil, httpError(err)
	}
	res := &GenerateCodeResponse{}
	res.Body.Code = code
	return res, nil
}

type RescheduleDayRequest struct {
	Body struct {
		FromDate time.Time `json:"from_date"`
		ToDate   time.Time `json:"to_date"`
	}
}

type RescheduleDayResponse struct {
	Body struct {
		MovedCount int `json:"moved_count"`
	}
}

func (h *ScheduleHandler) HandleRescheduleDay(ctx context.Context, input *RescheduleDayRequest) (*RescheduleDayResponse, error) {
	moved, err := h.engine.RescheduleDay(ctx, input.Body.FromDate, input.Body.ToDate)
	if err != nil {
		return nil, httpError(err)
	}
	res := &RescheduleDayResponse{}
	res.Body.MovedCount = moved
	return res, nil
}

func parseDateParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, huma.Error400BadRequest("invalid date " + s + ", want YYYY-MM-DD")
	}
	return t, nil
}
