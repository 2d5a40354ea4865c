package handlers

import (
	"context"

	"github.com/examdesk/exam-scheduler-api/internal/engine"
)

type SweepHandler struct {
	engine *engine.Engine
}

func NewSweepHandler(e *engine.Engine) *SweepHandler {
	return &SweepHandler{engine: e}
}

type NoShowSweepResponse struct {
	Body struct {
		CancelledCount int `json:"cancelled_count"`
	}
}

func (h *SweepHandler) HandleNoShows(ctx context.Context, input *struct{}) (*NoShowSweepResponse, error) {
	cancelled, err := h.engine.SweepNoShows(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	res := &NoShowSweepResponse{}
	res.Body.CancelledCount = cancelled
	return res, nil
}

type ScheduleClosureSweepResponse struct {
	Body struct {
		ClosedCount int `json:"closed_count"`
	}
}

func (h *SweepHandler) HandleScheduleClosures(ctx context.Context, input *struct{}) (*ScheduleClosureSweepResponse, error) {
	closed, err := h.engine.SweepScheduleClosures(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	res := &ScheduleClosureSweepResponse{}
	res.Body.ClosedCount = closed
	return res, nil
}

type WindowClosureSweepResponse struct {
	Body struct {
		Closed bool `json:"closed"`
	}
}

func (h *SweepHandler) HandleWindowClosure(ctx context.Context, input *struct{}) (*WindowClosureSweepResponse, error) {
	closed, err := h.engine.SweepWindowClosure(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	res := &WindowClosureSweepResponse{}
	res.Body.Closed = closed
	return res, nil
}

type RunSweepsResponse struct {
	Body engine.SweepReport
}

func (h *SweepHandler) HandleRun(ctx context.Context, input *struct{}) (*RunSweepsResponse, error) {
	report, err := h.engine.RunSweeps(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &RunSweepsResponse{Body: *report}, nil
}

type ReconcileResponse struct {
	Body engine.ReconcileResult
}

func (h *SweepHandler) HandleReconcile(ctx context.Context, input *struct{}) (*ReconcileResponse, error) {
	result, err := h.engine.ReconcileCapacity(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &ReconcileResponse{Body: *result}, nil
}
