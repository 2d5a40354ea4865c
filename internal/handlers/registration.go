package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/examdesk/exam-scheduler-api/internal/engine"
	"github.com/examdesk/exam-scheduler-api/internal/models"
)

type RegistrationHandler struct {
	engine *engine.Engine
}

func NewRegistrationHandler(e *engine.Engine) *RegistrationHandler {
	return &RegistrationHandler{engine: e}
}

type RegistrationResponse struct {
	Body models.Registration
}

type RegisterRequest struct {
	Body struct {
		ExamineeID string `json:"examinee_id,omitempty" doc:"External examinee reference; generated when omitted"`
	}
}

func (h *RegistrationHandler) HandleRegister(ctx context.Context, input *RegisterRequest) (*RegistrationResponse, error) {
	reg, err := h.engine.RegisterExaminee(ctx, input.Body.ExamineeID)
	if err != nil {
		return nil, httpError(err)
	}
	return &RegistrationResponse{Body: *reg}, nil
}

type AssignRequest struct {
	ID   uint `path:"id"`
	Body struct {
		Date    time.Time      `json:"date" doc:"Exam date"`
		Session models.Session `json:"session" enum:"morning,afternoon"`
		Status  string         `json:"status,omitempty" doc:"Explicit target status; defaults to assigned"`
		Note    string         `json:"note,omitempty"`
	}
}

// HandleAssign is the operator path: it may create the target session on
// demand and may overbook a full one.
func (h *RegistrationHandler) HandleAssign(ctx context.Context, input *AssignRequest) (*RegistrationResponse, error) {
	reg, err := h.engine.Assign(ctx, input.ID, input.Body.Date, input.Body.Session, engine.AssignOptions{
		Status: models.RegistrationStatus(input.Body.Status),
		Note:   input.Body.Note,
	})
	if err != nil {
		return nil, httpError(err)
	}
	return &RegistrationResponse{Body: *reg}, nil
}

type SelfAssignRequest struct {
	ID   uint `path:"id"`
	Body struct {
		Date    time.Time      `json:"date"`
		Session models.Session `json:"session" enum:"morning,afternoon"`
	}
}

// HandleSelfAssign is the examinee-facing path with hard capacity
// enforcement.
func (h *RegistrationHandler) HandleSelfAssign(ctx context.Context, input *SelfAssignRequest) (*RegistrationResponse, error) {
	reg, err := h.engine.SelfAssign(ctx, input.ID, input.Body.Date, input.Body.Session)
	if err != nil {
		return nil, httpError(err)
	}
	return &RegistrationResponse{Body: *reg}, nil
}

type BulkAssignRequest struct {
	Body struct {
		RegistrationIDs []uint         `json:"registration_ids" required:"true"`
		Date            time.Time      `json:"date"`
		Session         models.Session `json:"session" enum:"morning,afternoon"`
	}
}

type BulkAssignResponse struct {
	Body engine.BulkResult
}

func (h *RegistrationHandler) HandleBulkAssign(ctx context.Context, input *BulkAssignRequest) (*BulkAssignResponse, error) {
	result, err := h.engine.BulkAssign(ctx, engine.BulkAssignParams{
		RegistrationIDs: input.Body.RegistrationIDs,
		Date:            input.Body.Date,
		Session:         input.Body.Session,
	})
	if err != nil {
		// An eligibility failure carries the per-registration reasons.
		if result != nil && len(result.Failed) > 0 {
			details := make([]error, 0, len(result.Failed))
			for _, f := range result.Failed {
				details = append(details, &huma.ErrorDetail{
					Message:  f.Reason,
					Location: "body.registration_ids",
					Value:    f.RegistrationID,
				})
			}
			return nil, huma.Error422UnprocessableEntity(err.Error(), details...)
		}
		return nil, httpError(err)
	}
	return &BulkAssignResponse{Body: *result}, nil
}

type RescheduleRequest struct {
	ID   uint `path:"id"`
	Body struct {
		Date    time.Time      `json:"date"`
		Session models.Session `json:"session" enum:"morning,afternoon"`
	}
}

func (h *RegistrationHandler) HandleReschedule(ctx context.Context, input *RescheduleRequest) (*RegistrationResponse, error) {
	reg, err := h.engine.Reschedule(ctx, input.ID, input.Body.Date, input.Body.Session)
	if err != nil {
		return nil, httpError(err)
	}
	return &RegistrationResponse{Body: *reg}, nil
}

type CancelRequest struct {
	ID   uint `path:"id"`
	Body struct {
		Note string `json:"note,omitempty"`
	}
}

func (h *RegistrationHandler) HandleCancel(ctx context.Context, input *CancelRequest) (*RegistrationResponse, error) {
	note := input.Body.Note
	if note == "" {
		note = "cancelled"
	}
	reg, err := h.engine.Cancel(ctx, input.ID, note)
	if err != nil {
		return nil, httpError(err)
	}
	return &RegistrationResponse{Body: *reg}, nil
}

type RegistrationIDRequest struct {
	ID uint `path:"id"`
}

func (h *RegistrationHandler) HandleComplete(ctx context.Context, input *RegistrationIDRequest) (*RegistrationResponse, error) {
	reg, err := h.engine.Complete(ctx, input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	return &RegistrationResponse{Body: *reg}, nil
}

func (h *RegistrationHandler) HandleArchive(ctx context.Context, input *RegistrationIDRequest) (*RegistrationResponse, error) {
	reg, err := h.engine.Archive(ctx, input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	return &RegistrationResponse{Body: *reg}, nil
}

func (h *RegistrationHandler) HandleReinstate(ctx context.Context, input *RegistrationIDRequest) (*RegistrationResponse, error) {
	reg, err := h.engine.Reinstate(ctx, input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	return &RegistrationResponse{Body: *reg}, nil
}

type DeleteResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

func (h *RegistrationHandler) HandleDelete(ctx context.Context, input *RegistrationIDRequest) (*DeleteResponse, error) {
	if err := h.engine.Delete(ctx, input.ID); err != nil {
		return nil, httpError(err)
	}
	res := &DeleteResponse{}
	res.Body.Message = "Registration deleted"
	return res, nil
}

type RegistrationEventsResponse struct {
	Body struct {
		Events []models.RegistrationEvent `json:"events"`
	}
}

func (h *RegistrationHandler) HandleEvents(ctx context.Context, input *RegistrationIDRequest) (*RegistrationEventsResponse, error) {
	events, err := h.engine.RegistrationEvents(ctx, input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	res := &RegistrationEventsResponse{}
	res.Body.Events = events
	return res, nil
}
