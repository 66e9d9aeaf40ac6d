package handler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"immo/internal/signature/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	"immo/pkg/platform/httputil"
	"immo/pkg/requestcontext"
)

// Service defines the signature code operations exposed over HTTP.
type Service interface {
	Issue(ctx context.Context, actor id.Actor, contractID id.ContractID) (*models.IssueResult, error)
	Submit(ctx context.Context, actor id.Actor, contractID id.ContractID, code string) (*models.SignatureResult, error)
	Status(ctx context.Context, actor id.Actor, contractID id.ContractID) (*models.Status, error)
	Reset(ctx context.Context, actor id.Actor, contractID id.ContractID) error
}

// Handler wires the contract signing endpoints to the signature service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/contracts/{id}", func(r chi.Router) {
		r.Post("/signature-code", h.HandleIssue)
		r.Get("/signature-code", h.HandleStatus)
		r.Post("/signature", h.HandleSubmit)
		r.Delete("/signature-block", h.HandleReset)
	})
}

// HandleIssue handles POST /contracts/{id}/signature-code. The code itself
// is delivered out of band and never appears in the response.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}
	res, err := h.service.Issue(ctx, requestcontext.Actor(ctx), contractID)
	if err != nil {
		h.fail(ctx, w, "issue signature code failed", err, contractID)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{
		ContractID: res.ContractID,
		ExpiresIn:  seconds(res.ExpiresIn),
		ExpiresAt:  res.ExpiresAt,
	})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}
	st, err := h.service.Status(ctx, requestcontext.Actor(ctx), contractID)
	if err != nil {
		h.fail(ctx, w, "signature status failed", err, contractID)
		return
	}
	resp := StatusResponse{ContractID: st.ContractID, Blocked: st.Blocked}
	if st.RemainingValidity != nil {
		secs := seconds(*st.RemainingValidity)
		resp.RemainingValidity = &secs
	}
	if st.Blocked {
		resp.BlockRemaining = seconds(st.BlockRemaining)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleSubmit handles POST /contracts/{id}/signature. Every protocol outcome
// is returned as a SubmitResponse; the status code distinguishes them.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.Submit(ctx, requestcontext.Actor(ctx), contractID, req.Code)
	if err != nil {
		h.fail(ctx, w, "submit signature code failed", err, contractID)
		return
	}

	resp := SubmitResponse{
		Outcome:      res.Outcome,
		Contract:     res.Contract,
		AttemptsUsed: res.AttemptsUsed,
		AttemptsLeft: res.AttemptsLeft,
	}
	status := http.StatusOK
	switch res.Outcome {
	case models.OutcomeIncorrect:
		status = http.StatusUnprocessableEntity
	case models.OutcomeExpired:
		status = http.StatusGone
	case models.OutcomeBlocked:
		status = http.StatusTooManyRequests
		resp.RetryAfter = seconds(res.RetryAfter)
		w.Header().Set("Retry-After", strconv.FormatInt(resp.RetryAfter, 10))
	}
	h.logger.InfoContext(ctx, "signature code submitted",
		"request_id", requestID,
		"contract_id", contractID,
		"outcome", res.Outcome,
	)
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, ok := h.contractID(w, r)
	if !ok {
		return
	}
	if err := h.service.Reset(ctx, requestcontext.Actor(ctx), contractID); err != nil {
		h.fail(ctx, w, "reset signature block failed", err, contractID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) contractID(w http.ResponseWriter, r *http.Request) (id.ContractID, bool) {
	contractID, err := id.ParseContractID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return contractID, false
	}
	return contractID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, contractID id.ContractID) {
	if httputil.StatusForError(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"contract_id", contractID,
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"contract_id", contractID,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

// SubmitRequest is the body of POST /contracts/{id}/signature.
type SubmitRequest struct {
	Code string `json:"code"`
}

func (r *SubmitRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.Validation("code", "is required")
	}
	if len(r.Code) > 32 {
		return dErrors.Validation("code", "is too long")
	}
	return nil
}

// seconds rounds up so a client never retries a moment too early.
func seconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
