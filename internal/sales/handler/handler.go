package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"immo/internal/sales/models"
	"immo/internal/sales/service"
	id "immo/pkg/domain"
	"immo/pkg/platform/httputil"
	"immo/pkg/requestcontext"
)

// Service defines the sales operations exposed over HTTP.
type Service interface {
	CreateReservation(ctx context.Context, actor id.Actor, unitID id.UnitID, clientID id.ClientID, deposit decimal.Decimal) (*models.Reservation, error)
	GetDossier(ctx context.Context, actor id.Actor, reservationID id.ReservationID) (*service.Dossier, error)
	ConfirmReservation(ctx context.Context, actor id.Actor, reservationID id.ReservationID) (*service.ConfirmResult, error)
	CancelReservation(ctx context.Context, actor id.Actor, reservationID id.ReservationID, reason string) (*service.TerminationResult, error)
	ExpireReservation(ctx context.Context, actor id.Actor, reservationID id.ReservationID, reason string) (*service.TerminationResult, error)

	RecordPayment(ctx context.Context, actor id.Actor, reservationID id.ReservationID, amount decimal.Decimal, method id.PaymentMethod) (*models.Payment, error)
	ValidatePayment(ctx context.Context, actor id.Actor, paymentID id.PaymentID) (*models.Payment, error)
	RejectPayment(ctx context.Context, actor id.Actor, paymentID id.PaymentID, reason string) (*models.Payment, error)

	RequestFinancing(ctx context.Context, actor id.Actor, reservationID id.ReservationID, req service.FinancingRequest) (*models.Financing, error)
	UpdateFinancingStatus(ctx context.Context, actor id.Actor, financingID id.FinancingID, next models.FinancingStatus) (*models.Financing, error)
	GenerateInstallments(ctx context.Context, actor id.Actor, financingID id.FinancingID, count int, firstDue time.Time) ([]*models.Installment, error)

	UploadDocument(ctx context.Context, actor id.Actor, dc models.DocumentContext, typ models.DocumentType, file models.FileRef) (*models.Document, error)
	ReplaceDocument(ctx context.Context, actor id.Actor, documentID id.DocumentID, file models.FileRef) (*models.Document, error)
	ValidateDocument(ctx context.Context, actor id.Actor, documentID id.DocumentID) (*models.Document, error)
	RejectDocument(ctx context.Context, actor id.Actor, documentID id.DocumentID, reason string) (*models.Document, error)
	DocumentStatus(ctx context.Context, actor id.Actor, dc models.DocumentContext) (*service.DocumentStatusView, error)

	CreateContract(ctx context.Context, actor id.Actor, reservationID id.ReservationID, content []byte) (*models.Contract, error)
}

// Handler wires reservation, payment, financing, document and contract
// endpoints to the sales service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts sales endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", h.HandleCreateReservation)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetDossier)
			r.Post("/confirm", h.HandleConfirmReservation)
			r.Post("/cancel", h.HandleCancelReservation)
			r.Post("/expire", h.HandleExpireReservation)
			r.Post("/payments", h.HandleRecordPayment)
			r.Post("/financing", h.HandleRequestFinancing)
			r.Post("/documents", h.HandleUploadReservationDocument)
			r.Get("/documents/status", h.HandleReservationDocumentStatus)
			r.Post("/contract", h.HandleCreateContract)
		})
	})
	r.Post("/payments/{id}/validate", h.HandleValidatePayment)
	r.Post("/payments/{id}/reject", h.HandleRejectPayment)
	r.Post("/financings/{id}/status", h.HandleUpdateFinancingStatus)
	r.Post("/financings/{id}/installments", h.HandleGenerateInstallments)
	r.Post("/financings/{id}/documents", h.HandleUploadFinancingDocument)
	r.Get("/financings/{id}/documents/status", h.HandleFinancingDocumentStatus)
	r.Put("/documents/{id}/file", h.HandleReplaceDocument)
	r.Post("/documents/{id}/validate", h.HandleValidateDocument)
	r.Post("/documents/{id}/reject", h.HandleRejectDocument)
}

// -----------------------------------------------------------------------------
// Reservations
// -----------------------------------------------------------------------------

func (h *Handler) HandleCreateReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateReservationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.CreateReservation(ctx, actor, req.unitID, req.ClientFor(actor), req.deposit)
	if err != nil {
		h.fail(ctx, w, "create reservation failed", err, "unit_id", req.unitID)
		return
	}
	h.logger.InfoContext(ctx, "reservation created",
		"request_id", requestID,
		"reservation_id", res.ID,
		"unit_id", res.UnitID,
	)
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) HandleGetDossier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reservationID, ok := pathID(w, r, id.ParseReservationID)
	if !ok {
		return
	}
	dossier, err := h.service.GetDossier(ctx, requestcontext.Actor(ctx), reservationID)
	if err != nil {
		h.fail(ctx, w, "get dossier failed", err, "reservation_id", reservationID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dossier)
}

func (h *Handler) HandleConfirmReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reservationID, ok := pathID(w, r, id.ParseReservationID)
	if !ok {
		return
	}
	result, err := h.service.ConfirmReservation(ctx, requestcontext.Actor(ctx), reservationID)
	if err != nil {
		h.fail(ctx, w, "confirm reservation failed", err, "reservation_id", reservationID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleCancelReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reservationID, ok := pathID(w, r, id.ParseReservationID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.CancelReservation(ctx, requestcontext.Actor(ctx), reservationID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "cancel reservation failed", err, "reservation_id", reservationID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleExpireReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reservationID, ok := pathID(w, r, id.ParseReservationID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ExpireRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.ExpireReservation(ctx, requestcontext.Actor(ctx), reservationID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "expire reservation failed", err, "reservation_id", reservationID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// -----------------------------------------------------------------------------
// Payments
// -----------------------------------------------------------------------------

func (h *Handler) HandleRecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reservationID, ok := pathID(w, r, id.ParseReservationID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RecordPaymentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	payment, err := h.service.RecordPayment(ctx, requestcontext.Actor(ctx), reservationID, req.amount, req.method)
	if err != nil {
		h.fail(ctx, w, "record payment failed", err, "reservation_id", reservationID)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, payment)
}

func (h *Handler) HandleValidatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, ok := pathID(w, r, id.ParsePaymentID)
	if !ok {
		return
	}
	payment, err := h.service.ValidatePayment(ctx, requestcontext.Actor(ctx), paymentID)
	if err != nil {
		h.fail(ctx, w, "validate payment failed", err, "payment_id", paymentID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payment)
}

func (h *Handler) HandleRejectPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, ok := pathID(w, r, id.ParsePaymentID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	payment, err := h.service.RejectPayment(ctx, requestcontext.Actor(ctx), paymentID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "reject payment failed", err, "payment_id", paymentID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payment)
}

// -----------------------------------------------------------------------------
// Financing
// -----------------------------------------------------------------------------

func (h *Handler) HandleRequestFinancing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reservationID, ok := pathID(w, r, id.ParseReservationID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RequestFinancingRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	financing, err := h.service.RequestFinancing(ctx, requestcontext.Actor(ctx), reservationID, service.FinancingRequest{
		BankID: req.parsed.BankID,
		Type:   req.parsed.Type,
		Amount: req.parsed.Amount,
	})
	if err != nil {
		h.fail(ctx, w, "request financing failed", err, "reservation_id", reservationID)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, financing)
}

func (h *Handler) HandleUpdateFinancingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	financingID, ok := pathID(w, r, id.ParseFinancingID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FinancingStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	financing, err := h.service.UpdateFinancingStatus(ctx, requestcontext.Actor(ctx), financingID, req.status)
	if err != nil {
		h.fail(ctx, w, "update financing status failed", err, "financing_id", financingID, "status", req.status)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, financing)
}

func (h *Handler) HandleGenerateInstallments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	financingID, ok := pathID(w, r, id.ParseFinancingID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[InstallmentsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	installments, err := h.service.GenerateInstallments(ctx, requestcontext.Actor(ctx), financingID, req.Count, req.firstDue)
	if err != nil {
		h.fail(ctx, w, "generate installments failed", err, "financing_id", financingID)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, InstallmentsResponse{Installments: installments})
}

// -----------------------------------------------------------------------------
// Documents
// -----------------------------------------------------------------------------

func (h *Handler) HandleUploadReservationDocument(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := pathID(w, r, id.ParseReservationID)
	if !ok {
		return
	}
	h.upload(w, r, models.ReservationContext(reservationID))
}

func (h *Handler) HandleUploadFinancingDocument(w http.ResponseWriter, r *http.Request) {
	financingID, ok := pathID(w, r, id.ParseFinancingID)
	if !ok {
		return
	}
	h.upload(w, r, models.DocumentContext{Kind: models.ContextFinancing, FinancingID: financingID})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, dc models.DocumentContext) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[UploadDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.service.UploadDocument(ctx, requestcontext.Actor(ctx), dc, req.typ, req.FileRef())
	if err != nil {
		h.fail(ctx, w, "upload document failed", err, "context", dc.Kind, "type", req.typ)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) HandleReservationDocumentStatus(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := pathID(w, r, id.ParseReservationID)
	if !ok {
		return
	}
	h.documentStatus(w, r, models.ReservationContext(reservationID))
}

func (h *Handler) HandleFinancingDocumentStatus(w http.ResponseWriter, r *http.Request) {
	financingID, ok := pathID(w, r, id.ParseFinancingID)
	if !ok {
		return
	}
	h.documentStatus(w, r, models.DocumentContext{Kind: models.ContextFinancing, FinancingID: financingID})
}

func (h *Handler) documentStatus(w http.ResponseWriter, r *http.Request, dc models.DocumentContext) {
	ctx := r.Context()
	view, err := h.service.DocumentStatus(ctx, requestcontext.Actor(ctx), dc)
	if err != nil {
		h.fail(ctx, w, "document status failed", err, "context", dc.Kind)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleReplaceDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, ok := pathID(w, r, id.ParseDocumentID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReplaceDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.service.ReplaceDocument(ctx, requestcontext.Actor(ctx), documentID, req.ref)
	if err != nil {
		h.fail(ctx, w, "replace document failed", err, "document_id", documentID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) HandleValidateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, ok := pathID(w, r, id.ParseDocumentID)
	if !ok {
		return
	}
	doc, err := h.service.ValidateDocument(ctx, requestcontext.Actor(ctx), documentID)
	if err != nil {
		h.fail(ctx, w, "validate document failed", err, "document_id", documentID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) HandleRejectDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, ok := pathID(w, r, id.ParseDocumentID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.service.RejectDocument(ctx, requestcontext.Actor(ctx), documentID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "reject document failed", err, "document_id", documentID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// -----------------------------------------------------------------------------
// Contracts
// -----------------------------------------------------------------------------

func (h *Handler) HandleCreateContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reservationID, ok := pathID(w, r, id.ParseReservationID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateContractRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	contract, err := h.service.CreateContract(ctx, requestcontext.Actor(ctx), reservationID, req.content)
	if err != nil {
		h.fail(ctx, w, "create contract failed", err, "reservation_id", reservationID)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, contract)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// fail logs the failure at a level matching its status and writes the error.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, kv ...any) {
	attrs := append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, kv...)
	if status := httputil.StatusForError(err); status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

// pathID parses the {id} URL parameter, writing a 400 on failure.
func pathID[T any](w http.ResponseWriter, r *http.Request, parse func(string) (T, error)) (T, bool) {
	v, err := parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return v, false
	}
	return v, true
}
