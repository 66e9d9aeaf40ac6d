package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"immo/internal/sales/documents"
	"immo/internal/sales/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	audit "immo/pkg/platform/audit"
	"immo/pkg/requestcontext"
)

const subjectDocument = "document"

// DocumentStatusView is the gate seen by one transaction context.
type DocumentStatusView struct {
	Context  models.DocumentContext `json:"context"`
	Items    []documents.Item       `json:"items"`
	Complete bool                   `json:"complete"`
}

// UploadDocument attaches a file to a checklist entry. dc names the context
// kind and either the reservation or the financing; the owning reservation
// is resolved for financing contexts. Re-uploading a single-instance type
// replaces the previous document in place.
func (s *Service) UploadDocument(ctx context.Context, actor id.Actor, dc models.DocumentContext, typ models.DocumentType, file models.FileRef) (_ *models.Document, err error) {
	ctx, done := s.observe(ctx, "upload_document", attribute.String("context", string(dc.Kind)), attribute.String("type", string(typ)))
	defer done(&err)

	if err := requireRoles(actor, anyRole...); err != nil {
		return nil, err
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	dc, err = s.resolveContext(ctx, dc)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var (
		doc      *models.Document
		replaced bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, dc.ReservationID)
		if err != nil {
			return err
		}
		if err := requireActive(r); err != nil {
			return err
		}
		if err := requireOpenFinancing(ctx, st, dc); err != nil {
			return err
		}
		existing, err := st.ListDocuments(ctx, dc)
		if err != nil {
			return storeErr(err, "documents")
		}
		prior, err := documents.PlanUpload(dc.Kind, typ, existing)
		if err != nil {
			return err
		}
		if prior != nil {
			prior.ApplyReupload(file, now)
			if err := st.UpdateDocument(ctx, prior); err != nil {
				return storeErr(err, "document")
			}
			doc, replaced = prior, true
			return nil
		}
		d := models.NewDocument(id.DocumentID(newID()), dc, typ, file, now)
		if err := st.InsertDocument(ctx, d); err != nil {
			return storeErr(err, "document")
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	event := audit.EventDocumentUploaded
	if replaced {
		event = audit.EventDocumentReplaced
	}
	s.logAudit(ctx, actor, event, subjectDocument, doc.ID.String(),
		"context", string(dc.Kind), "reservation_id", dc.ReservationID, "type", string(typ), "file_key", file.Key)
	return doc, nil
}

// ReplaceDocument swaps the file of any document, including one of several
// salary slips, and resets it to pending.
func (s *Service) ReplaceDocument(ctx context.Context, actor id.Actor, documentID id.DocumentID, file models.FileRef) (_ *models.Document, err error) {
	ctx, done := s.observe(ctx, "replace_document", attribute.String("document_id", documentID.String()))
	defer done(&err)

	if err := requireRoles(actor, anyRole...); err != nil {
		return nil, err
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return s.mutateDocument(ctx, actor, documentID, audit.EventDocumentReplaced, func(ctx context.Context, st Store, r *models.Reservation, d *models.Document) (bool, error) {
		if err := requireActive(r); err != nil {
			return false, err
		}
		if err := requireOpenFinancing(ctx, st, d.Context); err != nil {
			return false, err
		}
		d.ApplyReupload(file, requestcontext.Now(ctx))
		return true, nil
	}, "file_key", file.Key)
}

// ValidateDocument marks a pending document validated. Validating an already
// validated document is a no-op. Staff only.
func (s *Service) ValidateDocument(ctx context.Context, actor id.Actor, documentID id.DocumentID) (_ *models.Document, err error) {
	ctx, done := s.observe(ctx, "validate_document", attribute.String("document_id", documentID.String()))
	defer done(&err)

	if err := requireRoles(actor, id.StaffRoles...); err != nil {
		return nil, err
	}
	return s.mutateDocument(ctx, actor, documentID, audit.EventDocumentValidated, func(_ context.Context, _ Store, _ *models.Reservation, d *models.Document) (bool, error) {
		already, err := d.CanValidate()
		if err != nil || already {
			return false, err
		}
		d.ApplyValidation(actor.UserID, requestcontext.Now(ctx))
		return true, nil
	})
}

// RejectDocument marks a document rejected with a mandatory reason. Staff only.
func (s *Service) RejectDocument(ctx context.Context, actor id.Actor, documentID id.DocumentID, reason string) (_ *models.Document, err error) {
	ctx, done := s.observe(ctx, "reject_document", attribute.String("document_id", documentID.String()))
	defer done(&err)

	if err := requireRoles(actor, id.StaffRoles...); err != nil {
		return nil, err
	}
	return s.mutateDocument(ctx, actor, documentID, audit.EventDocumentRejected, func(_ context.Context, _ Store, _ *models.Reservation, d *models.Document) (bool, error) {
		if err := d.CanReject(reason); err != nil {
			return false, err
		}
		d.ApplyRejection(actor.UserID, reason, requestcontext.Now(ctx))
		return true, nil
	}, "reason", reason)
}

// DocumentStatus evaluates the checklist of one context.
func (s *Service) DocumentStatus(ctx context.Context, actor id.Actor, dc models.DocumentContext) (_ *DocumentStatusView, err error) {
	ctx, done := s.observe(ctx, "document_status", attribute.String("context", string(dc.Kind)))
	defer done(&err)

	if err := requireRoles(actor, anyRole...); err != nil {
		return nil, err
	}
	dc, err = s.resolveContext(ctx, dc)
	if err != nil {
		return nil, err
	}
	r, err := s.store.GetReservation(ctx, dc.ReservationID)
	if err != nil {
		return nil, storeErr(err, "reservation")
	}
	if err := requireOwner(actor, r); err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocuments(ctx, dc)
	if err != nil {
		return nil, storeErr(err, "documents")
	}
	return &DocumentStatusView{
		Context:  dc,
		Items:    documents.Evaluate(dc.Kind, docs),
		Complete: documents.IsComplete(dc.Kind, docs),
	}, nil
}

// mutateDocument runs apply on a locked document. apply reports whether the
// document changed; unchanged documents are neither written nor audited.
func (s *Service) mutateDocument(ctx context.Context, actor id.Actor, documentID id.DocumentID, event audit.AuditEvent,
	apply func(ctx context.Context, st Store, r *models.Reservation, d *models.Document) (bool, error), kv ...any) (*models.Document, error) {
	current, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, storeErr(err, "document")
	}

	var (
		doc     *models.Document
		changed bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, current.Context.ReservationID)
		if err != nil {
			return err
		}
		d, err := st.GetDocument(ctx, documentID)
		if err != nil {
			return storeErr(err, "document")
		}
		if changed, err = apply(ctx, st, r, d); err != nil {
			return err
		}
		if changed {
			if err := st.UpdateDocument(ctx, d); err != nil {
				return storeErr(err, "document")
			}
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	if changed {
		args := append([]any{"context", string(doc.Context.Kind), "reservation_id", doc.Context.ReservationID, "type", string(doc.Type)}, kv...)
		s.logAudit(ctx, actor, event, subjectDocument, documentID.String(), args...)
	}
	return doc, nil
}

// requireOpenFinancing refuses financing documents once the financing is
// cancelled or refused. Reservation documents pass.
func requireOpenFinancing(ctx context.Context, st Store, dc models.DocumentContext) error {
	if dc.Kind != models.ContextFinancing {
		return nil
	}
	f, err := st.GetFinancing(ctx, dc.FinancingID)
	if err != nil {
		return storeErr(err, "financing")
	}
	if f.Status == models.FinancingCancelled || f.Status == models.FinancingRefused {
		return dErrors.New(dErrors.CodeConflict, "financing is "+string(f.Status))
	}
	return nil
}

// resolveContext fills the owning reservation of a financing context.
func (s *Service) resolveContext(ctx context.Context, dc models.DocumentContext) (models.DocumentContext, error) {
	switch dc.Kind {
	case models.ContextReservation:
		return models.ReservationContext(dc.ReservationID), nil
	case models.ContextFinancing:
		reservationID, err := s.financingReservation(ctx, dc.FinancingID)
		if err != nil {
			return dc, err
		}
		return models.FinancingContext(reservationID, dc.FinancingID), nil
	default:
		return dc, dErrors.Validation("context", "unknown document context")
	}
}
