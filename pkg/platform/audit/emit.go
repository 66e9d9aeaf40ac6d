package audit

import (
	"context"
	"log/slog"

	"immo/pkg/attrs"
	id "immo/pkg/domain"
	"immo/pkg/requestcontext"
)

// Recorder accepts events without blocking the caller.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Emit writes an audit log line and forwards the event to rec when set.
// kv pairs become both log attributes and the event payload.
func Emit(ctx context.Context, logger *slog.Logger, rec Recorder, actor id.Actor, event AuditEvent, subjectType, subjectID string, kv ...any) {
	requestID := requestcontext.RequestID(ctx)
	args := append([]any{"subject_type", subjectType, "subject_id", subjectID}, kv...)
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	args = append(args, "event", string(event), "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}

	if rec == nil {
		return
	}
	roles := make([]string, len(actor.Roles))
	for i, r := range actor.Roles {
		roles[i] = string(r)
	}
	var actorID string
	if !actor.IsAnonymous() {
		actorID = actor.UserID.String()
	}
	rec.Record(ctx, Event{
		Category:    event.Category(),
		Timestamp:   requestcontext.Now(ctx),
		ActorID:     actorID,
		ActorRoles:  roles,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Action:      string(event),
		Payload:     attrs.ToMap(kv),
		IP:          requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
		RequestID:   requestID,
	})
}
