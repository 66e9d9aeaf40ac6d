// Package notify delivers signature codes to signers.
package notify

import (
	"context"
	"log/slog"

	"immo/internal/signature/models"
)

// Log records that a code was dispatched without ever writing the code. It
// stands in for an SMS or email gateway, which is an external collaborator.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (n *Log) SendSignatureCode(ctx context.Context, d models.CodeDelivery) error {
	n.logger.InfoContext(ctx, "signature code dispatched",
		"contract_id", d.ContractID,
		"client_id", d.ClientID,
		"expires_at", d.ExpiresAt,
		"code_length", len(d.Code),
	)
	return nil
}
