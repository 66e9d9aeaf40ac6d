package handler

import (
	"time"

	salesmodels "immo/internal/sales/models"
	"immo/internal/signature/models"
	id "immo/pkg/domain"
)

type IssueResponse struct {
	ContractID id.ContractID `json:"contract_id"`
	ExpiresIn  int64         `json:"expires_in"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// StatusResponse reports durations in whole seconds. RemainingValidity is
// null when no code is live.
type StatusResponse struct {
	ContractID        id.ContractID `json:"contract_id"`
	RemainingValidity *int64        `json:"remaining_validity"`
	Blocked           bool          `json:"blocked"`
	BlockRemaining    int64         `json:"block_remaining,omitempty"`
}

type SubmitResponse struct {
	Outcome      models.Outcome        `json:"outcome"`
	Contract     *salesmodels.Contract `json:"contract,omitempty"`
	AttemptsUsed int                   `json:"attempts_used,omitempty"`
	AttemptsLeft int                   `json:"attempts_left,omitempty"`
	RetryAfter   int64                 `json:"retry_after,omitempty"`
}
