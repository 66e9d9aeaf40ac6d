package handler

import "immo/internal/sales/models"

// InstallmentsResponse wraps the generated schedule.
type InstallmentsResponse struct {
	Installments []*models.Installment `json:"installments"`
}
