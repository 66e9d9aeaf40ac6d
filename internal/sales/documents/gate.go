// Package documents implements the document gate: fixed per-context checklists
// and the completeness rules that guard downstream transitions.
package documents

import (
	"strconv"

	"immo/internal/sales/models"
	dErrors "immo/pkg/domain-errors"
)

// Requirement is one checklist entry. Min documents must be validated for the
// entry to be satisfied; at most Max may be uploaded.
type Requirement struct {
	Type models.DocumentType `json:"type"`
	Min  int                 `json:"min"`
	Max  int                 `json:"max"`
}

func (r Requirement) MultiInstance() bool { return r.Max > 1 }

var checklists = map[models.DocumentContextKind][]Requirement{
	models.ContextReservation: {
		{Type: models.DocIdentityCard, Min: 1, Max: 1},
		{Type: models.DocPhoto, Min: 1, Max: 1},
		{Type: models.DocProofOfResidence, Min: 1, Max: 1},
	},
	models.ContextFinancing: {
		{Type: models.DocBrochure, Min: 1, Max: 1},
		{Type: models.DocIdentityCard, Min: 1, Max: 1},
		{Type: models.DocSalarySlip, Min: 1, Max: 3},
		{Type: models.DocBankAccountProof, Min: 1, Max: 1},
		{Type: models.DocEmployerAttestation, Min: 1, Max: 1},
	},
}

// Checklist returns the ordered requirements for a context kind.
func Checklist(kind models.DocumentContextKind) []Requirement {
	return append([]Requirement(nil), checklists[kind]...)
}

func Lookup(kind models.DocumentContextKind, typ models.DocumentType) (Requirement, bool) {
	for _, req := range checklists[kind] {
		if req.Type == typ {
			return req, true
		}
	}
	return Requirement{}, false
}

// CurrentStatus summarizes one checklist entry. "missing" means nothing was uploaded.
type CurrentStatus string

const (
	StatusMissing   CurrentStatus = "missing"
	StatusPending   CurrentStatus = CurrentStatus(models.DocumentPending)
	StatusValidated CurrentStatus = CurrentStatus(models.DocumentValidated)
	StatusRejected  CurrentStatus = CurrentStatus(models.DocumentRejected)
)

// Item is the gate view of one checklist entry.
type Item struct {
	Type      models.DocumentType `json:"type"`
	Status    CurrentStatus       `json:"status"`
	Required  int                 `json:"required"`
	Validated int                 `json:"validated"`
	Uploaded  int                 `json:"uploaded"`
}

func (i Item) Satisfied() bool { return i.Validated >= i.Required }

// Evaluate returns one Item per checklist entry, in checklist order.
func Evaluate(kind models.DocumentContextKind, docs []*models.Document) []Item {
	reqs := checklists[kind]
	items := make([]Item, 0, len(reqs))
	for _, req := range reqs {
		item := Item{Type: req.Type, Required: req.Min}
		var pending, rejected int
		for _, d := range docs {
			if d.Type != req.Type {
				continue
			}
			item.Uploaded++
			switch d.Status {
			case models.DocumentValidated:
				item.Validated++
			case models.DocumentPending:
				pending++
			case models.DocumentRejected:
				rejected++
			}
		}
		switch {
		case item.Validated >= req.Min:
			item.Status = StatusValidated
		case pending > 0:
			item.Status = StatusPending
		case rejected > 0:
			item.Status = StatusRejected
		default:
			item.Status = StatusMissing
		}
		items = append(items, item)
	}
	return items
}

// IsComplete is true iff every requirement has at least Min validated documents.
func IsComplete(kind models.DocumentContextKind, docs []*models.Document) bool {
	for _, item := range Evaluate(kind, docs) {
		if !item.Satisfied() {
			return false
		}
	}
	return true
}

// Missing lists unsatisfied entries with their current status. It is advisory.
func Missing(kind models.DocumentContextKind, docs []*models.Document) []Item {
	var out []Item
	for _, item := range Evaluate(kind, docs) {
		if !item.Satisfied() {
			out = append(out, item)
		}
	}
	return out
}

// PlanUpload decides how a new upload lands. For single-instance types an
// existing document is returned for in-place replacement; multi-instance
// types get a new document until Max is reached.
func PlanUpload(kind models.DocumentContextKind, typ models.DocumentType, existing []*models.Document) (replace *models.Document, err error) {
	req, ok := Lookup(kind, typ)
	if !ok {
		return nil, dErrors.Validation("type", "not part of the "+string(kind)+" checklist")
	}
	var count int
	for _, d := range existing {
		if d.Type != typ {
			continue
		}
		if !req.MultiInstance() {
			return d, nil
		}
		count++
	}
	if count >= req.Max {
		return nil, dErrors.Validation("type", "at most "+strconv.Itoa(req.Max)+" documents of this type; replace an existing one")
	}
	return nil, nil
}
