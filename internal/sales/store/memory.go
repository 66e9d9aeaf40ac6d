package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"immo/internal/sales/models"
	"immo/internal/sales/service"
	id "immo/pkg/domain"
	"immo/pkg/platform/sentinel"
)

type state struct {
	mu           sync.RWMutex
	units        map[id.UnitID]*models.Unit
	reservations map[id.ReservationID]*models.Reservation
	payments     map[id.PaymentID]*models.Payment
	contracts    map[id.ContractID]*models.Contract
	financings   map[id.FinancingID]*models.Financing
	installments map[id.InstallmentID]*models.Installment
	documents    map[id.DocumentID]*models.Document
}

// Memory is the single-instance store. Transactions are serialized by one
// lock and rolled back from an undo journal; values are copied on the way in
// and out so callers never alias stored records.
type Memory struct {
	*view
}

func NewMemory() *Memory {
	st := &state{
		units:        make(map[id.UnitID]*models.Unit),
		reservations: make(map[id.ReservationID]*models.Reservation),
		payments:     make(map[id.PaymentID]*models.Payment),
		contracts:    make(map[id.ContractID]*models.Contract),
		financings:   make(map[id.FinancingID]*models.Financing),
		installments: make(map[id.InstallmentID]*models.Installment),
		documents:    make(map[id.DocumentID]*models.Document),
	}
	return &Memory{view: &view{st: st}}
}

// RunInTx holds the store lock for the duration of fn.
func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context, store service.Store) error) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()

	tx := &view{st: m.st, inTx: true}
	if err := fn(ctx, tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

// PutUnit seeds the catalog.
func (m *Memory) PutUnit(u *models.Unit) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	m.st.units[u.ID] = clone(u)
}

type view struct {
	st   *state
	inTx bool
	undo []func()
}

func (v *view) rlock() func() {
	if v.inTx {
		return func() {}
	}
	v.st.mu.RLock()
	return v.st.mu.RUnlock
}

func (v *view) wlock() func() {
	if v.inTx {
		return func() {}
	}
	v.st.mu.Lock()
	return v.st.mu.Unlock
}

func put[K comparable, V any](v *view, m map[K]*V, k K, val *V) {
	if v.inTx {
		prev, existed := m[k]
		v.undo = append(v.undo, func() {
			if existed {
				m[k] = prev
			} else {
				delete(m, k)
			}
		})
	}
	m[k] = val
}

func clone[V any](p *V) *V {
	cp := *p
	return &cp
}

func cloneContract(c *models.Contract) *models.Contract {
	cp := *c
	cp.SignatureLog = slices.Clone(c.SignatureLog)
	return &cp
}

func get[K comparable, V any](m map[K]*V, k K) (*V, error) {
	val, ok := m[k]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(val), nil
}

func update[K comparable, V any](v *view, m map[K]*V, k K, val *V) error {
	if _, ok := m[k]; !ok {
		return sentinel.ErrNotFound
	}
	put(v, m, k, clone(val))
	return nil
}

// -----------------------------------------------------------------------------
// Units
// -----------------------------------------------------------------------------

func (v *view) GetUnit(_ context.Context, unitID id.UnitID) (*models.Unit, error) {
	defer v.rlock()()
	return get(v.st.units, unitID)
}

func (v *view) SetAvailability(_ context.Context, u *models.Unit) error {
	defer v.wlock()()
	return update(v, v.st.units, u.ID, u)
}

// -----------------------------------------------------------------------------
// Reservations
// -----------------------------------------------------------------------------

func (v *view) InsertReservation(_ context.Context, r *models.Reservation) error {
	defer v.wlock()()
	if r.IsActive() {
		for _, existing := range v.st.reservations {
			if existing.UnitID == r.UnitID && existing.IsActive() {
				return sentinel.ErrConflict
			}
		}
	}
	put(v, v.st.reservations, r.ID, clone(r))
	return nil
}

func (v *view) GetReservation(_ context.Context, reservationID id.ReservationID) (*models.Reservation, error) {
	defer v.rlock()()
	return get(v.st.reservations, reservationID)
}

func (v *view) FindActiveReservationByUnit(_ context.Context, unitID id.UnitID) (*models.Reservation, error) {
	defer v.rlock()()
	for _, r := range v.st.reservations {
		if r.UnitID == unitID && r.IsActive() {
			return clone(r), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (v *view) UpdateReservation(_ context.Context, r *models.Reservation) error {
	defer v.wlock()()
	return update(v, v.st.reservations, r.ID, r)
}

// -----------------------------------------------------------------------------
// Payments
// -----------------------------------------------------------------------------

func (v *view) InsertPayment(_ context.Context, p *models.Payment) error {
	defer v.wlock()()
	put(v, v.st.payments, p.ID, clone(p))
	return nil
}

func (v *view) GetPayment(_ context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	defer v.rlock()()
	return get(v.st.payments, paymentID)
}

func (v *view) ListPayments(_ context.Context, reservationID id.ReservationID) ([]*models.Payment, error) {
	defer v.rlock()()
	var out []*models.Payment
	for _, p := range v.st.payments {
		if p.ReservationID == reservationID {
			out = append(out, clone(p))
		}
	}
	slices.SortFunc(out, func(a, b *models.Payment) int {
		if c := a.RecordedAt.Compare(b.RecordedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (v *view) UpdatePayment(_ context.Context, p *models.Payment) error {
	defer v.wlock()()
	return update(v, v.st.payments, p.ID, p)
}

// -----------------------------------------------------------------------------
// Contracts
// -----------------------------------------------------------------------------

func (v *view) InsertContract(_ context.Context, c *models.Contract) error {
	defer v.wlock()()
	for _, existing := range v.st.contracts {
		if existing.ReservationID == c.ReservationID || existing.Number == c.Number {
			return sentinel.ErrConflict
		}
	}
	put(v, v.st.contracts, c.ID, cloneContract(c))
	return nil
}

func (v *view) GetContract(_ context.Context, contractID id.ContractID) (*models.Contract, error) {
	defer v.rlock()()
	c, ok := v.st.contracts[contractID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneContract(c), nil
}

func (v *view) FindContractByReservation(_ context.Context, reservationID id.ReservationID) (*models.Contract, error) {
	defer v.rlock()()
	for _, c := range v.st.contracts {
		if c.ReservationID == reservationID {
			return cloneContract(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (v *view) UpdateContract(_ context.Context, c *models.Contract) error {
	defer v.wlock()()
	if _, ok := v.st.contracts[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	put(v, v.st.contracts, c.ID, cloneContract(c))
	return nil
}

// -----------------------------------------------------------------------------
// Financing and installments
// -----------------------------------------------------------------------------

func (v *view) InsertFinancing(_ context.Context, f *models.Financing) error {
	defer v.wlock()()
	for _, existing := range v.st.financings {
		if existing.ReservationID == f.ReservationID {
			return sentinel.ErrConflict
		}
	}
	put(v, v.st.financings, f.ID, clone(f))
	return nil
}

func (v *view) GetFinancing(_ context.Context, financingID id.FinancingID) (*models.Financing, error) {
	defer v.rlock()()
	return get(v.st.financings, financingID)
}

func (v *view) FindFinancingByReservation(_ context.Context, reservationID id.ReservationID) (*models.Financing, error) {
	defer v.rlock()()
	for _, f := range v.st.financings {
		if f.ReservationID == reservationID {
			return clone(f), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (v *view) UpdateFinancing(_ context.Context, f *models.Financing) error {
	defer v.wlock()()
	return update(v, v.st.financings, f.ID, f)
}

func (v *view) InsertInstallments(_ context.Context, items []*models.Installment) error {
	defer v.wlock()()
	for _, i := range items {
		if _, exists := v.st.installments[i.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, i := range items {
		put(v, v.st.installments, i.ID, clone(i))
	}
	return nil
}

func (v *view) ListInstallments(_ context.Context, financingID id.FinancingID) ([]*models.Installment, error) {
	defer v.rlock()()
	var out []*models.Installment
	for _, i := range v.st.installments {
		if i.FinancingID == financingID {
			out = append(out, clone(i))
		}
	}
	slices.SortFunc(out, func(a, b *models.Installment) int { return cmp.Compare(a.Sequence, b.Sequence) })
	return out, nil
}

func (v *view) UpdateInstallment(_ context.Context, i *models.Installment) error {
	defer v.wlock()()
	return update(v, v.st.installments, i.ID, i)
}

// -----------------------------------------------------------------------------
// Documents
// -----------------------------------------------------------------------------

func (v *view) InsertDocument(_ context.Context, d *models.Document) error {
	defer v.wlock()()
	put(v, v.st.documents, d.ID, clone(d))
	return nil
}

func (v *view) GetDocument(_ context.Context, documentID id.DocumentID) (*models.Document, error) {
	defer v.rlock()()
	return get(v.st.documents, documentID)
}

func (v *view) ListDocuments(_ context.Context, dc models.DocumentContext) ([]*models.Document, error) {
	defer v.rlock()()
	var out []*models.Document
	for _, d := range v.st.documents {
		if d.Context == dc {
			out = append(out, clone(d))
		}
	}
	slices.SortFunc(out, func(a, b *models.Document) int {
		if c := a.UploadedAt.Compare(b.UploadedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (v *view) UpdateDocument(_ context.Context, d *models.Document) error {
	defer v.wlock()()
	return update(v, v.st.documents, d.ID, d)
}
