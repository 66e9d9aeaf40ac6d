package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"immo/internal/sales/models"
	id "immo/pkg/domain"
	"immo/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists the sales aggregates in PostgreSQL.
// This store is pure I/O: lifecycle rules belong to the models and the service.
type PostgresStore struct {
	db      dbExecutor
	locking bool
}

// NewPostgres constructs a non-transactional store for reads.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to tx; every Get* locks its row with FOR UPDATE.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx, locking: true}
}

func (s *PostgresStore) lockClause() string {
	if s.locking {
		return " FOR UPDATE"
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

func mapWriteErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mapReadErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullUser(u *id.UserID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*u), Valid: true}
}

func userPtr(n uuid.NullUUID) *id.UserID {
	if !n.Valid {
		return nil
	}
	u := id.UserID(n.UUID)
	return &u
}

func nullFinancing(f id.FinancingID) uuid.NullUUID {
	if f.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(f), Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

// -----------------------------------------------------------------------------
// Units
// -----------------------------------------------------------------------------

func (s *PostgresStore) GetUnit(ctx context.Context, unitID id.UnitID) (*models.Unit, error) {
	query := `SELECT id, price, availability, updated_at FROM units WHERE id = $1` + s.lockClause()
	var (
		u   models.Unit
		uid uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(unitID)).Scan(&uid, &u.Price, &u.Availability, &u.UpdatedAt)
	if err != nil {
		return nil, mapReadErr("get unit", err)
	}
	u.ID = id.UnitID(uid)
	return &u, nil
}

func (s *PostgresStore) SetAvailability(ctx context.Context, u *models.Unit) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE units SET availability = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(u.ID), string(u.Availability), u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set unit availability: %w", err)
	}
	return expectOne("set unit availability", res)
}

// UpsertUnit seeds the catalog view.
func (s *PostgresStore) UpsertUnit(ctx context.Context, u *models.Unit) error {
	query := `
		INSERT INTO units (id, price, availability, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET price = EXCLUDED.price
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(u.ID), u.Price, string(u.Availability), u.UpdatedAt); err != nil {
		return fmt.Errorf("upsert unit: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Reservations
// -----------------------------------------------------------------------------

const reservationColumns = `id, unit_id, client_id, status, deposit, created_at, updated_at,
	confirmed_by, confirmed_at, cancellation_reason, cancelled_by, cancelled_at,
	expiry_reason, expired_by, expired_at`

func scanReservation(row scanner) (*models.Reservation, error) {
	var (
		r                                   models.Reservation
		rid, uid, cid                       uuid.UUID
		confirmedBy, cancelledBy, expiredBy uuid.NullUUID
	)
	err := row.Scan(&rid, &uid, &cid, &r.Status, &r.Deposit, &r.CreatedAt, &r.UpdatedAt,
		&confirmedBy, &r.ConfirmedAt, &r.CancellationReason, &cancelledBy, &r.CancelledAt,
		&r.ExpiryReason, &expiredBy, &r.ExpiredAt)
	if err != nil {
		return nil, err
	}
	r.ID = id.ReservationID(rid)
	r.UnitID = id.UnitID(uid)
	r.ClientID = id.ClientID(cid)
	r.ConfirmedBy = userPtr(confirmedBy)
	r.CancelledBy = userPtr(cancelledBy)
	r.ExpiredBy = userPtr(expiredBy)
	return &r, nil
}

func (s *PostgresStore) InsertReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.UnitID), uuid.UUID(r.ClientID), string(r.Status), r.Deposit, r.CreatedAt, r.UpdatedAt,
		nullUser(r.ConfirmedBy), r.ConfirmedAt, r.CancellationReason, nullUser(r.CancelledBy), r.CancelledAt,
		r.ExpiryReason, nullUser(r.ExpiredBy), r.ExpiredAt,
	)
	if err != nil {
		return mapWriteErr("insert reservation", err)
	}
	return nil
}

func (s *PostgresStore) GetReservation(ctx context.Context, reservationID id.ReservationID) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1` + s.lockClause()
	r, err := scanReservation(s.db.QueryRowContext(ctx, query, uuid.UUID(reservationID)))
	if err != nil {
		return nil, mapReadErr("get reservation", err)
	}
	return r, nil
}

func (s *PostgresStore) FindActiveReservationByUnit(ctx context.Context, unitID id.UnitID) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE unit_id = $1 AND status IN ('in_progress', 'confirmed')` + s.lockClause()
	r, err := scanReservation(s.db.QueryRowContext(ctx, query, uuid.UUID(unitID)))
	if err != nil {
		return nil, mapReadErr("find active reservation", err)
	}
	return r, nil
}

func (s *PostgresStore) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		UPDATE reservations SET
			status = $2, updated_at = $3,
			confirmed_by = $4, confirmed_at = $5,
			cancellation_reason = $6, cancelled_by = $7, cancelled_at = $8,
			expiry_reason = $9, expired_by = $10, expired_at = $11
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID), string(r.Status), r.UpdatedAt,
		nullUser(r.ConfirmedBy), r.ConfirmedAt,
		r.CancellationReason, nullUser(r.CancelledBy), r.CancelledAt,
		r.ExpiryReason, nullUser(r.ExpiredBy), r.ExpiredAt,
	)
	if err != nil {
		return mapWriteErr("update reservation", err)
	}
	return expectOne("update reservation", res)
}

// -----------------------------------------------------------------------------
// Payments
// -----------------------------------------------------------------------------

const paymentColumns = `id, reservation_id, amount, method, status, recorded_at, updated_at,
	validated_by, validated_at, rejection_reason`

func scanPayment(row scanner) (*models.Payment, error) {
	var (
		p           models.Payment
		pid, rid    uuid.UUID
		validatedBy uuid.NullUUID
	)
	err := row.Scan(&pid, &rid, &p.Amount, &p.Method, &p.Status, &p.RecordedAt, &p.UpdatedAt,
		&validatedBy, &p.ValidatedAt, &p.RejectionReason)
	if err != nil {
		return nil, err
	}
	p.ID = id.PaymentID(pid)
	p.ReservationID = id.ReservationID(rid)
	p.ValidatedBy = userPtr(validatedBy)
	return &p, nil
}

func (s *PostgresStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.ReservationID), p.Amount, string(p.Method), string(p.Status), p.RecordedAt, p.UpdatedAt,
		nullUser(p.ValidatedBy), p.ValidatedAt, p.RejectionReason,
	)
	if err != nil {
		return mapWriteErr("insert payment", err)
	}
	return nil
}

func (s *PostgresStore) GetPayment(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1` + s.lockClause()
	p, err := scanPayment(s.db.QueryRowContext(ctx, query, uuid.UUID(paymentID)))
	if err != nil {
		return nil, mapReadErr("get payment", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPayments(ctx context.Context, reservationID id.ReservationID) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = $1 ORDER BY recorded_at, id` + s.lockClause()
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(reservationID))
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdatePayment(ctx context.Context, p *models.Payment) error {
	query := `
		UPDATE payments SET status = $2, updated_at = $3, validated_by = $4, validated_at = $5, rejection_reason = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), string(p.Status), p.UpdatedAt, nullUser(p.ValidatedBy), p.ValidatedAt, p.RejectionReason)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return expectOne("update payment", res)
}

// -----------------------------------------------------------------------------
// Contracts
// -----------------------------------------------------------------------------

const contractColumns = `id, reservation_id, number, status, content_hash, created_at, updated_at,
	otp_issued_at, signed_at, signature_log`

func scanContract(row scanner) (*models.Contract, error) {
	var (
		c        models.Contract
		cid, rid uuid.UUID
		logJSON  []byte
	)
	err := row.Scan(&cid, &rid, &c.Number, &c.Status, &c.ContentHash, &c.CreatedAt, &c.UpdatedAt,
		&c.OTPIssuedAt, &c.SignedAt, &logJSON)
	if err != nil {
		return nil, err
	}
	c.ID = id.ContractID(cid)
	c.ReservationID = id.ReservationID(rid)
	if len(logJSON) > 0 {
		if err := json.Unmarshal(logJSON, &c.SignatureLog); err != nil {
			return nil, fmt.Errorf("decode signature log: %w", err)
		}
	}
	return &c, nil
}

func encodeSignatureLog(entries []models.SignatureLogEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.SignatureLogEntry{}
	}
	return json.Marshal(entries)
}

func (s *PostgresStore) InsertContract(ctx context.Context, c *models.Contract) error {
	logJSON, err := encodeSignatureLog(c.SignatureLog)
	if err != nil {
		return fmt.Errorf("encode signature log: %w", err)
	}
	query := `
		INSERT INTO contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.ReservationID), c.Number, string(c.Status), c.ContentHash, c.CreatedAt, c.UpdatedAt,
		c.OTPIssuedAt, c.SignedAt, logJSON,
	)
	if err != nil {
		return mapWriteErr("insert contract", err)
	}
	return nil
}

func (s *PostgresStore) GetContract(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1` + s.lockClause()
	c, err := scanContract(s.db.QueryRowContext(ctx, query, uuid.UUID(contractID)))
	if err != nil {
		return nil, mapReadErr("get contract", err)
	}
	return c, nil
}

func (s *PostgresStore) FindContractByReservation(ctx context.Context, reservationID id.ReservationID) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE reservation_id = $1` + s.lockClause()
	c, err := scanContract(s.db.QueryRowContext(ctx, query, uuid.UUID(reservationID)))
	if err != nil {
		return nil, mapReadErr("find contract", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateContract(ctx context.Context, c *models.Contract) error {
	logJSON, err := encodeSignatureLog(c.SignatureLog)
	if err != nil {
		return fmt.Errorf("encode signature log: %w", err)
	}
	query := `
		UPDATE contracts SET status = $2, updated_at = $3, otp_issued_at = $4, signed_at = $5, signature_log = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), string(c.Status), c.UpdatedAt, c.OTPIssuedAt, c.SignedAt, logJSON)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	return expectOne("update contract", res)
}

// -----------------------------------------------------------------------------
// Financing and installments
// -----------------------------------------------------------------------------

const financingColumns = `id, reservation_id, bank_id, type, amount, status, created_at, updated_at`

func scanFinancing(row scanner) (*models.Financing, error) {
	var (
		f             models.Financing
		fid, rid, bid uuid.UUID
	)
	if err := row.Scan(&fid, &rid, &bid, &f.Type, &f.Amount, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.ID = id.FinancingID(fid)
	f.ReservationID = id.ReservationID(rid)
	f.BankID = id.BankID(bid)
	return &f, nil
}

func (s *PostgresStore) InsertFinancing(ctx context.Context, f *models.Financing) error {
	query := `INSERT INTO financings (` + financingColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(f.ID), uuid.UUID(f.ReservationID), uuid.UUID(f.BankID), string(f.Type), f.Amount, string(f.Status), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return mapWriteErr("insert financing", err)
	}
	return nil
}

func (s *PostgresStore) GetFinancing(ctx context.Context, financingID id.FinancingID) (*models.Financing, error) {
	query := `SELECT ` + financingColumns + ` FROM financings WHERE id = $1` + s.lockClause()
	f, err := scanFinancing(s.db.QueryRowContext(ctx, query, uuid.UUID(financingID)))
	if err != nil {
		return nil, mapReadErr("get financing", err)
	}
	return f, nil
}

func (s *PostgresStore) FindFinancingByReservation(ctx context.Context, reservationID id.ReservationID) (*models.Financing, error) {
	query := `SELECT ` + financingColumns + ` FROM financings WHERE reservation_id = $1` + s.lockClause()
	f, err := scanFinancing(s.db.QueryRowContext(ctx, query, uuid.UUID(reservationID)))
	if err != nil {
		return nil, mapReadErr("find financing", err)
	}
	return f, nil
}

func (s *PostgresStore) UpdateFinancing(ctx context.Context, f *models.Financing) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE financings SET status = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(f.ID), string(f.Status), f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update financing: %w", err)
	}
	return expectOne("update financing", res)
}

const installmentColumns = `id, financing_id, sequence, amount, due_date, status, created_at, updated_at`

// InsertInstallments writes the whole schedule in one statement via unnest.
func (s *PostgresStore) InsertInstallments(ctx context.Context, items []*models.Installment) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	financings := make([]string, len(items))
	sequences := make([]int64, len(items))
	amounts := make([]string, len(items))
	dues := make([]string, len(items))
	statuses := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID.String()
		financings[i] = it.FinancingID.String()
		sequences[i] = int64(it.Sequence)
		amounts[i] = it.Amount.StringFixed(2)
		dues[i] = it.DueDate.UTC().Format(time.RFC3339Nano)
		statuses[i] = string(it.Status)
	}
	createdAt := items[0].CreatedAt
	query := `
		INSERT INTO installments (` + installmentColumns + `)
		SELECT i::uuid, f::uuid, seq, amt::numeric, due::timestamptz, st, $7, $7
		FROM unnest($1::text[], $2::text[], $3::bigint[], $4::text[], $5::text[], $6::text[]) AS t(i, f, seq, amt, due, st)
	`
	_, err := s.db.ExecContext(ctx, query,
		pq.Array(ids), pq.Array(financings), pq.Array(sequences), pq.Array(amounts), pq.Array(dues), pq.Array(statuses), createdAt)
	if err != nil {
		return mapWriteErr("insert installments", err)
	}
	return nil
}

func (s *PostgresStore) ListInstallments(ctx context.Context, financingID id.FinancingID) ([]*models.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE financing_id = $1 ORDER BY sequence` + s.lockClause()
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(financingID))
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var out []*models.Installment
	for rows.Next() {
		var (
			it       models.Installment
			iid, fid uuid.UUID
		)
		if err := rows.Scan(&iid, &fid, &it.Sequence, &it.Amount, &it.DueDate, &it.Status, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		it.ID = id.InstallmentID(iid)
		it.FinancingID = id.FinancingID(fid)
		out = append(out, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateInstallment(ctx context.Context, it *models.Installment) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE installments SET status = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(it.ID), string(it.Status), it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update installment: %w", err)
	}
	return expectOne("update installment", res)
}

// -----------------------------------------------------------------------------
// Documents
// -----------------------------------------------------------------------------

const documentColumns = `id, context_kind, reservation_id, financing_id, type, status,
	file_key, file_content_type, file_size, uploaded_at, updated_at,
	rejection_reason, verified_by, verified_at`

func scanDocument(row scanner) (*models.Document, error) {
	var (
		d          models.Document
		did, rid   uuid.UUID
		fid        uuid.NullUUID
		verifiedBy uuid.NullUUID
	)
	err := row.Scan(&did, &d.Context.Kind, &rid, &fid, &d.Type, &d.Status,
		&d.File.Key, &d.File.ContentType, &d.File.Size, &d.UploadedAt, &d.UpdatedAt,
		&d.RejectionReason, &verifiedBy, &d.VerifiedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DocumentID(did)
	d.Context.ReservationID = id.ReservationID(rid)
	if fid.Valid {
		d.Context.FinancingID = id.FinancingID(fid.UUID)
	}
	d.VerifiedBy = userPtr(verifiedBy)
	return &d, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), string(d.Context.Kind), uuid.UUID(d.Context.ReservationID), nullFinancing(d.Context.FinancingID),
		string(d.Type), string(d.Status), d.File.Key, d.File.ContentType, d.File.Size, d.UploadedAt, d.UpdatedAt,
		d.RejectionReason, nullUser(d.VerifiedBy), d.VerifiedAt,
	)
	if err != nil {
		return mapWriteErr("insert document", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1` + s.lockClause()
	d, err := scanDocument(s.db.QueryRowContext(ctx, query, uuid.UUID(documentID)))
	if err != nil {
		return nil, mapReadErr("get document", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, dc models.DocumentContext) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE context_kind = $1 AND reservation_id = $2 AND financing_id IS NOT DISTINCT FROM $3
		ORDER BY uploaded_at, id` + s.lockClause()
	rows, err := s.db.QueryContext(ctx, query, string(dc.Kind), uuid.UUID(dc.ReservationID), nullFinancing(dc.FinancingID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, d *models.Document) error {
	query := `
		UPDATE documents SET
			status = $2, file_key = $3, file_content_type = $4, file_size = $5,
			uploaded_at = $6, updated_at = $7, rejection_reason = $8, verified_by = $9, verified_at = $10
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), string(d.Status), d.File.Key, d.File.ContentType, d.File.Size,
		d.UploadedAt, d.UpdatedAt, d.RejectionReason, nullUser(d.VerifiedBy), d.VerifiedAt)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return expectOne("update document", res)
}
