package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
)

type IntentRepository struct {
	db *sql.DB
}

func NewIntentRepository(db *sql.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

const selectIntent = `SELECT id, amount, currency, notes, external_order_id, state,
		external_payment_id, created_at, resolved_at
	FROM payment_intents`

func (r *IntentRepository) Save(ctx context.Context, p *intent.PaymentIntent) error {
	notes, err := json.Marshal(p.Notes)
	if err != nil {
		return err
	}

	var resolvedAt sql.NullInt64
	if p.ResolvedAt != nil {
		resolvedAt = sql.NullInt64{Int64: p.ResolvedAt.UnixNano(), Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO payment_intents
		 (id, amount, currency, notes, external_order_id, state, external_payment_id, created_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.AmountMinorUnits,
		p.Currency,
		string(notes),
		nullString(p.ExternalOrderID),
		string(p.State),
		nullString(p.ExternalPaymentID),
		p.CreatedAt.UnixNano(),
		resolvedAt,
	)
	return err
}

func (r *IntentRepository) FindByID(ctx context.Context, id string) (*intent.PaymentIntent, error) {
	return scanIntent(r.db.QueryRowContext(ctx, selectIntent+` WHERE id = ?`, id))
}

func (r *IntentRepository) FindByExternalOrderID(ctx context.Context, externalOrderID string) (*intent.PaymentIntent, error) {
	return scanIntent(r.db.QueryRowContext(ctx, selectIntent+` WHERE external_order_id = ?`, externalOrderID))
}

func (r *IntentRepository) AttachExternalOrder(ctx context.Context, id, externalOrderID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p, err := scanIntent(tx.QueryRowContext(ctx, selectIntent+` WHERE id = ?`, id))
	if err != nil {
		return err
	}
	if err := p.AttachOrder(externalOrderID); err != nil {
		return err
	}

	var owner string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM payment_intents WHERE external_order_id = ?`,
		externalOrderID,
	).Scan(&owner)
	switch {
	case err == nil && owner != id:
		return intent.ErrOrderIDConflict
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE payment_intents
		 SET external_order_id = ?
		 WHERE id = ? AND state = ?`,
		externalOrderID,
		id,
		string(intent.StateCreated),
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *IntentRepository) Resolve(ctx context.Context, id string, to intent.State, externalPaymentID string, at time.Time) error {
	if !to.Terminal() {
		return intent.ErrInvalidTransition
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_intents
		 SET state = ?, external_payment_id = ?, resolved_at = ?
		 WHERE id = ? AND state = ?`,
		string(to),
		externalPaymentID,
		at.UTC().UnixNano(),
		id,
		string(intent.StateCreated),
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// 0 rows = unknown id or already terminal
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return intent.ErrAlreadyResolved
}

func (r *IntentRepository) List(ctx context.Context) ([]*intent.PaymentIntent, error) {
	rows, err := r.db.QueryContext(ctx, selectIntent+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []*intent.PaymentIntent
	for rows.Next() {
		p, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, p)
	}

	return intents, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIntent(row scanner) (*intent.PaymentIntent, error) {
	var (
		p                 intent.PaymentIntent
		notes             string
		state             string
		externalOrderID   sql.NullString
		externalPaymentID sql.NullString
		createdAt         int64
		resolvedAt        sql.NullInt64
	)

	if err := row.Scan(
		&p.ID,
		&p.AmountMinorUnits,
		&p.Currency,
		&notes,
		&externalOrderID,
		&state,
		&externalPaymentID,
		&createdAt,
		&resolvedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, intent.ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(notes), &p.Notes); err != nil {
		return nil, fmt.Errorf("decode notes of intent %s: %w", p.ID, err)
	}

	p.State = intent.State(state)
	p.ExternalOrderID = externalOrderID.String
	p.ExternalPaymentID = externalPaymentID.String
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	if resolvedAt.Valid {
		t := time.Unix(0, resolvedAt.Int64).UTC()
		p.ResolvedAt = &t
	}

	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
