package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
)

// Queryable is the subset of pgxpool.Pool and pgx.Tx the repositories use.
type Queryable interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}

type IntentRepository struct {
	db Queryable
}

func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{db: pool}
}

const selectIntent = `SELECT id, amount, currency, notes, external_order_id, state,
		external_payment_id, created_at, resolved_at
	FROM payment_intents`

func (r *IntentRepository) Save(ctx context.Context, p *intent.PaymentIntent) error {
	notes, err := json.Marshal(p.Notes)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO payment_intents
		 (id, amount, currency, notes, external_order_id, state, external_payment_id, created_at, resolved_at)
		 VALUES ($1, $2, $3, $4::jsonb, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9)`,
		p.ID,
		p.AmountMinorUnits,
		p.Currency,
		string(notes),
		p.ExternalOrderID,
		string(p.State),
		p.ExternalPaymentID,
		p.CreatedAt,
		p.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment intent: %w", err)
	}
	return nil
}

func (r *IntentRepository) FindByID(ctx context.Context, id string) (*intent.PaymentIntent, error) {
	return scanIntent(r.db.QueryRow(ctx, selectIntent+` WHERE id = $1`, id))
}

func (r *IntentRepository) FindByExternalOrderID(ctx context.Context, externalOrderID string) (*intent.PaymentIntent, error) {
	return scanIntent(r.db.QueryRow(ctx, selectIntent+` WHERE external_order_id = $1`, externalOrderID))
}

func (r *IntentRepository) AttachExternalOrder(ctx context.Context, id, externalOrderID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payment_intents
		 SET external_order_id = $1
		 WHERE id = $2 AND state = 'created' AND external_order_id IS NULL`,
		externalOrderID,
		id,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return intent.ErrOrderIDConflict
		}
		return fmt.Errorf("attach external order: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// nothing updated: replay the rule on the stored row to pick the error
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return p.AttachOrder(externalOrderID)
}

func (r *IntentRepository) Resolve(ctx context.Context, id string, to intent.State, externalPaymentID string, at time.Time) error {
	if !to.Terminal() {
		return intent.ErrInvalidTransition
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE payment_intents
		 SET state = $1, external_payment_id = $2, resolved_at = $3
		 WHERE id = $4 AND state = 'created'`,
		string(to),
		externalPaymentID,
		at.UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("resolve payment intent: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return intent.ErrAlreadyResolved
}

func (r *IntentRepository) List(ctx context.Context) ([]*intent.PaymentIntent, error) {
	rows, err := r.db.Query(ctx, selectIntent+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying payment intents: %w", err)
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

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return intents, nil
}

func scanIntent(row pgx.Row) (*intent.PaymentIntent, error) {
	var (
		p                 intent.PaymentIntent
		notes             []byte
		state             string
		externalOrderID   *string
		externalPaymentID *string
		resolvedAt        *time.Time
	)

	err := row.Scan(
		&p.ID,
		&p.AmountMinorUnits,
		&p.Currency,
		&notes,
		&externalOrderID,
		&state,
		&externalPaymentID,
		&p.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, intent.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning payment intent: %w", err)
	}

	if err := json.Unmarshal(notes, &p.Notes); err != nil {
		return nil, fmt.Errorf("decode notes of intent %s: %w", p.ID, err)
	}

	p.State = intent.State(state)
	if externalOrderID != nil {
		p.ExternalOrderID = *externalOrderID
	}
	if externalPaymentID != nil {
		p.ExternalPaymentID = *externalPaymentID
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if resolvedAt != nil {
		t := resolvedAt.UTC()
		p.ResolvedAt = &t
	}

	return &p, nil
}
