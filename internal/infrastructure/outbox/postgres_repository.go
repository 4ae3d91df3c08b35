package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Save(ctx context.Context, evt OutboxEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, published, created_at)
		VALUES ($1, $2, $3::jsonb, FALSE, $4)
	`,
		evt.ID,
		string(evt.Type),
		string(evt.Payload),
		evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindUnpublished(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, payload, published, created_at
		FROM outbox_events
		WHERE NOT published
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var (
			evt OutboxEvent
			typ string
		)
		if err := rows.Scan(&evt.ID, &typ, &evt.Payload, &evt.Published, &evt.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning outbox event: %w", err)
		}
		evt.Type = event.Type(typ)
		events = append(events, evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return events, nil
}

func (r *PostgresRepository) MarkPublished(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE outbox_events SET published = TRUE WHERE id = $1`, id)
	return err
}
