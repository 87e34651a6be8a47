package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cafe-kiosk/internal/domain/statistics"
)

const createMailHistorySQL = `INSERT INTO mail_send_history (from_email, to_email, subject, content)
	VALUES ($1, $2, $3, $4) RETURNING id, created_at`

var _ statistics.HistoryRepository = (*MailHistoryRepository)(nil)

// MailHistoryRepository persists mail delivery records in PostgreSQL.
type MailHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewMailHistoryRepository returns a MailHistoryRepository over the given pool.
func NewMailHistoryRepository(pool *pgxpool.Pool) *MailHistoryRepository {
	return &MailHistoryRepository{pool: pool}
}

// Create persists a mail delivery record.
func (r *MailHistoryRepository) Create(ctx context.Context, h *statistics.MailSendHistory) error {
	err := db(ctx, r.pool).QueryRow(ctx, createMailHistorySQL,
		h.From, h.To, h.Subject, h.Content,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating mail history: %w", err)
	}
	return nil
}
