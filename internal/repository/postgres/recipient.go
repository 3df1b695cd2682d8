package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-engine/internal/repository"
)

type recipientResolver struct {
	db *sqlx.DB
}

func NewRecipientResolver(db *sqlx.DB) repository.RecipientResolver {
	return &recipientResolver{db: db}
}

func (r *recipientResolver) UserEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	var email string
	query := `SELECT email FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &email, query, userID); err != nil {
		return "", fmt.Errorf("failed to resolve user email: %w", err)
	}
	return email, nil
}
