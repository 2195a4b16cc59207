package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"swapboard/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrDuplicateProposal  = errors.New("a proposal between these ads already exists")
	ErrProposalNotPending = errors.New("proposal is no longer pending")
)

// uniqueViolation is the SQLSTATE raised by the (ad_sender_id, ad_receiver_id)
// unique index.
const uniqueViolation = "23505"

// ProposalFilter narrows the proposal listing. Empty/nil fields mean no
// filtering on that field. Filters combine conjunctively with the
// ownership visibility predicate.
type ProposalFilter struct {
	Status           *domain.ProposalStatus
	SenderUsername   string
	ReceiverUsername string
}

// ProposalRepository defines the interface for exchange proposal data access
type ProposalRepository interface {
	Create(ctx context.Context, p *domain.ExchangeProposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ExchangeProposal, error)
	ExistsForPair(ctx context.Context, senderAdID, receiverAdID uuid.UUID) (bool, error)
	Reject(ctx context.Context, id uuid.UUID) error
	Accept(ctx context.Context, id, senderAdID, receiverAdID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID, filter ProposalFilter, page, pageSize int) ([]*domain.ExchangeProposal, int, error)
}

type proposalRepository struct {
	db *sql.DB

	// afterStatusWrite runs inside the accept transaction between the
	// status update and the ad deactivations. nil outside of tests.
	afterStatusWrite func(ctx context.Context, tx *sql.Tx) error
}

// NewProposalRepository creates a new instance of ProposalRepository
func NewProposalRepository(db *sql.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

// Create inserts a new proposal. A unique-pair violation surfaces as
// ErrDuplicateProposal rather than a storage error.
func (r *proposalRepository) Create(ctx context.Context, p *domain.ExchangeProposal) error {
	query := `
		INSERT INTO exchange_proposals (id, ad_sender_id, ad_receiver_id, comment, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		p.ID,
		p.AdSenderID,
		p.AdReceiverID,
		p.Comment,
		p.Status,
		p.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateProposal
		}
		return fmt.Errorf("failed to create proposal: %w", err)
	}

	return nil
}

// FindByID retrieves a proposal by ID using parameterized queries
func (r *proposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ExchangeProposal, error) {
	query := `
		SELECT id, ad_sender_id, ad_receiver_id, comment, status, created_at
		FROM exchange_proposals
		WHERE id = $1
	`

	p := &domain.ExchangeProposal{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.AdSenderID,
		&p.AdReceiverID,
		&p.Comment,
		&p.Status,
		&p.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to find proposal by ID: %w", err)
	}

	return p, nil
}

// ExistsForPair reports whether a proposal already exists for the exact
// (sender, receiver) ordered pair.
func (r *proposalRepository) ExistsForPair(ctx context.Context, senderAdID, receiverAdID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM exchange_proposals
			WHERE ad_sender_id = $1 AND ad_receiver_id = $2
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, senderAdID, receiverAdID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing proposal: %w", err)
	}

	return exists, nil
}

// Reject marks a pending proposal rejected. Ads are untouched.
func (r *proposalRepository) Reject(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE exchange_proposals
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, id, domain.ProposalRejected, domain.ProposalPending)
	if err != nil {
		return fmt.Errorf("failed to reject proposal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProposalNotPending
	}

	return nil
}

// Accept marks a pending proposal accepted and deactivates both ads in a
// single transaction. Either all three writes commit or none do. The
// status update is guarded on the current status being pending, so a
// concurrent double-submit cannot deactivate twice.
func (r *proposalRepository) Accept(ctx context.Context, id, senderAdID, receiverAdID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin accept transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE exchange_proposals SET status = $2 WHERE id = $1 AND status = $3`,
		id, domain.ProposalAccepted, domain.ProposalPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update proposal status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProposalNotPending
	}

	if r.afterStatusWrite != nil {
		if err := r.afterStatusWrite(ctx, tx); err != nil {
			return err
		}
	}

	result, err = tx.ExecContext(
		ctx,
		`UPDATE ads SET is_active = FALSE WHERE id = $1 OR id = $2`,
		senderAdID, receiverAdID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate ads: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 2 {
		return fmt.Errorf("expected to deactivate 2 ads, deactivated %d: %w", rowsAffected, ErrAdNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit accept transaction: %w", err)
	}

	return nil
}

// ListForUser retrieves proposals visible to userID (they own the sender
// ad or the receiver ad), optionally filtered, newest first, paginated.
// Filter values that match nothing yield an empty page, not an error.
func (r *proposalRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter ProposalFilter, page, pageSize int) ([]*domain.ExchangeProposal, int, error) {
	fromClause := `
		FROM exchange_proposals p
		JOIN ads sa ON sa.id = p.ad_sender_id
		JOIN users su ON su.id = sa.user_id
		JOIN ads ra ON ra.id = p.ad_receiver_id
		JOIN users ru ON ru.id = ra.user_id
	`

	whereClause := "WHERE (sa.user_id = $1 OR ra.user_id = $1)"
	args := []interface{}{userID}
	argIndex := 2

	if filter.Status != nil {
		whereClause += fmt.Sprintf(" AND p.status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.SenderUsername != "" {
		whereClause += fmt.Sprintf(" AND su.username = $%d", argIndex)
		args = append(args, filter.SenderUsername)
		argIndex++
	}
	if filter.ReceiverUsername != "" {
		whereClause += fmt.Sprintf(" AND ru.username = $%d", argIndex)
		args = append(args, filter.ReceiverUsername)
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s %s", fromClause, whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count proposals: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT p.id, p.ad_sender_id, p.ad_receiver_id, p.comment, p.status, p.created_at
		%s
		%s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d
	`, fromClause, whereClause, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	proposals := []*domain.ExchangeProposal{}
	for rows.Next() {
		p := &domain.ExchangeProposal{}
		err := rows.Scan(
			&p.ID,
			&p.AdSenderID,
			&p.AdReceiverID,
			&p.Comment,
			&p.Status,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating proposals: %w", err)
	}

	return proposals, total, nil
}
