package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/reviewloop/review-service/internal/domain"
	"github.com/reviewloop/review-service/pkg/database"
)

// reviewRepository implements ReviewRepository interface
type reviewRepository struct {
	db *database.Postgres
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *database.Postgres) ReviewRepository {
	return &reviewRepository{db: db}
}

const reviewColumns = `id, tenant_id, location_id, google_review_id, reviewer_name, rating, comment,
	reviewed_at, has_reply, draft_reply, draft_generated_at, edited_reply, final_reply,
	approved_by, approved_at, approval_status, posted_to_google, posted_at, google_reply_id,
	created_at, updated_at`

// Create inserts a review observed for the first time. The provider review id
// carries a unique constraint so a racing sync cannot create duplicate rows.
func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, tenant_id, location_id, google_review_id, reviewer_name, rating, comment,
			reviewed_at, has_reply, approval_status, posted_to_google, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if review.ApprovalStatus == "" {
		review.ApprovalStatus = domain.ApprovalPending
	}

	now := time.Now()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	if review.UpdatedAt.IsZero() {
		review.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		review.ID,
		review.TenantID,
		review.LocationID,
		review.GoogleReviewID,
		review.ReviewerName,
		review.Rating,
		review.Comment,
		review.ReviewedAt,
		review.HasReply,
		review.ApprovalStatus,
		review.PostedToGoogle,
		review.CreatedAt,
		review.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("review %s already exists: %w", review.GoogleReviewID, ErrDuplicateReview)
			}
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by ID
func (r *reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)
	return scanReview(r.db.DB.QueryRowContext(ctx, query, id))
}

// GetByGoogleID retrieves a review by its provider review id
func (r *reviewRepository) GetByGoogleID(ctx context.Context, googleReviewID string) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE google_review_id = $1`, reviewColumns)
	return scanReview(r.db.DB.QueryRowContext(ctx, query, googleReviewID))
}

// ListByTenant retrieves reviews for a tenant, newest first
func (r *reviewRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reviews
		WHERE tenant_id = $1
		ORDER BY reviewed_at DESC
		LIMIT $2 OFFSET $3
	`, reviewColumns)

	rows, err := r.db.DB.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		review, err := scanReviewRow(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return reviews, nil
}

// UpdateUpstreamFields overwrites only the upstream-authoritative columns.
// Reply workflow columns are deliberately absent from this statement.
func (r *reviewRepository) UpdateUpstreamFields(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET reviewer_name = $2, rating = $3, comment = $4, reviewed_at = $5, has_reply = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		review.ID,
		review.ReviewerName,
		review.Rating,
		review.Comment,
		review.ReviewedAt,
		review.HasReply,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update review upstream fields: %w", err)
	}

	return requireReviewRow(result, review.ID)
}

// UpdateReplyFields overwrites only the locally-owned reply workflow columns
func (r *reviewRepository) UpdateReplyFields(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET draft_reply = $2, draft_generated_at = $3, edited_reply = $4, final_reply = $5,
		    approved_by = $6, approved_at = $7, approval_status = $8,
		    posted_to_google = $9, posted_at = $10, google_reply_id = $11, has_reply = $12, updated_at = $13
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		review.ID,
		review.DraftReply,
		review.DraftGeneratedAt,
		review.EditedReply,
		review.FinalReply,
		review.ApprovedBy,
		review.ApprovedAt,
		review.ApprovalStatus,
		review.PostedToGoogle,
		review.PostedAt,
		review.GoogleReplyID,
		review.HasReply,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update review reply fields: %w", err)
	}

	return requireReviewRow(result, review.ID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row *sql.Row) (*domain.Review, error) {
	review, err := scanReviewFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("review not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return review, nil
}

func scanReviewRow(rows *sql.Rows) (*domain.Review, error) {
	return scanReviewFrom(rows)
}

func scanReviewFrom(s rowScanner) (*domain.Review, error) {
	review := &domain.Review{}
	var (
		draftReply       sql.NullString
		draftGeneratedAt sql.NullTime
		editedReply      sql.NullString
		finalReply       sql.NullString
		approvedBy       sql.NullString
		approvedAt       sql.NullTime
		postedAt         sql.NullTime
		googleReplyID    sql.NullString
	)

	err := s.Scan(
		&review.ID,
		&review.TenantID,
		&review.LocationID,
		&review.GoogleReviewID,
		&review.ReviewerName,
		&review.Rating,
		&review.Comment,
		&review.ReviewedAt,
		&review.HasReply,
		&draftReply,
		&draftGeneratedAt,
		&editedReply,
		&finalReply,
		&approvedBy,
		&approvedAt,
		&review.ApprovalStatus,
		&review.PostedToGoogle,
		&postedAt,
		&googleReplyID,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan review: %w", err)
	}

	if draftReply.Valid {
		review.DraftReply = &draftReply.String
	}
	if draftGeneratedAt.Valid {
		review.DraftGeneratedAt = &draftGeneratedAt.Time
	}
	if editedReply.Valid {
		review.EditedReply = &editedReply.String
	}
	if finalReply.Valid {
		review.FinalReply = &finalReply.String
	}
	if approvedBy.Valid {
		review.ApprovedBy = &approvedBy.String
	}
	if approvedAt.Valid {
		review.ApprovedAt = &approvedAt.Time
	}
	if postedAt.Valid {
		review.PostedAt = &postedAt.Time
	}
	if googleReplyID.Valid {
		review.GoogleReplyID = &googleReplyID.String
	}

	return review, nil
}

func requireReviewRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("review with id %s not found: %w", id, ErrNotFound)
	}
	return nil
}
