package domain

import "time"

// Approval status values for a review's reply workflow
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
	ApprovalPosted   = "posted"
)

// MaxReplyLength is the upstream cap on reply body length, in characters
const MaxReplyLength = 4096

// Review represents a single Google review and its local reply workflow state.
//
// Upstream-authoritative fields (reviewer, rating, comment, has-reply) are
// overwritten on every sync. Locally-owned fields (draft/edited/final reply,
// approval state, posting state) are only ever written by the reply workflow.
type Review struct {
	ID             string    `json:"id" db:"id"`
	TenantID       string    `json:"tenant_id" db:"tenant_id"`
	LocationID     string    `json:"location_id" db:"location_id"`
	GoogleReviewID string    `json:"google_review_id" db:"google_review_id"`
	ReviewerName   string    `json:"reviewer_name" db:"reviewer_name"`
	Rating         int       `json:"rating" db:"rating"`
	Comment        string    `json:"comment" db:"comment"`
	ReviewedAt     time.Time `json:"reviewed_at" db:"reviewed_at"`
	HasReply       bool      `json:"has_reply" db:"has_reply"`

	DraftReply       *string    `json:"draft_reply" db:"draft_reply"`
	DraftGeneratedAt *time.Time `json:"draft_generated_at" db:"draft_generated_at"`
	EditedReply      *string    `json:"edited_reply" db:"edited_reply"`
	FinalReply       *string    `json:"final_reply" db:"final_reply"`
	ApprovedBy       *string    `json:"approved_by" db:"approved_by"`
	ApprovedAt       *time.Time `json:"approved_at" db:"approved_at"`
	ApprovalStatus   string     `json:"approval_status" db:"approval_status"`
	PostedToGoogle   bool       `json:"posted_to_google" db:"posted_to_google"`
	PostedAt         *time.Time `json:"posted_at" db:"posted_at"`
	GoogleReplyID    *string    `json:"google_reply_id" db:"google_reply_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ReplyText returns the text that would be posted upstream: the final reply if
// set, otherwise the edited reply, otherwise the draft.
func (r Review) ReplyText() string {
	switch {
	case r.FinalReply != nil && *r.FinalReply != "":
		return *r.FinalReply
	case r.EditedReply != nil && *r.EditedReply != "":
		return *r.EditedReply
	case r.DraftReply != nil:
		return *r.DraftReply
	}
	return ""
}

// UpstreamReview is a normalized review record as fetched from Google
type UpstreamReview struct {
	GoogleReviewID string
	ReviewerName   string
	Rating         int
	Comment        string
	ReviewedAt     time.Time
	HasReply       bool
}
