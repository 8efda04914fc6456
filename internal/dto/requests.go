package dto

// UpdateReplyRequest carries reply text changes for a review. Only the fields
// present in the request are written.
type UpdateReplyRequest struct {
	DraftReply  *string `json:"draft_reply"`
	EditedReply *string `json:"edited_reply"`
	FinalReply  *string `json:"final_reply"`
}

// ApproveRequest identifies the operator approving or rejecting a reply
type ApproveRequest struct {
	ApprovedBy string `json:"approved_by" binding:"required"`
}

// ListReviewsQuery holds paging parameters for the review list
type ListReviewsQuery struct {
	Limit  int `form:"limit,default=50"`
	Offset int `form:"offset,default=0"`
}

// QuotaReportQuery holds the date range for a usage report
type QuotaReportQuery struct {
	StartDate string `form:"start" binding:"required"`
	EndDate   string `form:"end" binding:"required"`
}
