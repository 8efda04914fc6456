package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewloop/review-service/internal/dto"
	"github.com/reviewloop/review-service/internal/service"
)

// ReviewHandler handles review sync and the reply approval workflow
type ReviewHandler struct {
	syncService  service.SyncService
	replyService service.ReplyService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(syncService service.SyncService, replyService service.ReplyService) *ReviewHandler {
	return &ReviewHandler{
		syncService:  syncService,
		replyService: replyService,
	}
}

// Sync reconciles the tenant's reviews with Google
// @Summary Sync reviews
// @Description Fetch reviews for every active location and reconcile them locally
// @Tags reviews
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SyncResult
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /reviews/sync [post]
func (h *ReviewHandler) Sync(c *gin.Context) {
	result, err := h.syncService.SyncReviews(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// List returns the tenant's stored reviews
// @Summary List reviews
// @Tags reviews
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} domain.Review
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	var query dto.ListReviewsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	reviews, err := h.replyService.ListReviews(c.Request.Context(), tenantID(c), query.Limit, query.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// UpdateReply updates draft, edited or final reply text
// @Summary Update reply text
// @Tags reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param request body dto.UpdateReplyRequest true "Reply text changes"
// @Success 200 {object} domain.Review
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /reviews/{id}/reply [put]
func (h *ReviewHandler) UpdateReply(c *gin.Context) {
	var req dto.UpdateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	review, err := h.replyService.UpdateReply(c.Request.Context(), tenantID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// Approve marks the reply ready to post
// @Summary Approve reply
// @Tags reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param request body dto.ApproveRequest true "Approver"
// @Success 200 {object} domain.Review
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /reviews/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	review, err := h.replyService.Approve(c.Request.Context(), tenantID(c), c.Param("id"), req.ApprovedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// Reject marks the reply as rejected
// @Summary Reject reply
// @Tags reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param request body dto.ApproveRequest true "Reviewer"
// @Success 200 {object} domain.Review
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /reviews/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	review, err := h.replyService.Reject(c.Request.Context(), tenantID(c), c.Param("id"), req.ApprovedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// PostReply publishes the approved reply to Google
// @Summary Post reply
// @Tags reviews
// @Security BearerAuth
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} dto.PostReplyResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /reviews/{id}/reply/post [post]
func (h *ReviewHandler) PostReply(c *gin.Context) {
	result, err := h.replyService.PostReply(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeleteReply removes a posted reply from Google
// @Summary Delete posted reply
// @Tags reviews
// @Security BearerAuth
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /reviews/{id}/reply [delete]
func (h *ReviewHandler) DeleteReply(c *gin.Context) {
	if err := h.replyService.DeleteReply(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Reply deleted",
	})
}
