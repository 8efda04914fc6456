package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewloop/review-service/internal/dto"
	"github.com/reviewloop/review-service/internal/service"
)

// ConnectionHandler handles the Google Business Profile connection lifecycle
type ConnectionHandler struct {
	oauthService service.OAuthService
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(oauthService service.OAuthService) *ConnectionHandler {
	return &ConnectionHandler{
		oauthService: oauthService,
	}
}

// Connect starts the Google authorization flow
// @Summary Connect Google Business Profile
// @Description Build the consent URL the tenant must be redirected to
// @Tags connection
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.AuthorizationResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /connect [get]
func (h *ConnectionHandler) Connect(c *gin.Context) {
	url, err := h.oauthService.BeginAuthorization(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthorizationResponse{
		AuthorizationURL: url,
	})
}

// Callback completes the authorization flow
// @Summary OAuth callback
// @Description Exchange the authorization code and store tenant credentials
// @Tags connection
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "Tenant state parameter"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /connect/callback [get]
func (h *ConnectionHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "code and state query parameters are required",
		})
		return
	}

	if err := h.oauthService.CompleteAuthorization(c.Request.Context(), code, state); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Google account connected",
	})
}

// Status reports the tenant's connection state
// @Summary Connection status
// @Tags connection
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ConnectionStatusResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /connection/status [get]
func (h *ConnectionHandler) Status(c *gin.Context) {
	status, err := h.oauthService.ConnectionStatus(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Disconnect removes the tenant's stored Google credentials
// @Summary Disconnect Google Business Profile
// @Tags connection
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /connection/disconnect [delete]
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	if err := h.oauthService.Disconnect(c.Request.Context(), tenantID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Google account disconnected",
	})
}
