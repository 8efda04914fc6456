package acceptance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/reviewloop/review-service/internal/domain"
)

func (s *Suite) createTenant(slug string) string {
	id := uuid.New().String()
	_, err := s.Postgres.DB.Exec(`
		INSERT INTO tenants (id, slug, display_name, initial_sync_done, created_at, updated_at)
		VALUES ($1, $2, $3, false, NOW(), NOW())`,
		id, slug, "Test Tenant "+slug,
	)
	s.Require().NoError(err, "Failed to insert tenant")
	return id
}

func (s *Suite) createLocation(tenantID string) string {
	id := uuid.New().String()
	_, err := s.Postgres.DB.Exec(`
		INSERT INTO locations (id, tenant_id, google_location_id, google_account_id, display_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, NOW(), NOW())`,
		id, tenantID, "locations/"+uuid.New().String(), "accounts/123", "Main Street Store",
	)
	s.Require().NoError(err, "Failed to insert location")
	return id
}

func (s *Suite) createReview(tenantID, locationID string, posted bool) string {
	id := uuid.New().String()
	status := domain.ApprovalPending
	if posted {
		status = domain.ApprovalPosted
	}
	_, err := s.Postgres.DB.Exec(`
		INSERT INTO reviews (id, tenant_id, location_id, google_review_id, reviewer_name, rating, comment,
			reviewed_at, has_reply, approval_status, posted_to_google, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'Jane D.', 4, 'Great service', NOW(), $5, $6, $5, NOW(), NOW())`,
		id, tenantID, locationID, "reviews/"+uuid.New().String(), posted, status,
	)
	s.Require().NoError(err, "Failed to insert review")
	return id
}

func (s *Suite) authToken(tenantID, role string) string {
	token, err := s.JWTManager.GenerateAccessToken(tenantID, "operator@test", role)
	s.Require().NoError(err, "Failed to generate token")
	return token
}

func (s *Suite) doRequest(method, path, token string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.BaseURL+path, reader)
	s.Require().NoError(err, "Failed to build request")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err, "Request failed")

	respBody, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	resp.Body.Close()
	return resp, respBody
}

func (s *Suite) TestListReviewsRequiresAuth() {
	resp, _ := s.doRequest(http.MethodGet, "/api/v1/reviews", "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestListReviews() {
	tenantID := s.createTenant("list-reviews")
	locationID := s.createLocation(tenantID)
	s.createReview(tenantID, locationID, false)
	s.createReview(tenantID, locationID, false)

	resp, body := s.doRequest(http.MethodGet, "/api/v1/reviews", s.authToken(tenantID, domain.RoleOperator), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "body: %s", body)

	var reviews []domain.Review
	s.Require().NoError(json.Unmarshal(body, &reviews))
	s.Len(reviews, 2)
}

func (s *Suite) TestReplyApprovalWorkflow() {
	tenantID := s.createTenant("reply-workflow")
	locationID := s.createLocation(tenantID)
	reviewID := s.createReview(tenantID, locationID, false)
	token := s.authToken(tenantID, domain.RoleOperator)

	draft := "Thank you for the kind words!"
	resp, body := s.doRequest(http.MethodPut, "/api/v1/reviews/"+reviewID+"/reply", token, map[string]any{
		"draft_reply": draft,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, "body: %s", body)

	var review domain.Review
	s.Require().NoError(json.Unmarshal(body, &review))
	s.Require().NotNil(review.DraftReply)
	s.Equal(draft, *review.DraftReply)
	s.NotNil(review.DraftGeneratedAt)

	resp, body = s.doRequest(http.MethodPost, "/api/v1/reviews/"+reviewID+"/approve", token, map[string]any{
		"approved_by": "jane@tenant.test",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, "body: %s", body)

	s.Require().NoError(json.Unmarshal(body, &review))
	s.Equal(domain.ApprovalApproved, review.ApprovalStatus)
	s.Require().NotNil(review.FinalReply)
	s.Equal(draft, *review.FinalReply)
	s.NotNil(review.ApprovedAt)
}

func (s *Suite) TestRejectReply() {
	tenantID := s.createTenant("reject-reply")
	locationID := s.createLocation(tenantID)
	reviewID := s.createReview(tenantID, locationID, false)
	token := s.authToken(tenantID, domain.RoleOperator)

	resp, body := s.doRequest(http.MethodPost, "/api/v1/reviews/"+reviewID+"/reject", token, map[string]any{
		"approved_by": "jane@tenant.test",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, "body: %s", body)

	var review domain.Review
	s.Require().NoError(json.Unmarshal(body, &review))
	s.Equal(domain.ApprovalRejected, review.ApprovalStatus)
}

func (s *Suite) TestUpdateReplyFrozenAfterPosting() {
	tenantID := s.createTenant("frozen-reply")
	locationID := s.createLocation(tenantID)
	reviewID := s.createReview(tenantID, locationID, true)
	token := s.authToken(tenantID, domain.RoleOperator)

	resp, _ := s.doRequest(http.MethodPut, "/api/v1/reviews/"+reviewID+"/reply", token, map[string]any{
		"edited_reply": "too late",
	})
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *Suite) TestUpdateReplyTooLong() {
	tenantID := s.createTenant("long-reply")
	locationID := s.createLocation(tenantID)
	reviewID := s.createReview(tenantID, locationID, false)
	token := s.authToken(tenantID, domain.RoleOperator)

	long := make([]byte, domain.MaxReplyLength+1)
	for i := range long {
		long[i] = 'a'
	}

	resp, _ := s.doRequest(http.MethodPut, "/api/v1/reviews/"+reviewID+"/reply", token, map[string]any{
		"final_reply": string(long),
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestReviewIsolationBetweenTenants() {
	tenantA := s.createTenant("tenant-a")
	tenantB := s.createTenant("tenant-b")
	locationID := s.createLocation(tenantA)
	reviewID := s.createReview(tenantA, locationID, false)

	resp, _ := s.doRequest(http.MethodPut, "/api/v1/reviews/"+reviewID+"/reply", s.authToken(tenantB, domain.RoleOperator), map[string]any{
		"draft_reply": "not mine",
	})
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestSyncWithoutConnection() {
	tenantID := s.createTenant("no-connection")

	resp, _ := s.doRequest(http.MethodPost, "/api/v1/reviews/sync", s.authToken(tenantID, domain.RoleOperator), nil)
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *Suite) connectTenant(tenantID string) {
	_, err := s.Postgres.DB.Exec(`
		UPDATE tenants
		SET google_account_id = 'accounts/123', access_token = 'test-access-token',
			refresh_token = 'test-refresh-token', token_expiry = NOW() + INTERVAL '1 hour'
		WHERE id = $1`, tenantID,
	)
	s.Require().NoError(err, "Failed to connect tenant")
}

func (s *Suite) TestSyncBlockedByCooldown() {
	tenantID := s.createTenant("cooldown-sync")
	s.connectTenant(tenantID)

	ctx := context.Background()
	key := fmt.Sprintf("quota:cooldown:%s", tenantID)
	s.Require().NoError(s.Redis.Client.Set(ctx, key, "1", 10*time.Minute).Err())

	resp, body := s.doRequest(http.MethodPost, "/api/v1/reviews/sync", s.authToken(tenantID, domain.RoleOperator), nil)
	s.Require().Equal(http.StatusTooManyRequests, resp.StatusCode, "body: %s", body)
	s.NotEmpty(resp.Header.Get("Retry-After"))

	var errResp map[string]any
	s.Require().NoError(json.Unmarshal(body, &errResp))
	s.Contains(errResp, "retry_after_seconds")
}

func (s *Suite) TestConnectionStatusDisconnected() {
	tenantID := s.createTenant("status-disconnected")

	resp, body := s.doRequest(http.MethodGet, "/api/v1/connection/status", s.authToken(tenantID, domain.RoleOperator), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "body: %s", body)

	var status map[string]any
	s.Require().NoError(json.Unmarshal(body, &status))
	s.Equal(false, status["connected"])
}

func (s *Suite) TestQuotaStats() {
	tenantID := s.createTenant("quota-stats")

	resp, body := s.doRequest(http.MethodGet, "/api/v1/quota/stats", s.authToken(tenantID, domain.RoleOperator), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "body: %s", body)

	var stats map[string]any
	s.Require().NoError(json.Unmarshal(body, &stats))
	s.Contains(stats, "daily")
	s.Contains(stats, "burst")
}

func (s *Suite) TestClearCooldownsRequiresAdmin() {
	tenantID := s.createTenant("cooldown-operator")

	resp, _ := s.doRequest(http.MethodPost, "/api/v1/admin/quota/clear-cooldowns", s.authToken(tenantID, domain.RoleOperator), nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *Suite) TestClearCooldowns() {
	tenantID := s.createTenant("cooldown-admin")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("quota:cooldown:%s", uuid.New().String())
		s.Require().NoError(s.Redis.Client.Set(ctx, key, "1", 10*time.Minute).Err())
	}

	resp, body := s.doRequest(http.MethodPost, "/api/v1/admin/quota/clear-cooldowns", s.authToken(tenantID, domain.RoleAdmin), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, "body: %s", body)

	var cleared map[string]int
	s.Require().NoError(json.Unmarshal(body, &cleared))
	s.Equal(3, cleared["cleared"])
}
