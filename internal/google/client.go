package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/reviewloop/review-service/internal/domain"
	"go.uber.org/zap"
)

// Default production endpoints. Reviews and replies still live on the v4
// surface; account and location discovery moved to the v1 APIs.
const (
	defaultAccountsBaseURL     = "https://mybusinessaccountmanagement.googleapis.com/v1"
	defaultBusinessInfoBaseURL = "https://mybusinessbusinessinformation.googleapis.com/v1"
	defaultReviewsBaseURL      = "https://mybusiness.googleapis.com/v4"

	maxPageSize = 50
)

// UsageTracker records every attempted upstream call for quota accounting
type UsageTracker interface {
	Track(endpoint string)
}

// ClientOptions configures the upstream client. Zero values fall back to
// production defaults.
type ClientOptions struct {
	AccountsBaseURL     string
	BusinessInfoBaseURL string
	ReviewsBaseURL      string
	Timeout             time.Duration

	AccountsLimit     int
	BusinessInfoLimit int
	ReviewsLimit      int
	RateWindow        time.Duration

	Retry *RetryPolicy
}

// Client issues typed operations against the Google Business Profile API.
// Every attempt acquires a rate-limit slot for its API family and is recorded
// by the usage tracker regardless of outcome. Quota failures are retried by
// the retry policy; each retry is a new call from the limiter's perspective.
type Client struct {
	http    *http.Client
	logger  *zap.Logger
	tracker UsageTracker
	retry   *RetryPolicy

	limiters map[Family]*RateLimiter

	accountsBase     string
	businessInfoBase string
	reviewsBase      string
}

// NewClient creates an upstream client with one rate limiter per API family
func NewClient(opts ClientOptions, tracker UsageTracker, logger *zap.Logger) *Client {
	if opts.AccountsBaseURL == "" {
		opts.AccountsBaseURL = defaultAccountsBaseURL
	}
	if opts.BusinessInfoBaseURL == "" {
		opts.BusinessInfoBaseURL = defaultBusinessInfoBaseURL
	}
	if opts.ReviewsBaseURL == "" {
		opts.ReviewsBaseURL = defaultReviewsBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.AccountsLimit == 0 {
		opts.AccountsLimit = 5
	}
	if opts.BusinessInfoLimit == 0 {
		opts.BusinessInfoLimit = 10
	}
	if opts.ReviewsLimit == 0 {
		opts.ReviewsLimit = 10
	}
	if opts.RateWindow == 0 {
		opts.RateWindow = time.Minute
	}
	if opts.Retry == nil {
		opts.Retry = DefaultRetryPolicy()
	}

	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		logger:  logger,
		tracker: tracker,
		retry:   opts.Retry,
		limiters: map[Family]*RateLimiter{
			FamilyAccounts:     NewRateLimiter(opts.AccountsLimit, opts.RateWindow),
			FamilyBusinessInfo: NewRateLimiter(opts.BusinessInfoLimit, opts.RateWindow),
			FamilyReviews:      NewRateLimiter(opts.ReviewsLimit, opts.RateWindow),
		},
		accountsBase:     opts.AccountsBaseURL,
		businessInfoBase: opts.BusinessInfoBaseURL,
		reviewsBase:      opts.ReviewsBaseURL,
	}
}

// ListAccounts returns all Business Profile accounts visible to the token
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	var accounts []Account
	pageToken := ""

	for {
		u := c.accountsBase + "/accounts"
		if pageToken != "" {
			u += "?pageToken=" + url.QueryEscape(pageToken)
		}

		var resp accountsResponse
		if err := c.do(ctx, FamilyAccounts, "accounts.list", http.MethodGet, u, accessToken, nil, &resp); err != nil {
			return nil, err
		}

		accounts = append(accounts, resp.Accounts...)
		if resp.NextPageToken == "" {
			return accounts, nil
		}
		pageToken = resp.NextPageToken
	}
}

// ListLocations returns all locations under an account
func (c *Client) ListLocations(ctx context.Context, accountID, accessToken string) ([]Location, error) {
	var locations []Location
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("readMask", "name,title,storefrontAddress")
		q.Set("pageSize", "100")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u := fmt.Sprintf("%s/accounts/%s/locations?%s", c.businessInfoBase, accountID, q.Encode())

		var resp locationsResponse
		if err := c.do(ctx, FamilyBusinessInfo, "locations.list", http.MethodGet, u, accessToken, nil, &resp); err != nil {
			return nil, err
		}

		locations = append(locations, resp.Locations...)
		if resp.NextPageToken == "" {
			return locations, nil
		}
		pageToken = resp.NextPageToken
	}
}

// ReviewPage is one page of normalized reviews
type ReviewPage struct {
	Reviews       []domain.UpstreamReview
	NextPageToken string
	TotalCount    int
}

// ListReviews fetches one page of reviews for a location
func (c *Client) ListReviews(ctx context.Context, accountID, locationID, accessToken string, opts ListReviewsOptions) (*ReviewPage, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	if opts.OrderBy != "" {
		q.Set("orderBy", opts.OrderBy)
	}
	if opts.PageToken != "" {
		q.Set("pageToken", opts.PageToken)
	}
	u := fmt.Sprintf("%s/accounts/%s/locations/%s/reviews?%s", c.reviewsBase, accountID, locationID, q.Encode())

	var resp reviewsResponse
	if err := c.do(ctx, FamilyReviews, "reviews.list", http.MethodGet, u, accessToken, nil, &resp); err != nil {
		return nil, err
	}

	page := &ReviewPage{
		Reviews:       make([]domain.UpstreamReview, 0, len(resp.Reviews)),
		NextPageToken: resp.NextPageToken,
		TotalCount:    resp.TotalReviewCount,
	}
	for _, w := range resp.Reviews {
		page.Reviews = append(page.Reviews, normalizeReview(w))
	}
	return page, nil
}

// PostReply puts the reply for a review. Replies over the upstream length cap
// are rejected locally before any network call.
func (c *Client) PostReply(ctx context.Context, accountID, locationID, reviewID, text, accessToken string) (*ReplyResult, error) {
	if utf8.RuneCountInString(text) > domain.MaxReplyLength {
		return nil, domain.ErrReplyTooLong
	}

	u := fmt.Sprintf("%s/accounts/%s/locations/%s/reviews/%s/reply", c.reviewsBase, accountID, locationID, reviewID)

	var result ReplyResult
	if err := c.do(ctx, FamilyReviews, "reviews.reply.update", http.MethodPut, u, accessToken, replyRequest{Comment: text}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteReply removes the reply for a review. A missing reply surfaces as
// ErrReplyNotFound; callers decide whether that is a failure.
func (c *Client) DeleteReply(ctx context.Context, accountID, locationID, reviewID, accessToken string) error {
	u := fmt.Sprintf("%s/accounts/%s/locations/%s/reviews/%s/reply", c.reviewsBase, accountID, locationID, reviewID)
	return c.do(ctx, FamilyReviews, "reviews.reply.delete", http.MethodDelete, u, accessToken, nil, nil)
}

// do executes one upstream operation through the rate limiter and retry
// policy. The limiter slot is acquired per attempt, and every attempt is
// tracked, so retries count against both traffic shaping and quota usage.
func (c *Client) do(ctx context.Context, family Family, endpoint, method, rawURL, accessToken string, body, out any) error {
	limiter := c.limiters[family]

	return c.retry.Do(ctx, func(ctx context.Context) error {
		if err := limiter.Acquire(ctx); err != nil {
			return err
		}
		if c.tracker != nil {
			c.tracker.Track(endpoint)
		}
		return c.attempt(ctx, endpoint, method, rawURL, accessToken, body, out)
	})
}

func (c *Client) attempt(ctx context.Context, endpoint, method, rawURL, accessToken string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", domain.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload apiError
		_ = json.Unmarshal(raw, &payload)

		apiErr := errorFromResponse(resp.StatusCode, resp.Header, payload)
		c.logger.Warn("upstream call failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Error(apiErr),
		)
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// normalizeReview maps an upstream wire review to the internal record
func normalizeReview(w wireReview) domain.UpstreamReview {
	hasReply := w.ReviewReply != nil && w.ReviewReply.Comment != ""
	return domain.UpstreamReview{
		GoogleReviewID: w.ReviewID,
		ReviewerName:   w.Reviewer.DisplayName,
		Rating:         starToInt(w.StarRating),
		Comment:        w.Comment,
		ReviewedAt:     w.CreateTime,
		HasReply:       hasReply,
	}
}
