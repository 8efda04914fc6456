package google

import (
	"strings"
	"time"
)

// Account is a Google Business Profile account as returned by the account
// management API
type Account struct {
	Name        string `json:"name"` // "accounts/{accountId}"
	AccountName string `json:"accountName"`
	Type        string `json:"type"`
}

// ID returns the bare account id without the "accounts/" prefix
func (a Account) ID() string {
	return strings.TrimPrefix(a.Name, "accounts/")
}

// Location is a business location as returned by the business information API
type Location struct {
	Name    string `json:"name"` // "locations/{locationId}"
	Title   string `json:"title"`
	Address *struct {
		AddressLines []string `json:"addressLines"`
		Locality     string   `json:"locality"`
		PostalCode   string   `json:"postalCode"`
	} `json:"storefrontAddress"`
}

// ID returns the bare location id without the "locations/" prefix
func (l Location) ID() string {
	return strings.TrimPrefix(l.Name, "locations/")
}

// FormattedAddress joins the storefront address into a single display line
func (l Location) FormattedAddress() string {
	if l.Address == nil {
		return ""
	}
	parts := append([]string{}, l.Address.AddressLines...)
	if l.Address.Locality != "" {
		parts = append(parts, l.Address.Locality)
	}
	if l.Address.PostalCode != "" {
		parts = append(parts, l.Address.PostalCode)
	}
	return strings.Join(parts, ", ")
}

// ListReviewsOptions controls review pagination and ordering
type ListReviewsOptions struct {
	PageSize  int    // capped at 50 by the upstream API
	PageToken string
	OrderBy   string // e.g. "updateTime desc"
}

// ReplyResult is the provider's response to putting a reply
type ReplyResult struct {
	Comment    string    `json:"comment"`
	UpdateTime time.Time `json:"updateTime"`
}

// wire structures

type accountsResponse struct {
	Accounts      []Account `json:"accounts"`
	NextPageToken string    `json:"nextPageToken"`
}

type locationsResponse struct {
	Locations     []Location `json:"locations"`
	NextPageToken string     `json:"nextPageToken"`
}

type reviewsResponse struct {
	Reviews          []wireReview `json:"reviews"`
	NextPageToken    string       `json:"nextPageToken"`
	TotalReviewCount int          `json:"totalReviewCount"`
	AverageRating    float64      `json:"averageRating"`
}

type wireReview struct {
	ReviewID string `json:"reviewId"`
	Reviewer struct {
		DisplayName string `json:"displayName"`
	} `json:"reviewer"`
	StarRating  string     `json:"starRating"`
	Comment     string     `json:"comment"`
	CreateTime  time.Time  `json:"createTime"`
	UpdateTime  time.Time  `json:"updateTime"`
	ReviewReply *struct {
		Comment    string    `json:"comment"`
		UpdateTime time.Time `json:"updateTime"`
	} `json:"reviewReply"`
}

type replyRequest struct {
	Comment string `json:"comment"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// starRatings maps the upstream word-enum to integer ratings
var starRatings = map[string]int{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// starToInt maps the star rating word enum to 1..5, defaulting to 0 for
// unknown values (including STAR_RATING_UNSPECIFIED)
func starToInt(star string) int {
	return starRatings[strings.ToUpper(star)]
}
