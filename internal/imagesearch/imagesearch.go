package imagesearch

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrEmptyQuery            = errors.New("empty query")
	ErrProviderQuotaExceeded = errors.New("provider quota exceeded")
	ErrRateLimited           = errors.New("provider rate limit exceeded")
	ErrSearchFailed          = errors.New("image search request failed")
	ErrInvalidSafeSearch     = errors.New("invalid safe search mode")
)

// ImageSearcher - то, что нужно хосту (боту) от клиента поиска картинок.
type ImageSearcher interface {
	SearchImages(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	GetSingleImageURL(ctx context.Context, query string) (string, error)
	GetMultipleImageURLs(ctx context.Context, query string, count int) ([]string, error)
	QueryCount() int
	QueryThreshold() int
	QueryRemaining() int
}

type SafeSearch string

const (
	SafeSearchOff      SafeSearch = "Off"
	SafeSearchModerate SafeSearch = "Moderate"
	SafeSearchStrict   SafeSearch = "Strict"
)

// ParseSafeSearch is case-insensitive; empty input means "not set".
func ParseSafeSearch(s string) (SafeSearch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "off":
		return SafeSearchOff, nil
	case "moderate":
		return SafeSearchModerate, nil
	case "strict":
		return SafeSearchStrict, nil
	default:
		return "", ErrInvalidSafeSearch
	}
}

type SearchRequest struct {
	Query      string
	Count      int
	Offset     int
	SafeSearch SafeSearch
}

type SearchResponse struct {
	TotalEstimatedMatches int
	NextOffset            int
	Value                 []Image
}

type Image struct {
	Name           string
	ContentURL     string
	ThumbnailURL   string
	HostPageURL    string
	EncodingFormat string
	Width          int
	Height         int
}

const WarnMissingAPIKey = "missing_api_key"

// Warning - некритичная проблема конфигурации, клиент при этом работает.
type Warning struct {
	Code    string
	Message string
}

func (w Warning) String() string {
	return w.Code + ": " + w.Message
}
