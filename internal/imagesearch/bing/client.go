package bing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/imagebot/internal/imagesearch"
	"github.com/kitbuilder587/imagebot/internal/metrics"
	"github.com/kitbuilder587/imagebot/internal/ratelimit"
)

const (
	DefaultBaseURL    = "https://api.cognitive.microsoft.com/bing/v5.0/images/search"
	DefaultBatchCount = 10

	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
)

type Config struct {
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	QueryThreshold int
	SafeSearch     imagesearch.SafeSearch
}

// Client is not safe for concurrent use: the pagination state belongs to
// one caller session.
type Client struct {
	apiKey     string
	baseURL    string
	safeSearch imagesearch.SafeSearch

	client   *http.Client
	resolver *Resolver
	quota    *ratelimit.Quota
	pacer    *ratelimit.Pacer
	metrics  *metrics.Metrics
	logger   *zap.Logger

	resolveConcurrency int

	lastQuery  string
	lastOffset int
}

var _ imagesearch.ImageSearcher = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithPacer shares one provider pacer between clients.
func WithPacer(p *ratelimit.Pacer) Option {
	return func(c *Client) {
		c.pacer = p
	}
}

// WithResolveConcurrency > 1 resolves batch results in parallel.
func WithResolveConcurrency(n int) Option {
	return func(c *Client) {
		c.resolveConcurrency = n
	}
}

func New(cfg Config, logger *zap.Logger, opts ...Option) (*Client, []imagesearch.Warning) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		apiKey:             cfg.APIKey,
		baseURL:            cfg.BaseURL,
		safeSearch:         cfg.SafeSearch,
		client:             &http.Client{Timeout: cfg.Timeout},
		quota:              ratelimit.NewQuota(cfg.QueryThreshold),
		logger:             logger,
		resolveConcurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = NewResolver(c.client, c.metrics)

	// без ключа клиент работает, но провайдер будет отвечать отказом;
	// что с этим делать, решает вызывающий
	var warnings []imagesearch.Warning
	if cfg.APIKey == "" {
		warnings = append(warnings, imagesearch.Warning{
			Code:    imagesearch.WarnMissingAPIKey,
			Message: "bing subscription key is not set, the provider will reject every search",
		})
	}

	return c, warnings
}

type bingResponse struct {
	TotalEstimatedMatches int         `json:"totalEstimatedMatches"`
	NextOffset            int         `json:"nextOffset"`
	Value                 []bingImage `json:"value"`
}

type bingImage struct {
	Name           string `json:"name"`
	ContentURL     string `json:"contentUrl"`
	ThumbnailURL   string `json:"thumbnailUrl"`
	HostPageURL    string `json:"hostPageUrl"`
	EncodingFormat string `json:"encodingFormat"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// SearchImages makes exactly one request to the search endpoint, never retrying.
// Provider refusals come back as ErrProviderQuotaExceeded, ErrRateLimited or
// ErrSearchFailed; transport errors are wrapped as is.
func (c *Client) SearchImages(ctx context.Context, req imagesearch.SearchRequest) (*imagesearch.SearchResponse, error) {
	if req.Query == "" {
		return nil, imagesearch.ErrEmptyQuery
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	if err := c.quota.TryIncrement(); err != nil {
		c.metrics.RecordQuotaRejection()
		c.logger.Warn("local query quota exhausted",
			zap.Int("threshold", c.quota.Threshold()),
		)
		return nil, err
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for pacer: %w", err)
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("count", strconv.Itoa(req.Count))
	params.Set("offset", strconv.Itoa(req.Offset))
	if req.SafeSearch != "" {
		params.Set("safeSearch", string(req.SafeSearch))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set(subscriptionKeyHeader, c.apiKey)

	c.logger.Debug("image search",
		zap.String("query", req.Query),
		zap.Int("count", req.Count),
		zap.Int("offset", req.Offset),
		zap.Int("query_count", c.quota.Count()),
	)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.metrics.RecordSearchRequest("transport_error", time.Since(start))
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var bingResp bingResponse
		if err := json.NewDecoder(resp.Body).Decode(&bingResp); err != nil {
			c.metrics.RecordSearchRequest("decode_error", time.Since(start))
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		c.metrics.RecordSearchRequest("ok", time.Since(start))
		return toSearchResponse(&bingResp), nil

	case http.StatusForbidden:
		// месячный лимит у провайдера
		c.metrics.RecordSearchRequest("quota_exceeded", time.Since(start))
		return nil, imagesearch.ErrProviderQuotaExceeded

	case http.StatusTooManyRequests:
		// лимит в секунду
		c.metrics.RecordSearchRequest("rate_limited", time.Since(start))
		return nil, imagesearch.ErrRateLimited

	default:
		c.metrics.RecordSearchRequest("failed", time.Since(start))
		return nil, fmt.Errorf("%w: status %d", imagesearch.ErrSearchFailed, resp.StatusCode)
	}
}

// GetSingleImageURL returns the resolved location of one image for query.
// Repeating the previous query moves to the next result; a new query starts
// from the first one. "" means nothing was found.
func (c *Client) GetSingleImageURL(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", nil
	}

	if query == c.lastQuery {
		c.lastOffset++
	} else {
		c.lastOffset = 0
		c.lastQuery = query
	}

	resp, err := c.SearchImages(ctx, imagesearch.SearchRequest{
		Query:      query,
		Count:      1,
		Offset:     c.lastOffset,
		SafeSearch: c.safeSearch,
	})
	if err != nil {
		if isProviderFailure(err) {
			c.logger.Warn("image search returned no result",
				zap.String("query", query),
				zap.Error(err),
			)
			return "", nil
		}
		return "", err
	}

	if len(resp.Value) == 0 {
		return "", nil
	}

	finalURL, ok, err := c.resolver.Resolve(ctx, resp.Value[0].ContentURL)
	if err != nil {
		return "", fmt.Errorf("resolve image url: %w", err)
	}
	if !ok {
		return "", nil
	}
	return finalURL, nil
}

// GetMultipleImageURLs does not touch the pagination state of GetSingleImageURL.
// Entries that fail to resolve are dropped, the rest keep the provider's order.
func (c *Client) GetMultipleImageURLs(ctx context.Context, query string, count int) ([]string, error) {
	if query == "" {
		return []string{}, nil
	}
	if count <= 0 {
		count = DefaultBatchCount
	}

	resp, err := c.SearchImages(ctx, imagesearch.SearchRequest{
		Query:      query,
		Count:      count,
		SafeSearch: c.safeSearch,
	})
	if err != nil {
		if isProviderFailure(err) {
			c.logger.Warn("image search returned no result",
				zap.String("query", query),
				zap.Error(err),
			)
			return []string{}, nil
		}
		return nil, err
	}

	images := resp.Value
	if len(images) == 0 {
		return []string{}, nil
	}
	if len(images) > count {
		images = images[:count]
	}

	return c.resolveAll(ctx, images)
}

func (c *Client) QueryCount() int {
	return c.quota.Count()
}

func (c *Client) QueryThreshold() int {
	return c.quota.Threshold()
}

func (c *Client) QueryRemaining() int {
	return c.quota.Remaining()
}

func (c *Client) LastQuery() string {
	return c.lastQuery
}

func (c *Client) LastOffset() int {
	return c.lastOffset
}

func isProviderFailure(err error) bool {
	return errors.Is(err, imagesearch.ErrProviderQuotaExceeded) ||
		errors.Is(err, imagesearch.ErrRateLimited) ||
		errors.Is(err, imagesearch.ErrSearchFailed)
}

func toSearchResponse(resp *bingResponse) *imagesearch.SearchResponse {
	images := make([]imagesearch.Image, len(resp.Value))
	for i, v := range resp.Value {
		images[i] = imagesearch.Image{
			Name:           v.Name,
			ContentURL:     v.ContentURL,
			ThumbnailURL:   v.ThumbnailURL,
			HostPageURL:    v.HostPageURL,
			EncodingFormat: v.EncodingFormat,
			Width:          v.Width,
			Height:         v.Height,
		}
	}

	return &imagesearch.SearchResponse{
		TotalEstimatedMatches: resp.TotalEstimatedMatches,
		NextOffset:            resp.NextOffset,
		Value:                 images,
	}
}
