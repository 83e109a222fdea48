package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/imagebot/internal/imagesearch"
)

// Client - фейковый ImageSearcher; повторяет пагинацию настоящего клиента,
// чтобы хост можно было тестировать без сети.
type Client struct {
	URLs      []string
	Error     error
	Delay     time.Duration
	Threshold int

	CallCount    int
	LastQuery    string
	LastOffset   int
	LastCount    int
	AllQueries   []string
	queriesTotal int

	mu sync.Mutex
}

var _ imagesearch.ImageSearcher = (*Client)(nil)

func New() *Client {
	return &Client{Threshold: 1000}
}

func (c *Client) WithURLs(urls ...string) *Client {
	c.URLs = urls
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) WithThreshold(n int) *Client {
	c.Threshold = n
	return c
}

func (c *Client) SearchImages(ctx context.Context, req imagesearch.SearchRequest) (*imagesearch.SearchResponse, error) {
	if req.Query == "" {
		return nil, imagesearch.ErrEmptyQuery
	}
	if err := c.record(ctx, req.Query, req.Count); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	images := make([]imagesearch.Image, 0, len(c.URLs))
	for i, u := range c.URLs {
		if i < req.Offset {
			continue
		}
		images = append(images, imagesearch.Image{ContentURL: u})
	}
	return &imagesearch.SearchResponse{
		TotalEstimatedMatches: len(c.URLs),
		Value:                 images,
	}, nil
}

func (c *Client) GetSingleImageURL(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", nil
	}

	c.mu.Lock()
	if query == c.LastQuery {
		c.LastOffset++
	} else {
		c.LastOffset = 0
		c.LastQuery = query
	}
	offset := c.LastOffset
	c.mu.Unlock()

	if err := c.record(ctx, query, 1); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if offset >= len(c.URLs) {
		return "", nil
	}
	return c.URLs[offset], nil
}

func (c *Client) GetMultipleImageURLs(ctx context.Context, query string, count int) ([]string, error) {
	if query == "" {
		return []string{}, nil
	}
	if count <= 0 {
		count = 10
	}
	if err := c.record(ctx, query, count); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	n := min(count, len(c.URLs))
	out := make([]string, n)
	copy(out, c.URLs[:n])
	return out, nil
}

func (c *Client) QueryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queriesTotal
}

func (c *Client) QueryThreshold() int {
	return c.Threshold
}

func (c *Client) QueryRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return max(c.Threshold-c.queriesTotal, 0)
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastQuery = ""
	c.LastOffset = 0
	c.LastCount = 0
	c.AllQueries = nil
	c.queriesTotal = 0
}

func (c *Client) record(ctx context.Context, query string, count int) error {
	c.mu.Lock()
	c.CallCount++
	c.LastCount = count
	c.AllQueries = append(c.AllQueries, query)
	c.queriesTotal++
	delay := c.Delay
	err := c.Error
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
