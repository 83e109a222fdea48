package bing

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/imagebot/internal/imagesearch"
	"github.com/kitbuilder587/imagebot/internal/metrics"
)

// Resolver follows the redirector URLs the search API hands out and reports
// where the image actually lives. It does not touch the search quota.
type Resolver struct {
	client  *http.Client
	metrics *metrics.Metrics
}

func NewResolver(hc *http.Client, m *metrics.Metrics) *Resolver {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Resolver{client: hc, metrics: m}
}

// Resolve returns ok=false when the final response is not 200.
func (r *Resolver) Resolve(ctx context.Context, contentURL string) (string, bool, error) {
	if contentURL == "" {
		r.metrics.RecordResolution("empty")
		return "", false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		r.metrics.RecordResolution("error")
		return "", false, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.metrics.RecordResolution("error")
		return "", false, fmt.Errorf("do request: %w", err)
	}
	// тело (сама картинка) не нужно
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.metrics.RecordResolution("not_ok")
		return "", false, nil
	}

	r.metrics.RecordResolution("ok")
	return resp.Request.URL.String(), true, nil
}

func (c *Client) resolveAll(ctx context.Context, images []imagesearch.Image) ([]string, error) {
	resolved := make([]string, len(images))

	if c.resolveConcurrency <= 1 {
		for i, img := range images {
			u, ok, err := c.resolver.Resolve(ctx, img.ContentURL)
			if err != nil {
				return nil, fmt.Errorf("resolve image url: %w", err)
			}
			if ok {
				resolved[i] = u
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.resolveConcurrency)

		for i, img := range images {
			g.Go(func() error {
				u, ok, err := c.resolver.Resolve(gctx, img.ContentURL)
				if err != nil {
					return err
				}
				if ok {
					resolved[i] = u
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("resolve image url: %w", err)
		}
	}

	urls := make([]string, 0, len(images))
	for _, u := range resolved {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
