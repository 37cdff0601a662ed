package source

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blackwidowglobal/dossier/internal/cache"
	"github.com/blackwidowglobal/dossier/internal/model"
	"github.com/blackwidowglobal/dossier/internal/util"
	"github.com/blackwidowglobal/dossier/internal/worker"
)

// ErrNotFound lets adapters distinguish "provider has no data" from real
// failures; adapters translate it into an empty record set.
var ErrNotFound = errors.New("not found")

// Client is the rate-limited, cached HTTP client shared by all adapters.
// Every request waits for the source's token bucket before going out.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
}

// NewClient builds the shared client from configuration
func NewClient(cfg model.HTTPConfig, limiter *worker.Limiter, store cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		limiter:   limiter,
		cache:     store,
		cacheTTL:  cacheTTL,
	}
}

// Get fetches rawURL for the given source, honoring its rate limit and
// consulting the response cache first
func (c *Client) Get(ctx context.Context, id model.SourceID, rawURL string, params url.Values, headers map[string]string) ([]byte, error) {
	full := rawURL
	if len(params) > 0 {
		full = rawURL + "?" + params.Encode()
	}

	key := cache.Key(id, full)
	if body, found := c.cache.Get(key); found {
		return body, nil
	}

	if err := c.limiter.Wait(ctx, id); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, &model.SourceFailure{SourceID: id, Reason: model.ReasonMalformed, Detail: err.Error(), Retryable: false}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.8, application/xml;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err // Classified by the retry policy (timeout vs network)
	}
	defer func() { _ = resp.Body.Close() }()

	if failure := failureForStatus(id, resp.StatusCode); failure != nil {
		return nil, failure
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	// The transport strips Content-Encoding when it negotiated the gzip
	// itself; a header still present means the server forced compression
	// (data.sec.gov does this) and the body needs decompressing here
	reader := io.Reader(resp.Body)
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Encoding")), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &model.SourceFailure{SourceID: id, Reason: model.ReasonMalformed, Detail: fmt.Sprintf("gzip body: %v", err), Retryable: false}
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	_ = c.cache.Set(key, body, c.cacheTTL)
	return body, nil
}

// GetJSON fetches and decodes a JSON response
func (c *Client) GetJSON(ctx context.Context, id model.SourceID, rawURL string, params url.Values, headers map[string]string, v interface{}) error {
	body, err := c.Get(ctx, id, rawURL, params, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &model.SourceFailure{SourceID: id, Reason: model.ReasonMalformed, Detail: fmt.Sprintf("decode response: %v", err), Retryable: false}
	}
	return nil
}

// failureForStatus maps HTTP status codes onto the failure taxonomy.
// 2xx and 404 return nil; 404 is handled by the caller.
func failureForStatus(id model.SourceID, status int) *model.SourceFailure {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &model.SourceFailure{SourceID: id, Reason: model.ReasonUnauthorized, Detail: http.StatusText(status), Retryable: false}
	case status == http.StatusTooManyRequests:
		return &model.SourceFailure{SourceID: id, Reason: model.ReasonRateLimited, Detail: http.StatusText(status), Retryable: true}
	case status >= 500:
		return &model.SourceFailure{SourceID: id, Reason: model.ReasonNetwork, Detail: fmt.Sprintf("server error %d", status), Retryable: true}
	default:
		return &model.SourceFailure{SourceID: id, Reason: model.ReasonMalformed, Detail: fmt.Sprintf("unexpected status %d", status), Retryable: false}
	}
}
