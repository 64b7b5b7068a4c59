package manifest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/voxelforge/launcher-core/internal/launchererr"
	"github.com/voxelforge/launcher-core/internal/retry"
	"github.com/voxelforge/launcher-core/internal/telemetry"
)

// ClientConfig configures the manifest HTTP client (subset of §6.7
// relevant to C3).
type ClientConfig struct {
	IndexURL         string
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	UserAgent        string
	RetryPolicy      retry.Policy
}

// DefaultClientConfig matches §5/§6.7's defaults.
func DefaultClientConfig(indexURL string) ClientConfig {
	return ClientConfig{
		IndexURL:       indexURL,
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
		UserAgent:      "voxelforge-launcher-core/1.0",
		RetryPolicy:    retry.DefaultPolicy(),
	}
}

// Client fetches and decodes the version index and per-version
// detail JSON (C3).
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient builds a Client whose transport honors cfg's connect/read
// timeouts and follows redirects automatically (the http.Client
// default), grounded on §4.3's "automatic redirect following,
// configurable connect/read timeouts".
func NewClient(cfg ClientConfig) *Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
		log:        telemetry.L(),
	}
}

// get performs a single retried GET, returning the full response
// body. It classifies non-2xx statuses and network errors into
// *launchererr.Error so the shared retry.Policy can decide
// retryability.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := c.cfg.RetryPolicy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return launchererr.Wrap(launchererr.KindBadArgument, url, err)
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return launchererr.Wrap(launchererr.KindNetwork, url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return launchererr.HTTPStatus(url, resp.StatusCode)
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return launchererr.Wrap(launchererr.KindNetwork, url, err)
		}
		body = b
		return nil
	})
	return body, err
}

// FetchIndex retrieves and decodes the manifest index (§4.3, §6.1).
func (c *Client) FetchIndex(ctx context.Context) (Index, error) {
	data, err := c.get(ctx, c.cfg.IndexURL)
	if err != nil {
		return Index{}, err
	}
	idx, err := DecodeIndex(data)
	if err != nil {
		return Index{}, launchererr.Wrap(launchererr.KindBadManifest, c.cfg.IndexURL, err)
	}
	c.log.Debug("fetched manifest index", zap.Int("versions", len(idx.Entries)))
	return idx, nil
}

// FetchDetailBytes retrieves a single version's raw detail JSON,
// verifying it against expectedSHA1 when non-empty. Exposed
// separately from FetchDetail so callers that need to cache the exact
// payload (internal/engine, for its local detail cache) do not have
// to re-serialize a decoded Detail, which would lose the fields it
// doesn't model explicitly.
func (c *Client) FetchDetailBytes(ctx context.Context, detailURL, expectedSHA1 string) ([]byte, error) {
	data, err := c.get(ctx, detailURL)
	if err != nil {
		return nil, err
	}
	if expectedSHA1 != "" {
		sum := sha1.Sum(data)
		if hex.EncodeToString(sum[:]) != expectedSHA1 {
			return nil, launchererr.New(launchererr.KindChecksumMismatch, detailURL)
		}
	}
	return data, nil
}

// FetchDetail retrieves and decodes a single version's detail JSON.
// If expectedSHA1 is non-empty (as when re-reading a previously
// written detail file to confirm it was not tampered with), the raw
// payload bytes must hash to it before decoding proceeds.
func (c *Client) FetchDetail(ctx context.Context, detailURL, expectedSHA1 string) (Detail, error) {
	data, err := c.FetchDetailBytes(ctx, detailURL, expectedSHA1)
	if err != nil {
		return Detail{}, err
	}
	d, err := DecodeDetail(data)
	if err != nil {
		return Detail{}, launchererr.Wrap(launchererr.KindBadManifest, detailURL, err)
	}
	return d, nil
}
