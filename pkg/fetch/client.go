package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/synaptica-ai/prelude-parser/pkg/common/config"
	"github.com/synaptica-ai/prelude-parser/pkg/common/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrTooLarge = errors.New("export exceeds maximum size")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	MaxBytes     int64
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BaseURL:      cfg.ExportBaseURL,
		TokenURL:     cfg.ExportTokenURL,
		ClientID:     cfg.ExportClientID,
		ClientSecret: cfg.ExportClientSecret,
		Scopes:       cfg.ExportScopes,
		Timeout:      cfg.ExportTimeout,
		Retries:      cfg.ExportRetries,
		MaxBytes:     cfg.MaxRequestBody,
	}
}

// Client downloads exports from an EDC export endpoint.
type Client struct {
	http       *http.Client
	baseURL    string
	retries    int
	retryDelay time.Duration
	maxBytes   int64
}

// New builds a client. When ClientID is set every request carries an
// OAuth2 client credentials token obtained from TokenURL.
func New(cfg Config) *Client {
	httpClient := newHTTPClient(cfg.Timeout)
	if cfg.ClientID != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = cc.Client(ctx)
		httpClient.Timeout = cfg.Timeout
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Client{
		http:       httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		retries:    cfg.Retries,
		retryDelay: delay,
		maxBytes:   cfg.MaxBytes,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Resolve turns ref into an absolute URL; relative refs are joined to the
// base URL.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid export reference %q: %w", ref, err)
	}
	if u.IsAbs() {
		return ref, nil
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("relative export reference %q without base url", ref)
	}
	return c.baseURL + "/" + strings.TrimLeft(ref, "/"), nil
}

// Fetch downloads the export named by ref.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	var body []byte
	attempt := 0
	err = Retry(ctx, c.retries, c.retryDelay, func() error {
		attempt++
		data, getErr := c.get(ctx, target)
		if getErr != nil {
			logger.Log.WithError(getErr).WithFields(map[string]interface{}{
				"url":     target,
				"attempt": attempt,
			}).Warn("export download failed")
			return getErr
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	reader := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if c.maxBytes > 0 && int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%s: %w", target, ErrTooLarge)
	}
	return body, nil
}
