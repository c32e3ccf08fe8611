package twitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
	"github.com/sourcegraph/conc"
)

// Client talks to the v1.1 REST API on behalf of a pool of accounts.
// It is safe for concurrent use.
type Client struct {
	shared *stealth.BrowserClient
	pool   *pool.Pool[*Account]
	cfg    ClientConfig
}

// NewClient builds the transport, then restores or performs a login for every
// account in parallel. Accounts that cannot log in are left inactive; NewClient
// fails only when none can.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if len(cfg.Accounts) == 0 {
		return nil, errors.New("no accounts configured")
	}
	cfg.defaults()

	opts := []stealth.ClientOption{stealth.WithHeaderOrder(headerOrder)}
	if cfg.DefaultProxy != "" {
		opts = append(opts, stealth.WithProxy(cfg.DefaultProxy))
	}
	shared, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}

	c := &Client{
		shared: shared,
		pool: pool.New(cfg.Accounts, pool.Config{
			AlertHook: func(topic string, payload any) {
				slog.Warn("pool alert", slog.String("topic", topic), slog.Any("payload", payload))
			},
			ProxyBackoff: pool.BackoffConfig{
				InitialWait: cfg.ProxyBackoffInitial,
				MaxWait:     cfg.ProxyBackoffMax,
				Multiplier:  2.0,
				JitterPct:   0.3,
			},
		}),
		cfg: cfg,
	}

	var wg conc.WaitGroup
	for _, acc := range cfg.Accounts {
		acc.limiter = ratelimit.NewLimiter(cfg.RateLimit)
		acc.HealthTracker = pool.DefaultHealthTracker()
		acc.client = newAccountClient(acc)
		wg.Go(func() {
			if err := c.loadOrLogin(ctx, acc); err != nil {
				slog.Warn("account login failed", slog.String("user", acc.Username), slog.Any("error", err))
				acc.SetActive(false)
			}
		})
	}
	wg.Wait()

	for _, acc := range cfg.Accounts {
		if acc.IsActive() {
			return c, nil
		}
	}
	return nil, errors.New("no account could log in")
}

// newAccountClient returns a dedicated client for accounts behind their own proxy.
func newAccountClient(acc *Account) *stealth.BrowserClient {
	if acc.Proxy == "" {
		return nil
	}
	bc, err := stealth.NewClient(
		stealth.WithProxy(acc.Proxy),
		stealth.WithProfile(acc.Profile.TLSProfile),
		stealth.WithHeaderOrder(headerOrder),
	)
	if err != nil {
		slog.Warn("per-account client failed, using shared",
			slog.String("user", acc.Username),
			slog.String("proxy", stealth.MaskProxy(acc.Proxy)),
			slog.Any("error", err))
		return nil
	}
	return bc
}

func (c *Client) clientForAccount(acc *Account) *stealth.BrowserClient {
	if acc.client != nil {
		return acc.client
	}
	return c.shared
}

// doRequest sends one request with the wire header order. A nil body sends none.
func (c *Client) doRequest(bc *stealth.BrowserClient, method, urlStr string, headers map[string]string, body []byte) ([]byte, map[string]string, int, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	return bc.DoWithHeaderOrder(method, urlStr, headers, r, headerOrder)
}

// Pool exposes the account pool, e.g. for health reporting.
func (c *Client) Pool() *pool.Pool[*Account] {
	return c.pool
}

func (c *Client) recordAPICall(endpoint string, success, rateLimited bool) {
	if c.cfg.MetricsHook != nil {
		c.cfg.MetricsHook(endpoint, success, rateLimited)
	}
}
