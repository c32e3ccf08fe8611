package twitter

import (
	"time"

	"github.com/anatolykoptev/go-stealth/ratelimit"

	"github.com/anatolykoptev/go-timeline/captcha"
)

// DefaultPageSize is the number of tweets requested per timeline page.
const DefaultPageSize = 25

// ClientConfig configures a Client. Zero values are filled in by NewClient.
type ClientConfig struct {
	// Accounts to rotate through. At least one is required.
	Accounts []*Account

	// APIBase defaults to https://api.twitter.com. Tests point it at a local server.
	APIBase string
	// PageSize is the count sent with every home timeline request. Default: DefaultPageSize.
	PageSize int
	// DefaultProxy is used by accounts that have no proxy of their own.
	DefaultProxy string

	// Sessions keeps cookies between runs. Default: FileSessions under ~/.go-timeline/sessions.
	Sessions SessionStore
	// SessionTTL is how long a saved session is trusted without a fresh login. Default: 24h.
	SessionTTL time.Duration

	// CaptchaSolver answers the Arkose challenge during login. Optional: without
	// it such a login fails and the account must be seeded with cookies.
	CaptchaSolver captcha.Solver

	// AuthCooldown parks an account after an auth or permission error. Default: 1h.
	AuthCooldown time.Duration
	// BanCooldown parks a banned or locked account. Default: 6h.
	BanCooldown time.Duration
	// RateLimit is the per-account, per-endpoint request budget.
	RateLimit ratelimit.Config

	// ProxyBackoffInitial and ProxyBackoffMax bound the exponential backoff
	// applied to an account whose proxy keeps failing. Defaults: 30s and 30m.
	ProxyBackoffInitial time.Duration
	ProxyBackoffMax     time.Duration

	// MetricsHook, if set, is called once per HTTP response or transport failure
	// with the operation name and its outcome.
	MetricsHook func(endpoint string, success, rateLimited bool)
}

func (cfg *ClientConfig) defaults() {
	if cfg.APIBase == "" {
		cfg.APIBase = twitterAPIURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewFileSessions("")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.AuthCooldown <= 0 {
		cfg.AuthCooldown = time.Hour
	}
	if cfg.BanCooldown <= 0 {
		cfg.BanCooldown = 6 * time.Hour
	}
	if cfg.RateLimit.RequestsPerWindow == 0 {
		cfg.RateLimit = ratelimit.DefaultConfig
	}
	if cfg.ProxyBackoffInitial <= 0 {
		cfg.ProxyBackoffInitial = 30 * time.Second
	}
	if cfg.ProxyBackoffMax <= 0 {
		cfg.ProxyBackoffMax = 30 * time.Minute
	}
}
