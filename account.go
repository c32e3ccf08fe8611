package twitter

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Account is one login used to read and post to the home timeline.
// Accounts rotate through a pool; each carries its own cookies, proxy,
// browser profile, rate limits and health.
type Account struct {
	Username   string
	Password   string
	TOTPSecret string
	Proxy      string
	Profile    stealth.BrowserProfile

	client *stealth.BrowserClient

	// pool.Identity state.
	active       bool
	reactivateAt time.Time

	mu         sync.Mutex
	cookies    Session
	ct0At      time.Time
	proxyUntil time.Time
	proxyFails int
	limiter    *ratelimit.Limiter

	pool.HealthTracker
}

func (a *Account) ID() string { return a.Username }
func (a *Account) IsActive() bool { return a.active }
func (a *Account) SetActive(v bool) { a.active = v }
func (a *Account) ReactivateAt() time.Time { return a.reactivateAt }
func (a *Account) SetReactivateAt(t time.Time) { a.reactivateAt = t }

// Session returns the account's current cookies.
func (a *Account) Session() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cookies
}

// LoggedIn reports whether both auth cookies are set.
func (a *Account) LoggedIn() bool {
	s := a.Session()
	return s.AuthToken != "" && s.CT0 != ""
}

func (a *Account) userAgent() string {
	return a.Profile.UserAgent
}

// setSession replaces both cookies and restarts the ct0 clock.
func (a *Account) setSession(authToken, ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cookies.AuthToken = authToken
	a.cookies.CT0 = ct0
	a.cookies.SavedAt = time.Now()
	a.ct0At = a.cookies.SavedAt
}

// setCT0 installs a new CSRF token, either server-issued or freshly generated.
func (a *Account) setCT0(ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cookies.CT0 = ct0
	a.ct0At = time.Now()
}

// ct0Stale reports whether ct0 should be rotated before the next request.
// A token with no known age is stale.
func (a *Account) ct0Stale() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ct0At.IsZero() || time.Since(a.ct0At) > ct0MaxAge
}

// usable reports whether the account may serve a request to endpoint right now.
func (a *Account) usable(endpoint string) bool {
	a.mu.Lock()
	rl := a.limiter
	backoff := a.proxyUntil
	a.mu.Unlock()
	if time.Now().Before(backoff) {
		return false
	}
	return rl == nil || rl.Allow(endpoint)
}

// markRateLimited blocks endpoint for this account until the given time.
func (a *Account) markRateLimited(endpoint string, until time.Time) {
	a.mu.Lock()
	rl := a.limiter
	a.mu.Unlock()
	if rl != nil {
		rl.MarkRateLimited(endpoint, until)
	}
}

// proxyFailed records a proxy failure and returns the consecutive count.
func (a *Account) proxyFailed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxyFails++
	return a.proxyFails
}

func (a *Account) proxyOK() {
	a.mu.Lock()
	a.proxyFails = 0
	a.mu.Unlock()
}

func (a *Account) backOffProxy(d time.Duration) {
	a.mu.Lock()
	a.proxyUntil = time.Now().Add(d)
	a.mu.Unlock()
}

// AssignBrowserProfile gives acc the idx-th builtin browser profile, wrapping around.
func AssignBrowserProfile(acc *Account, idx int) {
	acc.Profile = stealth.BuiltinProfiles[idx%len(stealth.BuiltinProfiles)]
}

// ParseAccounts reads a comma-separated account list. Each entry is
// user:pass, user:pass:auth_token:ct0 or user:pass:auth_token:ct0:totp_secret.
// Malformed entries are logged and skipped.
func ParseAccounts(raw string) []*Account {
	var accounts []*Account
	for entry := range strings.SplitSeq(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		f := strings.SplitN(entry, ":", 5)
		if len(f) < 2 || f[0] == "" {
			slog.Warn("invalid account entry, skipping", slog.String("entry", entry))
			continue
		}
		acc := &Account{Username: f[0], Password: f[1], active: true}
		if len(f) >= 4 {
			acc.setSession(f[2], f[3])
		}
		if len(f) == 5 {
			acc.TOTPSecret = f[4]
		}
		AssignBrowserProfile(acc, len(accounts))
		accounts = append(accounts, acc)
	}
	return accounts
}
