package twitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// maxSessionAttempts bounds how many accounts or refreshed sessions one call may try.
// Only session problems (429, CSRF, expired auth, banned account) move on to the
// next attempt; transport failures and other statuses are returned immediately.
const maxSessionAttempts = 3

// do executes an authenticated REST call using the next usable pool account.
func (c *Client) do(ctx context.Context, endpoint, method, url, contentType string, payload []byte) ([]byte, error) {
	// Anti-fingerprint jitter
	if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}

	var lastErr error
	for attempt := range maxSessionAttempts {
		if attempt > 0 {
			select {
			case <-time.After(stealth.DefaultBackoff.Duration(attempt)):
			case <-ctx.Done():
				return nil, &NetworkError{Endpoint: endpoint, Err: ctx.Err()}
			}
		}

		acc, err := c.pool.Next(func(a *Account) bool { return a.usable(endpoint) })
		if err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		if acc.ct0Stale() {
			acc.setCT0(GenerateCT0())
			slog.Info("ct0 rotated (proactive)", slog.String("user", acc.Username))
			c.saveSession(acc)
		}

		sess := acc.Session()
		headers := apiHeaders(sess.AuthToken, sess.CT0, acc.userAgent(), contentType)
		body, respHdrs, status, err := c.doRequest(c.clientForAccount(acc), method, url, headers, payload)
		if err != nil {
			if acc.Proxy != "" && isProxyError(err) {
				c.markProxyDown(acc)
			} else {
				acc.RecordFailure()
			}
			c.recordAPICall(endpoint, false, false)
			return nil, &NetworkError{Endpoint: endpoint, Err: err}
		}

		acc.proxyOK()

		if status == 429 {
			c.recordAPICall(endpoint, false, true)
			acc.markRateLimited(endpoint, parseRateLimitReset(respHdrs["x-rate-limit-reset"]))
			slog.Warn("rate limited, trying next account", slog.String("user", acc.Username), slog.String("endpoint", endpoint))
			lastErr = &NetworkError{Endpoint: endpoint, StatusCode: status, Err: errors.New("rate limited")}
			continue
		}

		errClass := classifyError(body)
		if status == 200 && errClass == errNone {
			if newCT0 := extractCT0(respHdrs); newCT0 != "" && newCT0 != sess.CT0 {
				acc.setCT0(newCT0)
				c.saveSession(acc)
			}
			c.recordAPICall(endpoint, true, false)
			acc.RecordSuccess()
			return body, nil
		}

		c.recordAPICall(endpoint, false, false)
		apiErr := &NetworkError{Endpoint: endpoint, StatusCode: status, Err: responseError(body)}
		if !c.recoverSession(ctx, acc, errClass) {
			// A duplicate status is the caller's mistake, not the account's.
			if errClass == errDuplicate {
				return nil, apiErr
			}
			if shouldDeactivate := acc.RecordFailure(); shouldDeactivate {
				total, failed, consec := acc.Stats()
				slog.Warn("account unhealthy, deactivating",
					slog.String("user", acc.Username),
					slog.Int("total", total),
					slog.Int("failed", failed),
					slog.Int("consec", consec))
				c.pool.DeactivateItem(acc)
			}
			slog.Warn("request failed", slog.String("endpoint", endpoint), slog.Int("status", status), slog.String("body", truncateBytes(body, 500)))
			return nil, apiErr
		}
		lastErr = apiErr
	}

	if lastErr == nil {
		lastErr = errors.New("no usable account")
	}
	var netErr *NetworkError
	if errors.As(lastErr, &netErr) {
		return nil, netErr
	}
	return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("pool exhausted: %w", lastErr)}
}

// recoverSession reacts to an account-level error class. It reports true when
// the request is worth another attempt with a refreshed or different account.
func (c *Client) recoverSession(ctx context.Context, acc *Account, class errorClass) bool {
	switch class {
	case errCSRF:
		slog.Warn("CSRF error 353, rotating ct0", slog.String("user", acc.Username))
		acc.setCT0(GenerateCT0())
		c.saveSession(acc)
		return true
	case errAuthExpired:
		slog.Warn("auth expired, attempting relogin", slog.String("user", acc.Username))
		if err := c.relogin(ctx, acc); err != nil {
			slog.Warn("relogin failed, soft-deactivating", slog.String("user", acc.Username), slog.Any("error", err))
			c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
		}
		return true
	case errBanned, errLocked:
		slog.Warn("account banned or locked", slog.String("user", acc.Username), slog.Int("class", int(class)))
		c.pool.SoftDeactivate(acc, c.cfg.BanCooldown)
		return true
	case errSuspended:
		slog.Warn("account suspended (code 64), permanently deactivating", slog.String("user", acc.Username))
		c.pool.DeactivateItem(acc)
		return true
	case errBlocked, errNotAuthorized:
		slog.Warn("account error", slog.String("user", acc.Username), slog.Int("class", int(class)))
		c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
		return true
	}
	return false
}

// responseError describes a failed response body.
func responseError(body []byte) error {
	if msg := apiErrorMessage(body); msg != "" {
		return errors.New(msg)
	}
	return errors.New(truncateBytes(body, 200))
}

// isProxyError returns true if the error looks like a proxy connectivity failure.
func isProxyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "proxy") ||
		strings.Contains(msg, "SOCKS") ||
		strings.Contains(msg, "tunnel") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host")
}

// markProxyDown applies exponential backoff for proxy failures.
func (c *Client) markProxyDown(acc *Account) {
	fails := acc.proxyFailed()
	duration := stealth.BackoffConfig{
		InitialWait: c.cfg.ProxyBackoffInitial,
		MaxWait:     c.cfg.ProxyBackoffMax,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}.Duration(fails - 1)

	acc.backOffProxy(duration)

	slog.Warn("proxy down, backing off",
		slog.String("user", acc.Username),
		slog.String("proxy", stealth.MaskProxy(acc.Proxy)),
		slog.Int("consec_fails", fails),
		slog.Duration("backoff", duration))
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
