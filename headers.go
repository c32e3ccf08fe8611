package twitter

import (
	"maps"

	stealth "github.com/anatolykoptev/go-stealth"
)

// defaultUserAgent is sent when an account has no browser profile.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// baseHeaders are sent on every request, logged in or not.
func baseHeaders(userAgent, contentType string) map[string]string {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return map[string]string{
		"authorization":             "Bearer " + BearerToken,
		"content-type":              contentType,
		"x-twitter-active-user":     "yes",
		"x-twitter-client-language": "en",
		"user-agent":                userAgent,
		"accept":                    "*/*",
		"accept-language":           "en-US,en;q=0.9",
		"origin":                    "https://x.com",
	}
}

// apiHeaders adds the session cookies, CSRF token and browser hints for an
// authenticated call.
func apiHeaders(authToken, ct0, userAgent, contentType string) map[string]string {
	h := baseHeaders(userAgent, contentType)
	h["x-csrf-token"] = ct0
	h["x-twitter-auth-type"] = "OAuth2Session"
	h["cookie"] = "auth_token=" + authToken + "; ct0=" + ct0
	h["accept-encoding"] = "gzip, deflate, br"
	h["referer"] = "https://x.com/home"
	h["sec-fetch-dest"] = "empty"
	h["sec-fetch-mode"] = "cors"
	h["sec-fetch-site"] = "same-site"
	maps.Copy(h, stealth.ClientHintsHeaders(h["user-agent"]))
	return h
}

// loginFlowHeaders are used before any cookies exist.
func loginFlowHeaders(guestToken string) map[string]string {
	h := baseHeaders("", contentTypeJSON)
	h["x-guest-token"] = guestToken
	h["referer"] = "https://x.com/"
	return h
}

// headerOrder is the wire order of every header we may send; it must match the
// TLS profile's browser.
var headerOrder = []string{
	"authorization",
	"content-type",
	"x-csrf-token",
	"x-guest-token",
	"x-twitter-active-user",
	"x-twitter-auth-type",
	"x-twitter-client-language",
	"sec-ch-ua",
	"sec-ch-ua-mobile",
	"sec-ch-ua-platform",
	"sec-fetch-dest",
	"sec-fetch-mode",
	"sec-fetch-site",
	"cookie",
	"user-agent",
	"accept",
	"accept-language",
	"accept-encoding",
	"referer",
	"origin",
}
