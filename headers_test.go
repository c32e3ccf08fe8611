package twitter

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIHeaders(t *testing.T) {
	h := apiHeaders("tok", "csrf", "", contentTypeForm)

	assert.Equal(t, "csrf", h["x-csrf-token"])
	assert.Equal(t, "auth_token=tok; ct0=csrf", h["cookie"])
	assert.Equal(t, contentTypeForm, h["content-type"])
	assert.Equal(t, defaultUserAgent, h["user-agent"])
	assert.Equal(t, "Bearer "+BearerToken, h["authorization"])
	assert.NotContains(t, h, "x-guest-token")
}

func TestLoginFlowHeaders(t *testing.T) {
	h := loginFlowHeaders("guest")

	assert.Equal(t, "guest", h["x-guest-token"])
	assert.Equal(t, contentTypeJSON, h["content-type"])
	assert.NotContains(t, h, "cookie")
	assert.NotContains(t, h, "x-csrf-token")
}

func TestHeaderOrderCoversHeaders(t *testing.T) {
	for name := range apiHeaders("a", "b", "", contentTypeJSON) {
		if strings.HasPrefix(name, "sec-ch-") {
			continue
		}
		assert.True(t, slices.Contains(headerOrder, name), "missing %q from headerOrder", name)
	}
	for name := range loginFlowHeaders("g") {
		assert.True(t, slices.Contains(headerOrder, name), "missing %q from headerOrder", name)
	}
}
