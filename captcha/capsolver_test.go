package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSolver(t *testing.T, handler http.HandlerFunc) *Capsolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewCapsolver("key")
	s.baseURL = srv.URL
	s.PollEvery = time.Millisecond
	return s
}

func TestCapsolverSolve(t *testing.T) {
	var polls atomic.Int32
	s := newTestSolver(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "key", req["clientKey"])

		switch r.URL.Path {
		case "/getBalance":
			w.Write([]byte(`{"errorId":0,"balance":12.5}`))
		case "/createTask":
			task := req["task"].(map[string]any)
			assert.Equal(t, "FunCaptchaTaskProxyLess", task["type"])
			assert.Equal(t, "PUBKEY", task["websitePublicKey"])
			w.Write([]byte(`{"errorId":0,"taskId":"t1"}`))
		case "/getTaskResult":
			assert.Equal(t, "t1", req["taskId"])
			if polls.Add(1) < 3 {
				w.Write([]byte(`{"errorId":0,"status":"processing"}`))
				return
			}
			w.Write([]byte(`{"errorId":0,"status":"ready","solution":{"token":"solved"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	token, err := s.Solve(context.Background(), "PUBKEY", "https://twitter.com")
	require.NoError(t, err)
	assert.Equal(t, "solved", token)
	assert.Equal(t, int32(3), polls.Load())
}

func TestCapsolverErrors(t *testing.T) {
	s := newTestSolver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getBalance":
			w.WriteHeader(http.StatusInternalServerError)
		case "/createTask":
			w.Write([]byte(`{"errorId":1,"errorCode":"ERROR_KEY_DENIED_ACCESS","errorDescription":"bad key"}`))
		}
	})

	_, err := s.Balance(context.Background())
	assert.ErrorContains(t, err, "HTTP 500")

	_, err = s.Solve(context.Background(), "PUBKEY", "https://twitter.com")
	assert.ErrorContains(t, err, "ERROR_KEY_DENIED_ACCESS")
}

func TestCapsolverTimeout(t *testing.T) {
	s := newTestSolver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/createTask":
			w.Write([]byte(`{"errorId":0,"taskId":"t1"}`))
		default:
			w.Write([]byte(`{"errorId":0,"status":"processing","balance":10}`))
		}
	})
	s.Timeout = 20 * time.Millisecond

	_, err := s.Solve(context.Background(), "PUBKEY", "https://twitter.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
