package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSolver struct {
	mu        sync.Mutex
	publicKey string
	pageURL   string
	token     string
	err       error
}

func (f *fakeSolver) Solve(_ context.Context, publicKey, pageURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publicKey, f.pageURL = publicKey, pageURL
	return f.token, f.err
}

func (f *fakeSolver) Balance(context.Context) (float64, error) { return 10, nil }

// onboardingServer answers the guest token and login flow endpoints. The
// flow always asks for an Arkose challenge and denies the login afterwards,
// recording the subtask input it received.
type onboardingServer struct {
	*httptest.Server

	mu          sync.Mutex
	guestTokens []string
	inputs      []map[string]any
}

func newOnboardingServer(t *testing.T) *onboardingServer {
	t.Helper()
	s := &onboardingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == guestPath:
			w.Write([]byte(`{"guest_token":"g1"}`))
		case r.URL.Path == onboardingPath && r.URL.Query().Get("flow_name") == "login":
			s.mu.Lock()
			s.guestTokens = append(s.guestTokens, r.Header.Get("x-guest-token"))
			s.mu.Unlock()
			w.Write([]byte(`{"flow_token":"f1","subtasks":[{"subtask_id":"LoginArkoseChallenge"}]}`))
		case r.URL.Path == onboardingPath:
			var body struct {
				FlowToken     string           `json:"flow_token"`
				SubtaskInputs []map[string]any `json:"subtask_inputs"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.SubtaskInputs) == 0 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			s.mu.Lock()
			s.inputs = append(s.inputs, body.SubtaskInputs[0])
			s.mu.Unlock()
			w.Write([]byte(`{"flow_token":"f2","subtasks":[{"subtask_id":"DenyLoginSubtask"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func loginClient(t *testing.T, base string, solver *fakeSolver) (*Client, *stealth.BrowserClient) {
	t.Helper()
	cfg := ClientConfig{APIBase: base, Sessions: NewFileSessions(t.TempDir())}
	if solver != nil {
		cfg.CaptchaSolver = solver
	}
	bc, err := stealth.NewClient(stealth.WithHeaderOrder(headerOrder))
	require.NoError(t, err)
	return &Client{shared: bc, cfg: cfg}, bc
}

func TestLogin_ArkoseChallengeSolved(t *testing.T) {
	srv := newOnboardingServer(t)
	solver := &fakeSolver{token: "solved-token"}
	c, bc := loginClient(t, srv.URL, solver)

	err := c.login(context.Background(), &Account{Username: "alice", Password: "pw"}, bc)
	require.ErrorContains(t, err, "login denied", "flow continued past the challenge")

	solver.mu.Lock()
	assert.Equal(t, arkosePublicKey, solver.publicKey)
	assert.Equal(t, captchaPageURL, solver.pageURL)
	solver.mu.Unlock()

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, []string{"g1"}, srv.guestTokens)
	require.Len(t, srv.inputs, 1)
	input := srv.inputs[0]
	assert.Equal(t, "LoginArkoseChallenge", input["subtask_id"])
	modal, ok := input["web_modal"].(map[string]any)
	require.True(t, ok, "web_modal input sent")
	assert.Equal(t, "twitter://onboarding/web_modal/next_link?access_token=solved-token", modal["completion_deeplink"])
}

func TestLogin_ArkoseWithoutSolver(t *testing.T) {
	srv := newOnboardingServer(t)
	c, bc := loginClient(t, srv.URL, nil)

	err := c.login(context.Background(), &Account{Username: "alice", Password: "pw"}, bc)
	require.ErrorContains(t, err, "no solver configured")

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Empty(t, srv.inputs, "nothing submitted without a token")
}

func TestLogin_ArkoseSolverFails(t *testing.T) {
	srv := newOnboardingServer(t)
	boom := errors.New("no balance")
	c, bc := loginClient(t, srv.URL, &fakeSolver{err: boom})

	err := c.login(context.Background(), &Account{Username: "alice", Password: "pw"}, bc)
	require.ErrorIs(t, err, boom)
}
