package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	capsolverURL = "https://api.capsolver.com"
	lowBalance   = 5.0
)

// Capsolver is a Solver backed by the capsolver.com task API.
type Capsolver struct {
	apiKey  string
	baseURL string
	http    *http.Client

	// PollEvery is the wait between result polls. Default: 3s.
	PollEvery time.Duration
	// Timeout bounds one Solve call. Default: 2m.
	Timeout time.Duration
}

// NewCapsolver returns a solver using apiKey.
func NewCapsolver(apiKey string) *Capsolver {
	return &Capsolver{
		apiKey:    apiKey,
		baseURL:   capsolverURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		PollEvery: 3 * time.Second,
		Timeout:   2 * time.Minute,
	}
}

// apiError is the error envelope shared by every capsolver response.
type apiError struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

func (e apiError) err() error {
	if e.ErrorID == 0 {
		return nil
	}
	return fmt.Errorf("capsolver %s: %s", e.ErrorCode, e.ErrorDescription)
}

// Solve creates a proxyless FunCaptcha task and polls until it is ready.
func (s *Capsolver) Solve(ctx context.Context, publicKey, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if bal, err := s.Balance(ctx); err == nil && bal < lowBalance {
		slog.Warn("capsolver balance low", slog.Float64("balance", bal))
	}

	var created struct {
		apiError
		TaskID string `json:"taskId"`
	}
	err := s.call(ctx, "/createTask", map[string]any{
		"clientKey": s.apiKey,
		"task": map[string]any{
			"type":             "FunCaptchaTaskProxyLess",
			"websiteURL":       pageURL,
			"websitePublicKey": publicKey,
		},
	}, &created)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	if err := created.err(); err != nil {
		return "", err
	}
	if created.TaskID == "" {
		return "", errors.New("capsolver: no task id")
	}
	slog.Debug("captcha task created", slog.String("task", created.TaskID))

	for {
		var result struct {
			apiError
			Status   string `json:"status"`
			Solution struct {
				Token string `json:"token"`
			} `json:"solution"`
		}
		err := s.call(ctx, "/getTaskResult", map[string]any{
			"clientKey": s.apiKey,
			"taskId":    created.TaskID,
		}, &result)
		if err != nil {
			return "", fmt.Errorf("task result: %w", err)
		}
		if err := result.err(); err != nil {
			return "", err
		}

		switch result.Status {
		case "ready":
			if result.Solution.Token == "" {
				return "", errors.New("capsolver: ready without token")
			}
			slog.Info("captcha solved", slog.String("task", created.TaskID))
			return result.Solution.Token, nil
		case "idle", "processing":
		default:
			return "", fmt.Errorf("capsolver: unexpected status %q", result.Status)
		}

		select {
		case <-time.After(s.PollEvery):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Balance implements Solver.
func (s *Capsolver) Balance(ctx context.Context) (float64, error) {
	var resp struct {
		apiError
		Balance float64 `json:"balance"`
	}
	if err := s.call(ctx, "/getBalance", map[string]any{"clientKey": s.apiKey}, &resp); err != nil {
		return 0, err
	}
	if err := resp.err(); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// call POSTs payload as JSON to path and decodes the reply into out.
func (s *Capsolver) call(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.baseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, data[:min(200, len(data))])
	}
	return json.Unmarshal(data, out)
}
