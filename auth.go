package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/pquerna/otp/totp"
)

const (
	onboardingPath = "/1.1/onboarding/task.json"
	guestPath      = "/1.1/guest/activate.json"
	maxLoginRounds = 10
	loginTimeout   = 3 * time.Minute

	// arkosePublicKey is the FunCaptcha key of the login page.
	arkosePublicKey = "0152B4EB-D2DC-460A-89A1-629838B529C9"
	captchaPageURL  = "https://twitter.com"
)

// loadOrLogin attempts to load a persisted session, falling back to login.
func (c *Client) loadOrLogin(ctx context.Context, acc *Account) error {
	if s, ok := c.loadSession(ctx, acc.Username); ok {
		acc.setSession(s.AuthToken, s.CT0)
		slog.Info("loaded saved session", slog.String("user", acc.Username))
		return nil
	}

	if acc.LoggedIn() {
		slog.Info("using provided credentials", slog.String("user", acc.Username))
		c.saveSession(acc)
		return nil
	}

	if acc.Password == "" {
		return fmt.Errorf("no session and no password for account %s", acc.Username)
	}

	if err := c.login(ctx, acc, c.clientForAccount(acc)); err != nil {
		return fmt.Errorf("login failed for %s: %w", acc.Username, err)
	}
	c.saveSession(acc)
	return nil
}

// relogin clears auth credentials and performs a fresh login.
func (c *Client) relogin(ctx context.Context, acc *Account) error {
	slog.Info("attempting relogin", slog.String("user", acc.Username))

	acc.setSession("", "")
	if err := c.cfg.Sessions.DeleteSession(ctx, acc.Username); err != nil {
		slog.Warn("session delete failed", slog.String("user", acc.Username), slog.Any("error", err))
	}

	if acc.Password == "" {
		return fmt.Errorf("relogin %s: no password", acc.Username)
	}
	if err := c.login(ctx, acc, c.clientForAccount(acc)); err != nil {
		return fmt.Errorf("relogin %s: %w", acc.Username, err)
	}
	c.saveSession(acc)

	acc.Reset()
	slog.Info("relogin succeeded", slog.String("user", acc.Username))
	return nil
}

// flowResponse is one step of the onboarding task flow.
type flowResponse struct {
	FlowToken string `json:"flow_token"`
	Subtasks  []struct {
		SubtaskID string `json:"subtask_id"`
	} `json:"subtasks"`
}

// login walks the onboarding login flow until it reaches a terminal subtask.
func (c *Client) login(ctx context.Context, acc *Account, bc *stealth.BrowserClient) error {
	slog.Info("logging in", slog.String("user", acc.Username))

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	guestToken, err := c.getGuestToken(bc)
	if err != nil {
		return fmt.Errorf("get guest token: %w", err)
	}

	fr, err := c.submitFlow(bc, guestToken, "?flow_name=login", loginFlowInit)
	if err != nil {
		return fmt.Errorf("init login flow: %w", err)
	}

	for round := 0; round < maxLoginRounds && len(fr.Subtasks) > 0; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		subtaskID := fr.Subtasks[0].SubtaskID
		slog.Debug("login subtask", slog.String("user", acc.Username), slog.String("subtask", subtaskID))

		var input map[string]any
		switch subtaskID {
		case "LoginJsInstrumentationSubtask":
			input = map[string]any{"js_instrumentation": map[string]any{
				"response": `{"rf":{"a":"b"},"s":"s"}`, "link": "next_link",
			}}
		case "LoginEnterUserIdentifierSSO":
			input = map[string]any{"settings_list": map[string]any{
				"setting_responses": []any{map[string]any{
					"key":           "user_identifier",
					"response_data": map[string]any{"text_data": map[string]any{"result": acc.Username}},
				}},
				"link": "next_link",
			}}
		case "LoginEnterAlternateIdentifierSubtask":
			input = map[string]any{"enter_text": map[string]any{"text": acc.Username, "link": "next_link"}}
		case "LoginEnterPassword":
			input = map[string]any{"enter_password": map[string]any{"password": acc.Password, "link": "next_link"}}
		case "LoginTwoFactorAuthChallenge":
			if acc.TOTPSecret == "" {
				return fmt.Errorf("2FA required but no TOTP secret for %s", acc.Username)
			}
			code, err := totp.GenerateCode(acc.TOTPSecret, time.Now())
			if err != nil {
				return fmt.Errorf("TOTP code generation failed for %s: %w", acc.Username, err)
			}
			input = map[string]any{"enter_text": map[string]any{"text": code, "link": "next_link"}}
		case "LoginArkoseChallenge", "LoginArkoseCaptcha", "LoginEnterRecaptcha":
			if c.cfg.CaptchaSolver == nil {
				return fmt.Errorf("CAPTCHA required for %s and no solver configured; pass auth_token:ct0 instead", acc.Username)
			}
			token, err := c.cfg.CaptchaSolver.Solve(ctx, arkosePublicKey, captchaPageURL)
			if err != nil {
				return fmt.Errorf("CAPTCHA solve for %s: %w", acc.Username, err)
			}
			slog.Info("CAPTCHA solved for login", slog.String("user", acc.Username))
			input = map[string]any{"web_modal": map[string]any{
				"completion_deeplink": "twitter://onboarding/web_modal/next_link?access_token=" + token,
			}}
		case "DenyLoginSubtask":
			return fmt.Errorf("login denied for %s (account may be locked or disabled)", acc.Username)
		case "LoginSuccessSubtask", "AccountDuplicationCheck":
			return c.finishLogin(acc, bc)
		default:
			slog.Warn("unknown login subtask, skipping", slog.String("user", acc.Username), slog.String("subtask", subtaskID))
			input = map[string]any{"action_list": map[string]any{"link": "next_link"}}
		}

		input["subtask_id"] = subtaskID
		payload, err := json.Marshal(map[string]any{
			"flow_token":     fr.FlowToken,
			"subtask_inputs": []any{input},
		})
		if err != nil {
			return err
		}
		if fr, err = c.submitFlow(bc, guestToken, "", string(payload)); err != nil {
			return fmt.Errorf("login subtask %s for %s: %w", subtaskID, acc.Username, err)
		}
	}
	return c.finishLogin(acc, bc)
}

// finishLogin reads the session cookies set by the login flow.
func (c *Client) finishLogin(acc *Account, bc *stealth.BrowserClient) error {
	cookie := func(name string) string {
		if v := bc.GetCookieValue(c.cfg.APIBase, name); v != "" {
			return v
		}
		return bc.GetCookieValue("https://x.com", name)
	}
	authToken := cookie("auth_token")
	if authToken == "" {
		return fmt.Errorf("login completed but no auth_token in cookies for %s", acc.Username)
	}
	ct0 := cookie("ct0")
	if ct0 == "" {
		ct0 = GenerateCT0()
	}
	acc.setSession(authToken, ct0)
	slog.Info("login successful", slog.String("user", acc.Username))
	return nil
}

// submitFlow posts one onboarding request and decodes the next step.
func (c *Client) submitFlow(bc *stealth.BrowserClient, guestToken, query, payload string) (*flowResponse, error) {
	body, _, status, err := c.doRequest(bc, "POST", c.cfg.APIBase+onboardingPath+query, loginFlowHeaders(guestToken), []byte(payload))
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("flow step HTTP %d: %s", status, truncateBytes(body, 300))
	}
	var fr flowResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("parse flow response: %w", err)
	}
	if fr.FlowToken == "" {
		return nil, fmt.Errorf("empty flow_token in response: %s", truncateBytes(body, 200))
	}
	return &fr, nil
}

// getGuestToken fetches a guest token for the login flow.
func (c *Client) getGuestToken(bc *stealth.BrowserClient) (string, error) {
	body, _, status, err := c.doRequest(bc, "POST", c.cfg.APIBase+guestPath, baseHeaders("", contentTypeJSON), nil)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("guest token: HTTP %d", status)
	}
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.GuestToken == "" {
		return "", fmt.Errorf("empty guest token in response")
	}
	return resp.GuestToken, nil
}

// loginFlowInit is the subtask_versions body for flow_name=login.
const loginFlowInit = `{"input_flow_data":{"flow_context":{"debug_overrides":{},"start_location":{"location":"splash_screen"}}},"subtask_versions":{"action_list":2,"alert_dialog":1,"app_download_cta":1,"check_logged_in_account":1,"choice_selection":3,"contacts_live_sync_permission_prompt":0,"cta":7,"email_verification":2,"end_flow":1,"enter_date":1,"enter_email":2,"enter_password":5,"enter_phone":2,"enter_recaptcha":1,"enter_text":5,"enter_username":2,"generic_urt":3,"in_app_notification":1,"interest_picker":3,"js_instrumentation":1,"menu_dialog":1,"notifications_permission_prompt":2,"open_account":2,"open_home_timeline":1,"open_link":1,"phone_verification":4,"privacy_options":1,"security_key":3,"select_avatar":4,"select_banner":2,"settings_list":7,"show_code":1,"sign_up":2,"sign_up_review":4,"tweet_selection_urt":1,"update_users":1,"upload_media":1,"user_recommendations_list":4,"user_recommendations_urt":1,"wait_spinner":3,"web_modal":1}}`
