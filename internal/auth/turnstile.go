package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lectorium/server/internal/apperr"
	"github.com/lectorium/server/internal/config"
)

// TurnstileVerifier gates the public register/login mutations behind a
// bot-verification challenge. Authenticated calls never pass through it; they
// present a session token instead.
type TurnstileVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewTurnstileVerifier(cfg config.TurnstileConfig, client *http.Client) *TurnstileVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &TurnstileVerifier{secret: cfg.Secret, verifyURL: cfg.VerifyURL, client: client}
}

// Verify checks the challenge token against the remote verification service.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, clientIP string) error {
	if token == "" {
		return apperr.Unauthenticated("Unauthorized")
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	form.Set("remoteip", clientIP)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return apperr.Internal(err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return apperr.Internal(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.Forbidden(fmt.Sprintf("Turnstile request failed with status: %d", resp.StatusCode))
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return apperr.Forbidden("Turnstile verification returned an unreadable response")
	}
	if !result.Success {
		return apperr.Forbidden("Turnstile token has already been used or timeout.")
	}
	return nil
}
