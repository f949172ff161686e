// adapter/slackapi/client.go
package slackapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	boundary_errors "github.com/dev-mohitbeniwal/boundary/errors"
	logger "github.com/dev-mohitbeniwal/boundary/logging"
)

const (
	defaultBaseURL     = "https://slack.com/api"
	responseURLPrefix  = "https://hooks.slack.com/"
	requestTimeout     = 10 * time.Second
	notifyMaxAttempts  = 3
	notifyInitialDelay = time.Second
)

// TokenFunc supplies the bot token on demand so the secret stays in
// the process-wide secret cache, not in this struct.
type TokenFunc func(ctx context.Context) (string, error)

// Client is a thin wrapper over the two Slack Web API surfaces this
// system needs: the users.info directory lookup and the response_url
// outcome webhook.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenFunc
}

func NewClient(token TokenFunc) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local
// HTTP server.
func NewClientWithBaseURL(token TokenFunc, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type usersInfoResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	User  struct {
		Profile struct {
			Email string `json:"email"`
		} `json:"profile"`
	} `json:"user"`
}

// UserEmail translates a Slack user id into the profile email address.
// An HTTP 429 maps to ErrRateLimited so the resolver layer can back
// off; every other failure is terminal.
func (c *Client) UserEmail(ctx context.Context, userID string) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching bot token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users.info?user=%s", c.baseURL, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling users.info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("users.info: %w", boundary_errors.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("users.info: unexpected status %d", resp.StatusCode)
	}

	// Slack returns HTTP 200 even for logical errors, so the body has
	// to be inspected.
	var body usersInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding users.info response: %w", err)
	}
	if !body.OK {
		return "", fmt.Errorf("users.info rejected: %s: %w", body.Error, boundary_errors.ErrIdentityResolution)
	}
	if body.User.Profile.Email == "" {
		return "", fmt.Errorf("user has no email in Slack profile: %w", boundary_errors.ErrIdentityResolution)
	}

	return body.User.Profile.Email, nil
}

// ValidateResponseURL rejects response URLs that do not point back at
// Slack's webhook host.
func ValidateResponseURL(responseURL string) error {
	if !strings.HasPrefix(responseURL, responseURLPrefix) {
		return fmt.Errorf("response url must start with %s: %w", responseURLPrefix, boundary_errors.ErrInvalidInput)
	}
	return nil
}

type notifyPayload struct {
	ResponseType string       `json:"response_type"`
	Attachments  []attachment `json:"attachments"`
}

type attachment struct {
	Color string `json:"color"`
	Text  string `json:"text"`
}

// Notify posts an ephemeral outcome message to the requester's
// response_url. Best-effort: a bounded number of attempts, and the
// caller must never let a failure here touch the decision.
func (c *Client) Notify(ctx context.Context, responseURL, message string, success bool) error {
	if err := ValidateResponseURL(responseURL); err != nil {
		return err
	}

	color := "#2EB67D"
	if !success {
		color = "#E01E5A"
	}
	raw, err := json.Marshal(notifyPayload{
		ResponseType: "ephemeral",
		Attachments:  []attachment{{Color: color, Text: message}},
	})
	if err != nil {
		return err
	}

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(raw))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("slack reply returned status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = notifyInitialDelay
	policy.RandomizationFactor = 0.5

	if _, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(notifyMaxAttempts),
	); err != nil {
		logger.Warn("Failed to deliver Slack notification", zap.Error(err))
		return err
	}

	logger.Debug("Slack notification delivered")
	return nil
}
