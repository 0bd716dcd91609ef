package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/packcredits/backend/pkg/config"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

// Email is a single outbound message handed to the relay. HTMLBody is the
// optional rich variant; the relay falls back to the plain Body without it.
type Email struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"html_body,omitempty"`
}

// Mailer delivers email. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// RelayClient posts messages to the internal mail relay over HTTP.
type RelayClient struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// RelayOption configures optional client behavior.
type RelayOption func(*RelayClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) RelayOption {
	return func(c *RelayClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewRelayClient builds a relay client from mailer config.
func NewRelayClient(cfg config.MailerConfig, opts ...RelayOption) (*RelayClient, error) {
	baseURL := strings.TrimSpace(cfg.RelayURL)
	if baseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mail relay url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &RelayClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   cfg.APIToken,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Send posts one message to the relay.
func (c *RelayClient) Send(ctx context.Context, email Email) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mail relay client not configured")
	}
	if strings.TrimSpace(email.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}

	payload, err := json.Marshal(email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal email")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build relay request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute relay request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"mail relay rejected message")
	}
	return nil
}
