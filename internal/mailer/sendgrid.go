package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.sendgrid.com/v3/mail/send"

// Config wires the SendGrid client. An empty APIKey disables outbound mail;
// Enabled then reports false and the engine maps that to ErrMailDelivery on
// flows that need email.
type Config struct {
	APIKey      string
	FromEmail   string
	FromName    string
	ProjectName string
	// FrontendURL is the base the reset/setup links point at.
	FrontendURL string
	// BaseURL overrides the SendGrid endpoint, used by tests.
	BaseURL string

	ResetValidity time.Duration
	SetupValidity time.Duration
}

// Client implements svcwatch.Mailer over the SendGrid v3 REST API.
type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ProjectName == "" {
		cfg.ProjectName = "svcwatch"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Enabled reports whether outbound mail is configured.
func (c *Client) Enabled() bool {
	return c.config.APIKey != "" && c.config.FromEmail != ""
}

// SendPasswordReset emails a reset link carrying the action token.
func (c *Client) SendPasswordReset(ctx context.Context, to, token string) error {
	subject := fmt.Sprintf("%s - Password recovery for user %s", c.config.ProjectName, to)
	link := c.config.FrontendURL + "/reset-password?token=" + token
	return c.send(ctx, to, subject, "reset_password", templateContext{
		ProjectName: c.config.ProjectName,
		Username:    to,
		Link:        link,
		Validity:    c.config.ResetValidity.String(),
	})
}

// SendPasswordSetup emails a first-time setup link.
func (c *Client) SendPasswordSetup(ctx context.Context, to, token string) error {
	subject := fmt.Sprintf("%s - Password set up for user %s", c.config.ProjectName, to)
	link := c.config.FrontendURL + "/setup-password?token=" + token
	return c.send(ctx, to, subject, "setup_password", templateContext{
		ProjectName: c.config.ProjectName,
		Username:    to,
		Link:        link,
		Validity:    c.config.SetupValidity.String(),
	})
}

// SendAccountCreated emails a new-account notice with the setup link.
func (c *Client) SendAccountCreated(ctx context.Context, to, username, token string) error {
	subject := fmt.Sprintf("%s - New account for user %s", c.config.ProjectName, username)
	link := c.config.FrontendURL + "/setup-password?token=" + token
	return c.send(ctx, to, subject, "new_account", templateContext{
		ProjectName: c.config.ProjectName,
		Username:    username,
		Link:        link,
		Validity:    c.config.SetupValidity.String(),
	})
}

// sendgridMessage is the subset of the v3 mail/send body we use.
type sendgridMessage struct {
	Personalizations []struct {
		To []sendgridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendgridAddress   `json:"from"`
	Subject string            `json:"subject"`
	Content []sendgridContent `json:"content"`
}

type sendgridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c *Client) send(ctx context.Context, to, subject, templateName string, tc templateContext) error {
	if !c.Enabled() {
		return fmt.Errorf("mailer: outbound mail not configured")
	}

	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, templateName, tc); err != nil {
		return fmt.Errorf("mailer: render %s: %w", templateName, err)
	}

	msg := sendgridMessage{
		From:    sendgridAddress{Email: c.config.FromEmail, Name: c.config.FromName},
		Subject: subject,
		Content: []sendgridContent{{Type: "text/html", Value: body.String()}},
	}
	msg.Personalizations = append(msg.Personalizations, struct {
		To []sendgridAddress `json:"to"`
	}{To: []sendgridAddress{{Email: to}}})

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mailer: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "sendgrid rejected message",
			slog.Int("status", resp.StatusCode), slog.String("subject", subject))
		return fmt.Errorf("mailer: sendgrid status %d", resp.StatusCode)
	}
	return nil
}
