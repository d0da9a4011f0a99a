package bankloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

// Notifier notifies the result of each run.
type Notifier interface {
	Notify(context.Context, *Report) error
}

// SlackNotifier is a notifier for Slack.
type SlackNotifier struct {
	Channel   string
	IconEmoji string
	Username  string
	Token     string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// URL overrides the chat.postMessage endpoint.
	URL string
}

type slackMessage struct {
	Channel   string `json:"channel"`
	IconEmoji string `json:"icon_emoji,omitempty"`
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Notify posts a summary of r to the Slack channel.
func (n *SlackNotifier) Notify(ctx context.Context, r *Report) error {
	m := &slackMessage{
		Channel:   n.Channel,
		IconEmoji: n.IconEmoji,
		Text:      summarize(r),
		Username:  n.Username,
	}
	log.Ctx(ctx).Debug().Str("channel", m.Channel).Str("text", m.Text).Msg("notifying slack")

	if err := n.postMessage(ctx, m); err != nil {
		return xerrors.Errorf("failed to notify %s: %w", n.Channel, err)
	}

	return nil
}

func summarize(r *Report) string {
	switch r.Outcome {
	case OutcomeLoaded:
		return fmt.Sprintf("bankloader loaded %d rows into %s (run %s)", r.Rows, r.Destination, r.RunID)
	case OutcomePreviewed:
		return fmt.Sprintf("bankloader previewed %d rows for %s (run %s)", r.Rows, r.Destination, r.RunID)
	case OutcomeWriteFailed:
		return fmt.Sprintf("bankloader failed to load %s, write was attempted (run %s): %s", r.Destination, r.RunID, r.Err)
	default:
		return fmt.Sprintf("bankloader failed for %s, nothing was written (run %s): %s", r.Destination, r.RunID, r.Err)
	}
}

func (n *SlackNotifier) client() *http.Client {
	if n.HTTPClient == nil {
		return http.DefaultClient
	}
	return n.HTTPClient
}

func (n *SlackNotifier) endpoint() string {
	if n.URL == "" {
		return slackPostMessageURL
	}
	return n.URL
}

func (n *SlackNotifier) postMessage(ctx context.Context, m *slackMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return xerrors.Errorf("failed to marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return xerrors.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+n.Token)

	resp, err := n.client().Do(req)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return xerrors.Errorf("failed to read response body: %w", err)
	}
	log.Ctx(ctx).Debug().Int("status", resp.StatusCode).Bytes("body", body).Msg("slack responded")

	if resp.StatusCode >= 400 {
		return xerrors.Errorf("slack returned status code %d (%s)", resp.StatusCode, body)
	}

	var sres slackResponse
	if err := json.Unmarshal(body, &sres); err != nil {
		return xerrors.Errorf("failed to unmarshal response body: %w", err)
	}
	if !sres.OK {
		return xerrors.Errorf("slack rejected the message: %s", sres.Error)
	}

	return nil
}
