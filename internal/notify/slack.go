package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Slack posts apply outcomes to an incoming webhook. Test rounds are not
// forwarded.
type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *Slack) Notify(ctx context.Context, e Event) error {
	if s == nil || s.Webhook == "" || e.Kind == KindTestDone {
		return nil
	}
	title, text := slackMessage(e)
	body, _ := json.Marshal(slackPayload{Text: "*" + title + "*\n" + text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.New("slack non-2xx")
	}
	return nil
}

func slackMessage(e Event) (title, text string) {
	switch e.Kind {
	case KindApplied:
		title = "🟢 Resolver changed"
	case KindNothingToApply:
		title = "🟡 No resolver reachable"
	case KindPermissionDenied:
		title = "🔴 Resolver change needs elevated privileges"
	default:
		title = "🔴 Resolver change failed"
	}

	best := "n/a"
	if e.Best != nil {
		best = fmt.Sprintf("%s (%s, %s)", e.Best.Label, e.Best.Address, e.Best.Latency)
	}
	text = fmt.Sprintf("Previous: %s\nSelected: %s\nNow: %s\nAt: %s",
		e.Previous.Address, best, e.Confirmation.Address, e.At.Format(time.RFC3339))
	if e.Error != "" {
		text += "\nError: " + e.Error
	}
	return title, text
}
