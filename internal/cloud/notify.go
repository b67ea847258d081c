// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
)

// Notifier delivers run-lifecycle messages (start, skip, completion, abort)
// to an operator channel. Delivery is best-effort: implementations log
// failures and never propagate them, so a broken webhook cannot take down a
// collection run.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NopNotifier discards all messages.
type NopNotifier struct{}

func (NopNotifier) Notify(_ context.Context, _ string) {}

// SlackNotifier posts messages to a Slack incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	Client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackNotifier) Notify(ctx context.Context, message string) {
	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		slog.Warn("failed to encode slack payload", "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		slog.Warn("failed to build slack request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		slog.Warn("slack notification failed", "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		slog.Warn("slack webhook rejected notification", "status", resp.StatusCode)
	}
}

// PubSubNotifier publishes messages to a Pub/Sub topic so downstream
// consumers (dashboards, alerting) can react to run lifecycle events.
type PubSubNotifier struct {
	Topic *pubsub.Topic
}

func NewPubSubNotifier(client *pubsub.Client, topic string) *PubSubNotifier {
	return &PubSubNotifier{Topic: client.Topic(topic)}
}

func (p *PubSubNotifier) Notify(ctx context.Context, message string) {
	result := p.Topic.Publish(ctx, &pubsub.Message{Data: []byte(message)})
	if _, err := result.Get(ctx); err != nil {
		slog.Warn("pubsub notification failed", "error", err)
	}
}

// MultiNotifier fans a message out to every configured channel.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, message string) {
	for _, n := range m {
		n.Notify(ctx, message)
	}
}

// FormatRunMessage builds the standard operator message for a run event.
func FormatRunMessage(event string, concept string, detail string) string {
	if detail == "" {
		return fmt.Sprintf("[region-demand] %s: %s", event, concept)
	}
	return fmt.Sprintf("[region-demand] %s: %s (%s)", event, concept, detail)
}
