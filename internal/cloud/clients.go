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

// ServiceClients is the dependency-injection container holding every remote
// collaborator a collection run needs. Wiring it up in one place keeps the
// command and workflow layers free of client-construction concerns and lets
// tests swap in fakes member by member.
package cloud

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/locality"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
)

// ServiceClients holds the remote service handles for a run.
//
// Structs:
//   - ServiceClients: the container of YouTube, GCP sink, language-detection,
//     and notification collaborators.
type ServiceClients struct {
	YouTube        DataAPI
	StorageClient  *storage.Client
	BigQueryClient *bigquery.Client
	PubSubClient   *pubsub.Client
	Detector       locality.Detector
	Notifier       Notifier
}

// NewServiceClients builds the container from configuration. The YouTube
// client is mandatory; the GCS, BigQuery, and Pub/Sub clients are only
// created when the corresponding sink or topic is configured. The API key is
// read from the environment so it never lands in a config file.
func NewServiceClients(ctx context.Context, cfg *Config, runState *state.RunState) (*ServiceClients, error) {
	apiKey := os.Getenv(cfg.YouTube.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key: environment variable %s is not set", cfg.YouTube.APIKeyEnv)
	}
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	out := &ServiceClients{
		YouTube:  NewYouTubeDataAPI(service, cfg.YouTube, NewExecutor(), runState),
		Detector: locality.NewLinguaDetector(),
		Notifier: NopNotifier{},
	}

	if cfg.Sinks.GCSBucket != "" {
		out.StorageClient, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
	}
	if cfg.Sinks.BigQueryDataSource.DatasetName != "" {
		out.BigQueryClient, err = bigquery.NewClient(ctx, cfg.Application.GoogleProjectId)
		if err != nil {
			return nil, fmt.Errorf("failed to create bigquery client: %w", err)
		}
	}

	var notifiers MultiNotifier
	if url := os.Getenv(cfg.Notifications.SlackWebhookEnv); url != "" {
		notifiers = append(notifiers, NewSlackNotifier(url))
	}
	if topic := cfg.Notifications.PubSubTopic; topic != "" {
		out.PubSubClient, err = pubsub.NewClient(ctx, cfg.Application.GoogleProjectId)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		notifiers = append(notifiers, NewPubSubNotifier(out.PubSubClient, topic))
	}
	if len(notifiers) > 0 {
		out.Notifier = notifiers
	}

	return out, nil
}

// Close releases the GCP client connections. The YouTube service holds no
// resources that need explicit teardown.
func (s *ServiceClients) Close() {
	if s.StorageClient != nil {
		_ = s.StorageClient.Close()
	}
	if s.BigQueryClient != nil {
		_ = s.BigQueryClient.Close()
	}
	if s.PubSubClient != nil {
		_ = s.PubSubClient.Close()
	}
}
