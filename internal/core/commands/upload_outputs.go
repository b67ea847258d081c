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

package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/cor"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

// UploadOutputs copies the run's output files to a Cloud Storage bucket
// under a per-date prefix. The local files remain the source of truth; an
// upload failure is recorded as a partial failure and the chain continues.
type UploadOutputs struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
}

// NewUploadOutputs creates the upload command for the given bucket.
func NewUploadOutputs(name string, client *storage.Client, bucket string) *UploadOutputs {
	return &UploadOutputs{
		BaseCommand: *cor.NewBaseCommand(name),
		client:      client,
		bucket:      bucket,
	}
}

func (c *UploadOutputs) Execute(context cor.Context) {
	ctx := context.GetContext()
	run := context.Get(c.GetInputParam()).(*model.ConceptRun)

	for _, path := range run.OutputFiles {
		object := fmt.Sprintf("%s/%s", run.DateStamp(), filepath.Base(path))
		if err := c.upload(context, path, object); err != nil {
			run.AddFailure("upload", "", object, err)
			slog.Warn("failed to upload output file",
				"file", path,
				"bucket", c.bucket,
				"object", object,
				"error", err)
			continue
		}
		slog.Info("uploaded output file", "bucket", c.bucket, "object", object)
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), run)
}

func (c *UploadOutputs) upload(context cor.Context, path string, object string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := c.client.Bucket(c.bucket).Object(object).NewWriter(context.GetContext())
	w.ContentType = "text/csv"
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
