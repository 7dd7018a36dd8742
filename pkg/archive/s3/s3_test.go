// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package s3_test

import (
	"context"
	"os"
	"testing"

	"github.com/leseb/jsondemux/pkg/archive"
	"github.com/leseb/jsondemux/pkg/archive/archivetest"
	archives3 "github.com/leseb/jsondemux/pkg/archive/s3"
)

func TestS3Conformance(t *testing.T) {
	bucket := os.Getenv("ARCHIVE_STORE_S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping s3 conformance tests: ARCHIVE_STORE_S3_BUCKET must be set")
	}

	archivetest.RunConformanceTests(t, func(t *testing.T) archive.Store {
		store, err := archives3.New(context.Background(), archives3.Options{
			Bucket:   bucket,
			Region:   os.Getenv("ARCHIVE_STORE_S3_REGION"),
			Endpoint: os.Getenv("ARCHIVE_STORE_S3_ENDPOINT"),
			Prefix:   "archivetest/",
		})
		if err != nil {
			t.Fatalf("s3.New: %v", err)
		}
		return store
	})
}
