// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/leseb/jsondemux/pkg/archive"
)

func init() {
	archive.Providers.Register("s3", func(ctx context.Context, params map[string]string) (archive.Store, error) {
		return New(ctx, Options{
			Bucket:   params["bucket"],
			Region:   params["region"],
			Prefix:   params["prefix"],
			Endpoint: params["endpoint"],
		})
	})
}

// compile-time check
var _ archive.Store = (*Store)(nil)

// Options configures the S3 backend.
type Options struct {
	Bucket   string // required
	Region   string
	Prefix   string // key prefix, e.g. "transcripts/"
	Endpoint string // custom endpoint for MinIO compatibility
}

// Store implements archive.Store backed by S3 (or MinIO).
//
// S3 objects cannot be appended to, so Append serializes read-modify-write
// per session under a local mutex. This bounds append throughput to what a
// single process can do; a real multi-writer deployment would need a
// server-side append primitive or a per-chunk object layout instead.
type Store struct {
	client *s3.Client
	bucket string
	prefix string

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// New creates an S3-backed archive Store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 archive: bucket is required")
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, s3Opts...)

	return &Store{
		client:   client,
		bucket:   opts.Bucket,
		prefix:   opts.Prefix,
		sessions: make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID + ".transcript"
}

func (s *Store) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.sessions[sessionID]
	if !ok {
		lk = &sync.Mutex{}
		s.sessions[sessionID] = lk
	}
	return lk
}

// Append reads the current object (if any), appends chunk, and rewrites it.
func (s *Store) Append(ctx context.Context, sessionID string, chunk []byte) error {
	lk := s.lockFor(sessionID)
	lk.Lock()
	defer lk.Unlock()

	existing, err := s.getObject(ctx, sessionID)
	if err != nil && !errors.Is(err, archive.ErrNotFound) {
		return err
	}

	data := append(existing, chunk...)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(sessionID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("put transcript: %w", err)
	}
	return nil
}

// Get returns the full transcript for a session.
func (s *Store) Get(ctx context.Context, sessionID string) (*archive.Transcript, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(sessionID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, archive.ErrNotFound
		}
		return nil, fmt.Errorf("head transcript: %w", err)
	}

	data, err := s.getObject(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	createdAt := time.Now()
	if head.LastModified != nil {
		createdAt = *head.LastModified
	}

	return &archive.Transcript{
		SessionID: sessionID,
		Data:      data,
		CreatedAt: createdAt,
	}, nil
}

func (s *Store) getObject(ctx context.Context, sessionID string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(sessionID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, archive.ErrNotFound
		}
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read transcript body: %w", err)
	}
	return data, nil
}

// Delete removes the transcript object for a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.getObject(ctx, sessionID); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(sessionID)),
	})
	if err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	return nil
}

// Close is a no-op for the S3 store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
