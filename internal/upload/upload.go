// Package upload ships a built dataset archive to its training host.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/example/go-dswav/internal/extcmd"
)

// ErrNoTarget is returned when no upload target is configured.
var ErrNoTarget = errors.New("upload target not configured")

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader sends archives either to S3 (targets of the form
// s3://bucket/key) or through a command template in which every "%" is
// replaced by the archive path, e.g. "scp % host:/data/ds.zip".
type Uploader struct {
	// NewS3 builds the S3 client on first use. Defaults to the AWS SDK
	// default credential chain.
	NewS3 func(ctx context.Context) (PutObjectAPI, error)
	// Run executes command targets. Defaults to extcmd.Run.
	Run extcmd.RunFunc
}

// Upload sends archive to target.
func (u *Uploader) Upload(ctx context.Context, archive, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return ErrNoTarget
	}
	if _, err := os.Stat(archive); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if strings.HasPrefix(target, "s3://") {
		bucket, key, err := ParseS3Target(target, filepath.Base(archive))
		if err != nil {
			return err
		}
		return u.putS3(ctx, archive, bucket, key)
	}
	return u.runCommand(ctx, archive, target)
}

// ParseS3Target splits an s3:// URL into bucket and key. A missing key or
// one ending in "/" gets defaultName appended.
func ParseS3Target(target, defaultName string) (bucket, key string, err error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", "", fmt.Errorf("parse upload target: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid S3 target %q", target)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		key += defaultName
	}
	return u.Host, key, nil
}

func (u *Uploader) putS3(ctx context.Context, archive, bucket, key string) error {
	newS3 := u.NewS3
	if newS3 == nil {
		newS3 = defaultS3
	}
	client, err := newS3(ctx)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}

	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	slog.Info("uploading archive", "archive", archive, "bucket", bucket, "key", key)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func defaultS3(ctx context.Context) (PutObjectAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

// CommandArgs expands a command template for archive.
func CommandArgs(template, archive string) []string {
	fields := strings.Fields(template)
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "%", archive)
	}
	return fields
}

func (u *Uploader) runCommand(ctx context.Context, archive, template string) error {
	argv := CommandArgs(template, archive)
	run := u.Run
	if run == nil {
		run = extcmd.Run
	}

	slog.Info("uploading archive", "archive", archive, "command", argv[0])
	_, err := run(ctx, argv[0], argv[1:], nil)
	return err
}
