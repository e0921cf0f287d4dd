package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/newspulse/newspulse/internal/config"
	"github.com/newspulse/newspulse/internal/logger"
	"github.com/newspulse/newspulse/internal/models"
	"github.com/newspulse/newspulse/internal/utils"
)

// Uploader writes evicted store rows to an S3-compatible bucket
// (Cloudflare R2 in production) so retention cleanup does not discard
// them outright.
type Uploader struct {
	client *s3.Client
	bucket string
}

// New builds an uploader against the configured endpoint. Returns nil
// without error when archiving is disabled.
func New(ctx context.Context, cfg *config.Config) (*Uploader, error) {
	if !cfg.ArchiveEnabled || cfg.ArchiveEndpoint == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.ArchiveKey, cfg.ArchiveSecret, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.ArchiveEndpoint)
		o.UsePathStyle = true
	})

	return &Uploader{client: client, bucket: cfg.ArchiveBucket}, nil
}

// ArchiveItems uploads each item as a JSON object keyed by date and
// URL hash. Individual upload failures abort the batch; the caller
// treats archiving as best-effort.
func (u *Uploader) ArchiveItems(ctx context.Context, items []models.NewsItem) error {
	if u == nil || len(items) == 0 {
		return nil
	}

	prefix := time.Now().UTC().Format("2006-01-02")
	for _, item := range items {
		body, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode item %s: %w", item.URL, err)
		}
		key := fmt.Sprintf("archive/%s/%s.json", prefix, utils.Hash(item.URL)[:16])
		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
	}

	logger.Get().Info().Int("items", len(items)).Str("prefix", prefix).Msg("Archived evicted items")
	return nil
}
