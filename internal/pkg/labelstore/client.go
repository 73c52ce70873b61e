package labelstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// maxLabelSize caps a downloaded label document.
const maxLabelSize = 10 << 20

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client archives purchased label documents in an S3 bucket
type Client struct {
	s3Client   objectPutter
	httpClient *http.Client
	config     *Config
}

// NewClient creates a new label archive client
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("label archive is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	log.Infof("[LabelStore] Initialized label archive for bucket: %s", cfg.BucketName)
	return newClient(s3Client, &http.Client{Timeout: cfg.DownloadTimeout}, cfg), nil
}

func newClient(putter objectPutter, httpClient *http.Client, cfg *Config) *Client {
	return &Client{s3Client: putter, httpClient: httpClient, config: cfg}
}

// Archive downloads the label at sourceURL and stores it in the bucket. It
// returns the s3:// URI of the stored object.
func (c *Client) Archive(ctx context.Context, trackingCode, sourceURL string, at time.Time) (string, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return "", fmt.Errorf("no label url for %s", trackingCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download label: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download label: status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLabelSize))
	if err != nil {
		return "", fmt.Errorf("failed to read label: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	key := c.config.ObjectKey(trackingCode, at)
	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"tracking-code": trackingCode,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload label to S3: %w", err)
	}

	uri := fmt.Sprintf("s3://%s/%s", c.config.BucketName, key)
	log.Infof("[LabelStore] Archived label %s -> %s (%d bytes)", trackingCode, uri, len(body))
	return uri, nil
}
