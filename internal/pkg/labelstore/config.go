package labelstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/PropKit/internal/pkg/env"
)

// Config holds the label archive configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
	DownloadTimeout time.Duration
}

// LoadConfig loads the archive configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("LABEL_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("LABEL_S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("LABEL_S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("LABEL_S3_BUCKET", ""),
		EndpointURL:     env.GetEnv("LABEL_S3_ENDPOINT_URL", ""),
		Enabled:         env.GetBool("LABEL_S3_ENABLED", false),
		DownloadTimeout: env.GetDuration("LABEL_DOWNLOAD_TIMEOUT", 20*time.Second),
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("LABEL_S3_ACCESS_KEY_ID is required when the label archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("LABEL_S3_SECRET_ACCESS_KEY is required when the label archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("LABEL_S3_BUCKET is required when the label archive is enabled")
		}
	}

	return config, nil
}

func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey generates the object key for a label: labels/YYYY/MM/<tracking>.pdf
func (c *Config) ObjectKey(trackingCode string, at time.Time) string {
	return fmt.Sprintf("labels/%04d/%02d/%s.pdf", at.Year(), int(at.Month()), trackingCode)
}
