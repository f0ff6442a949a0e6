package config

import "fmt"

const (
	// DefaultExportPrefix is the S3 key prefix for exported reports.
	DefaultExportPrefix = "runmonitor/reports"

	// DefaultExportConcurrency bounds parallel report uploads.
	DefaultExportConcurrency = 4
)

// ExportConfig configures report export to remote storage.
type ExportConfig struct {
	Concurrency  int      `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
	HistoryLimit int      `yaml:"history_limit,omitempty" mapstructure:"history_limit"`
	S3           S3Config `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3Config contains S3-compatible upload settings.
type S3Config struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	StorageClass    string `yaml:"storage_class,omitempty" mapstructure:"storage_class"`
	ACL             string `yaml:"acl,omitempty" mapstructure:"acl"`
}

// Validate checks the export section.
func (e *ExportConfig) Validate() error {
	if e.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", e.Concurrency)
	}

	if e.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", e.HistoryLimit)
	}

	if e.S3.Enabled && e.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when s3 is enabled")
	}

	return nil
}
