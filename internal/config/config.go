// Package config provides configuration structures and loading for bankloader.
package config

import (
	"strings"
	"time"

	"go.nownabe.dev/bankloader"
)

// SourceUCI selects the UCI Machine Learning Repository API as dataset source.
const SourceUCI = "uci"

// Config represents the complete application configuration.
type Config struct {
	Project     string `mapstructure:"project_id"`
	Dataset     string `mapstructure:"dataset"`
	Table       string `mapstructure:"table"`
	Credentials string `mapstructure:"credentials"` // service account key file, empty for ADC

	Preview     bool `mapstructure:"preview"`
	PreviewRows int  `mapstructure:"preview_rows"`

	Source         string `mapstructure:"source"`        // uci, local path or gs://bucket/object
	SourceFormat   string `mapstructure:"source_format"` // csv or xls
	SourceEncoding string `mapstructure:"source_encoding"`
	UCIDatasetID   int    `mapstructure:"uci_dataset_id"`
	UCIBaseURL     string `mapstructure:"uci_base_url"`

	LockBucket     string        `mapstructure:"lock_bucket"`
	LockStaleAfter time.Duration `mapstructure:"lock_stale_after"` // zero keeps abandoned locks

	SlackToken   string `mapstructure:"slack_token"`
	SlackChannel string `mapstructure:"slack_channel"`

	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error
	Pretty   bool   `mapstructure:"pretty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Table:        bankloader.DefaultTable,
		PreviewRows:  bankloader.DefaultPreviewRows,
		Source:       SourceUCI,
		SourceFormat: "csv",
		UCIDatasetID: bankloader.UCIDatasetID,
		UCIBaseURL:   bankloader.DefaultUCIBaseURL,
		LogLevel:     "info",
	}
}

// Destination returns the destination table.
func (c *Config) Destination() bankloader.Destination {
	return bankloader.Destination{Project: c.Project, Dataset: c.Dataset, Table: c.Table}
}

// IsUCI reports whether the dataset is fetched from the UCI API.
func (c *Config) IsUCI() bool {
	return strings.EqualFold(c.Source, SourceUCI)
}

// IsStorage reports whether the dataset is a Cloud Storage object.
func (c *Config) IsStorage() bool {
	return strings.HasPrefix(c.Source, "gs://")
}
