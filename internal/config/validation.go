package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"go.nownabe.dev/bankloader"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Project == "" {
		errs = append(errs, ValidationError{Field: "project_id", Message: "is required"})
	}
	if c.Dataset == "" {
		errs = append(errs, ValidationError{Field: "dataset", Message: "is required"})
	}
	if c.Table == "" {
		errs = append(errs, ValidationError{Field: "table", Message: "must not be empty"})
	}

	if c.PreviewRows <= 0 {
		errs = append(errs, ValidationError{Field: "preview_rows", Message: "must be positive"})
	}

	if c.Source == "" {
		errs = append(errs, ValidationError{Field: "source", Message: "is required"})
	}
	if c.IsStorage() {
		if _, err := bankloader.ParseObjectURL(c.Source); err != nil {
			errs = append(errs, ValidationError{Field: "source", Message: err.Error()})
		}
	}
	if _, err := bankloader.ParserFor(c.SourceFormat); err != nil {
		errs = append(errs, ValidationError{Field: "source_format", Message: "must be csv or xls"})
	}
	if _, err := bankloader.LookupEncoding(c.SourceEncoding); err != nil {
		errs = append(errs, ValidationError{Field: "source_encoding", Message: fmt.Sprintf("unknown encoding %q", c.SourceEncoding)})
	}
	if c.IsUCI() {
		if c.UCIDatasetID <= 0 {
			errs = append(errs, ValidationError{Field: "uci_dataset_id", Message: "must be positive"})
		}
		if c.UCIBaseURL == "" {
			errs = append(errs, ValidationError{Field: "uci_base_url", Message: "is required for the uci source"})
		}
	}

	if c.LockStaleAfter < 0 {
		errs = append(errs, ValidationError{Field: "lock_stale_after", Message: "must not be negative"})
	}

	if c.SlackToken != "" && c.SlackChannel == "" {
		errs = append(errs, ValidationError{Field: "slack_channel", Message: "is required when slack_token is set"})
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		errs = append(errs, ValidationError{Field: "log_level", Message: fmt.Sprintf("invalid level %q", c.LogLevel)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
