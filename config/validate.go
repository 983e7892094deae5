package config

import (
	"errors"
	"fmt"

	"github.com/rmera/scoper"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRequired checks if a string field is not empty.
func ValidateRequired(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidatePositive checks that a count is at least 1.
func ValidatePositive(field string, n int) error {
	if n < 1 {
		return &ValidationError{Field: field, Message: "must be positive"}
	}
	return nil
}

// ValidateFile checks that the field names an existing regular file.
func ValidateFile(field, path string) error {
	if err := ValidateRequired(field, path); err != nil {
		return err
	}
	if !fileExists(path) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("file %s not found", path)}
	}
	return nil
}

// ValidateLogLevel checks if a log level is valid.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error"}
	}
}

// ValidateLogFormat checks if a log format is valid.
func ValidateLogFormat(format string) error {
	switch format {
	case "json", "console":
		return nil
	default:
		return &ValidationError{Field: "logging.format", Message: "must be one of: json, console"}
	}
}

// Validate checks the configuration for a full pipeline run. All the
// problems found are reported together, in an error of kind scoper.ErrConfig.
func (c *Config) Validate() error {
	errs := []error{
		ValidateFile("input", c.Input),
		ValidateFile("profile", c.ResolveProfile()),
	}
	errs = append(errs, c.validateCommon()...)
	return joinValidation("Config/Validate", errs)
}

// ValidateScoring checks only what the scoring stage needs. dir is the
// directory with the candidates.
func (c *Config) ValidateScoring(dir string) error {
	errs := []error{
		ValidateRequired("dir", dir),
		ValidateFile("profile", c.ResolveProfile()),
		ValidateRequired("tools.scorer.path", c.Tools.Scorer.Path),
		ValidatePositive("scoring.workers", c.Scoring.Workers),
		ValidatePositive("top_k", c.TopK),
	}
	return joinValidation("Config/ValidateScoring", errs)
}

func (c *Config) validateCommon() []error {
	errs := []error{
		ValidateRequired("base_dir", c.BaseDir),
		ValidatePositive("samples", c.Samples),
		ValidateRequired("tools.reduce.path", c.Tools.Reduce.Path),
		ValidateRequired("tools.prepare.path", c.Tools.Prepare.Path),
		ValidateRequired("tools.sampler.path", c.Tools.Sampler.Path),
		ValidatePositive("tools.sampler.neighbors", c.Tools.Sampler.Neighbors),
		ValidateRequired("tools.scorer.path", c.Tools.Scorer.Path),
		ValidateRequired("tools.ensemble.path", c.Tools.Ensemble.Path),
		ValidatePositive("scoring.workers", c.Scoring.Workers),
		ValidatePositive("refine.workers", c.Refine.Workers),
	}
	errs = append(errs, ValidatePositive("top_k", c.TopK))
	if c.Tools.Sampler.Step <= 0 {
		errs = append(errs, &ValidationError{Field: "tools.sampler.step", Message: "must be positive"})
	}
	if c.Logging.Level != "" {
		errs = append(errs, ValidateLogLevel(c.Logging.Level))
	}
	if c.Logging.Format != "" {
		errs = append(errs, ValidateLogFormat(c.Logging.Format))
	}
	return errs
}

func joinValidation(errid string, errs []error) error {
	joined := errors.Join(errs...)
	if joined == nil {
		return nil
	}
	return scoper.NewError(scoper.ErrConfig, errid, "", "invalid configuration", joined, true)
}
