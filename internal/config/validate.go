package config

// This file adds a linter for Pipeline values. It combines the struct tag
// rules (validator/v10) with cross-field checks and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "source.api.base_url"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report paths by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate returns an error wrapping ErrInvalid when p has any error-severity
// issue. Warnings are ignored.
func Validate(p Pipeline) error {
	var msgs []string
	for _, iss := range ValidatePipeline(p) {
		if iss.Severity == SeverityError {
			msgs = append(msgs, iss.Path+": "+iss.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// HasErrors reports whether issues contains an error-severity issue.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Callers may decide whether to treat
// warnings as fatal or not:
//
//	for _, iss := range config.ValidatePipeline(p) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	issues := structIssues(p)
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateOutput(p)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	return issues
}

func structIssues(p Pipeline) []Issue {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Severity: SeverityError, Path: "", Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     fieldPath(fe.Namespace()),
			Message:  fieldMessage(fe),
		})
	}
	return issues
}

// fieldPath drops the root struct name: "Pipeline.source.kind" -> "source.kind".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return fmt.Sprintf("%q is not one of [%s]", fmt.Sprint(fe.Value()), fe.Param())
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func validateSource(s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case "api":
		if s.API.InsecureSkipVerify {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.api.insecure_skip_verify",
				Message:  "TLS certificate verification is disabled",
			})
		}
		if s.API.Timeout < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.api.timeout",
				Message:  "timeout must not be negative",
			})
		}
	case "file":
		if strings.TrimSpace(s.File.ProductsPath) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.products_path",
				Message:  "file source requires a non-empty products_path",
			})
		}
		if strings.TrimSpace(s.File.UsersPath) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.file.users_path",
				Message:  "no users file; every product will be reported under the unknown seller",
			})
		}
	}
	return issues
}

func validateOutput(p Pipeline) []Issue {
	var issues []Issue
	o := p.Output
	if o.Disabled && !o.S3.Enabled() && !p.Storage.Enabled() {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output",
			Message:  "no sink configured; enable output.path, output.s3 or storage",
		})
	}
	if !o.Disabled && strings.TrimSpace(o.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.path",
			Message:  "output.path must not be empty unless output.disabled is set",
		})
	}
	if (o.S3.AccessKeyID == "") != (o.S3.SecretAccessKey == "") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.s3",
			Message:  "access_key_id and secret_access_key must be set together",
		})
	}
	if !o.S3.Enabled() && (o.S3.Prefix != "" || o.S3.Endpoint != "") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.s3.bucket",
			Message:  "s3 options are set but bucket is empty; the s3 sink is disabled",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	if !s.Enabled() {
		return nil
	}
	var issues []Issue
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if s.DB.SellersTable != "" && s.DB.SellersTable == s.DB.ProductsTable {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.products_table",
			Message:  "sellers_table and products_table must differ",
		})
	}
	if !s.DB.AutoCreateTable {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db.auto_create_table",
			Message:  "auto_create_table is false; destination tables must already exist",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr is empty; the client will use DD_AGENT_HOST or localhost:8125",
			})
		}
	}
	return issues
}

// validateRuntime flags batch sizes that will hurt throughput.
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.BatchSize == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.batch_size",
			Message:  "batch_size=0; the db sink default will be used",
		})
	}
	return issues
}
