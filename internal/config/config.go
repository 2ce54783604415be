// Package config defines the pipeline configuration model and how it is
// loaded: a JSON or YAML file, optional .env file, OMNICART_* environment
// overrides, then defaults and validation.
//
// Example (trimmed):
//
//	job: omnicart
//	source:
//	  kind: api
//	  api: { base_url: https://fakestoreapi.com, limit: 5 }
//	output:
//	  path: out/seller_performance_report.json
//	storage:
//	  kind: sqlite
//	  db: { dsn: omnicart.db, auto_create_table: true }
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultJob        = "omnicart"
	DefaultBaseURL    = "https://fakestoreapi.com"
	DefaultLimit      = 5
	DefaultMaxPages   = 1000
	DefaultTimeout    = 10 * time.Second
	DefaultReportPath = "seller_performance_report.json"
	DefaultBatchSize  = 500
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job labels logs and metrics of every run.
	Job string `json:"job" yaml:"job" validate:"required"`

	Source  Source        `json:"source" yaml:"source"`
	Output  Output        `json:"output" yaml:"output"`
	Storage Storage       `json:"storage" yaml:"storage"`
	Metrics Metrics       `json:"metrics" yaml:"metrics"`
	Logging Logging       `json:"logging" yaml:"logging"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// Source selects where products and users come from.
type Source struct {
	// Kind is "api" (REST store) or "file" (local JSON exports).
	Kind string     `json:"kind" yaml:"kind" validate:"required,oneof=api file"`
	API  SourceAPI  `json:"api" yaml:"api"`
	File SourceFile `json:"file" yaml:"file"`
}

// SourceAPI configures the "api" source kind.
type SourceAPI struct {
	BaseURL  string   `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Limit    int      `json:"limit" yaml:"limit" validate:"gte=0"`
	MaxPages int      `json:"max_pages" yaml:"max_pages" validate:"gte=0"`
	Timeout  Duration `json:"timeout" yaml:"timeout"`

	ProductsPath string `json:"products_path" yaml:"products_path"`
	UsersPath    string `json:"users_path" yaml:"users_path"`
	// ProductsKey/UsersKey name the array inside an enveloped response,
	// e.g. {"products": [...]}.
	ProductsKey string `json:"products_key" yaml:"products_key"`
	UsersKey    string `json:"users_key" yaml:"users_key"`

	Headers            map[string]string `json:"headers" yaml:"headers"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// SourceFile configures the "file" source kind.
type SourceFile struct {
	ProductsPath string `json:"products_path" yaml:"products_path"`
	// UsersPath may be empty; every product is then unmatched.
	UsersPath   string `json:"users_path" yaml:"users_path"`
	ProductsKey string `json:"products_key" yaml:"products_key"`
	UsersKey    string `json:"users_key" yaml:"users_key"`
}

// Output configures the report sinks.
type Output struct {
	// Path is the local report file. Set Disabled to skip it.
	Path     string   `json:"path" yaml:"path"`
	Disabled bool     `json:"disabled" yaml:"disabled"`
	S3       S3Output `json:"s3" yaml:"s3"`
}

// S3Output uploads the report when Bucket is set.
type S3Output struct {
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	PathStyle       bool   `json:"path_style" yaml:"path_style"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// Enabled reports whether the S3 sink is configured.
func (s S3Output) Enabled() bool { return strings.TrimSpace(s.Bucket) != "" }

// Storage selects the SQL sink. An empty Kind disables it.
type Storage struct {
	Kind string   `json:"kind" yaml:"kind" validate:"omitempty,oneof=sqlite postgres mssql mysql"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// Enabled reports whether the db sink is configured.
func (s Storage) Enabled() bool { return strings.TrimSpace(s.Kind) != "" }

// DBConfig configures the db sink.
type DBConfig struct {
	// DSN is passed to the backend driver unchanged.
	DSN string `json:"dsn" yaml:"dsn"`

	SellersTable  string `json:"sellers_table" yaml:"sellers_table"`
	ProductsTable string `json:"products_table" yaml:"products_table"`

	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS before loading.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// Metrics selects the operational metrics backend.
type Metrics struct {
	Backend        string            `json:"backend" yaml:"backend" validate:"omitempty,oneof=none pushgateway datadog"`
	PushgatewayURL string            `json:"pushgateway_url" yaml:"pushgateway_url" validate:"omitempty,url"`
	DatadogAddr    string            `json:"datadog_addr" yaml:"datadog_addr"`
	Tags           map[string]string `json:"tags" yaml:"tags"`
}

// Logging configures the logrus logger.
type Logging struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// RuntimeConfig controls batching of the db sink.
type RuntimeConfig struct {
	BatchSize int `json:"batch_size" yaml:"batch_size" validate:"gte=0"`
}

// Default returns a Pipeline with every default applied: the store API as
// source and the report written to DefaultReportPath.
func Default() Pipeline {
	var p Pipeline
	ApplyDefaults(&p)
	return p
}

// ApplyDefaults fills zero-valued fields in place.
func ApplyDefaults(p *Pipeline) {
	if strings.TrimSpace(p.Job) == "" {
		p.Job = DefaultJob
	}
	if p.Source.Kind == "" {
		p.Source.Kind = "api"
	}
	api := &p.Source.API
	if api.BaseURL == "" {
		api.BaseURL = DefaultBaseURL
	}
	if api.Limit == 0 {
		api.Limit = DefaultLimit
	}
	if api.MaxPages == 0 {
		api.MaxPages = DefaultMaxPages
	}
	if api.Timeout == 0 {
		api.Timeout = Duration(DefaultTimeout)
	}
	if p.Output.Path == "" {
		p.Output.Path = DefaultReportPath
	}
	if p.Runtime.BatchSize == 0 {
		p.Runtime.BatchSize = DefaultBatchSize
	}
	if p.Metrics.Backend == "" {
		p.Metrics.Backend = "none"
	}
	if p.Logging.Level == "" {
		p.Logging.Level = DefaultLogLevel
	}
	if p.Logging.Format == "" {
		p.Logging.Format = DefaultLogFormat
	}
}

// Duration is a time.Duration that decodes from "10s"-style strings in JSON
// and YAML. Bare JSON numbers are taken as seconds.
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*d = 0
		return nil
	case float64:
		*d = Duration(t * float64(time.Second))
		return nil
	case string:
		return d.parse(t)
	default:
		return fmt.Errorf("duration: unexpected JSON value %v", v)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: line %d: expected a scalar", n.Line)
	}
	if tag := n.ShortTag(); tag == "!!int" || tag == "!!float" {
		var secs float64
		if err := n.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	return d.parse(n.Value)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Duration(v)
	return nil
}
