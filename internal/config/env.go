package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OMNICART_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields of p from OMNICART_* variables:
//
//	OMNICART_JOB              job
//	OMNICART_BASE_URL         source.api.base_url
//	OMNICART_PAGE_LIMIT       source.api.limit
//	OMNICART_MAX_PAGES        source.api.max_pages
//	OMNICART_REPORT_PATH      output.path
//	OMNICART_DB_DSN           storage.db.dsn
//	OMNICART_S3_BUCKET        output.s3.bucket
//	OMNICART_LOG_LEVEL        logging.level
//	OMNICART_METRICS_BACKEND  metrics.backend
//
// Empty values are ignored.
func ApplyEnv(p *Pipeline, lookup LookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s=%q: %w", EnvPrefix, name, v, ErrInvalid)
		}
		*dst = n
		return nil
	}

	str("JOB", &p.Job)
	str("BASE_URL", &p.Source.API.BaseURL)
	if err := num("PAGE_LIMIT", &p.Source.API.Limit); err != nil {
		return err
	}
	if err := num("MAX_PAGES", &p.Source.API.MaxPages); err != nil {
		return err
	}
	str("REPORT_PATH", &p.Output.Path)
	str("DB_DSN", &p.Storage.DB.DSN)
	str("S3_BUCKET", &p.Output.S3.Bucket)
	str("LOG_LEVEL", &p.Logging.Level)
	str("METRICS_BACKEND", &p.Metrics.Backend)
	return nil
}
