package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loading errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported config format; use .json, .yaml or .yml")
	ErrInvalid           = errors.New("invalid configuration")
)

// Load reads the pipeline file at path, applies environment overrides from
// lookup (os.LookupEnv when nil) and defaults. It does not validate; call
// Validate or ValidatePipeline on the result. A missing file yields an error
// wrapping os.ErrNotExist. An empty path starts from Default.
func Load(path string, lookup LookupFunc) (Pipeline, error) {
	var p Pipeline
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Pipeline{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if p, err = Decode(b, filepath.Ext(path)); err != nil {
			return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := ApplyEnv(&p, lookup); err != nil {
		return Pipeline{}, err
	}
	ApplyDefaults(&p)
	return p, nil
}

// Decode parses b according to the file extension ext (".json", ".yaml",
// ".yml"). Unknown fields are rejected so typos surface early.
func Decode(b []byte, ext string) (Pipeline, error) {
	var p Pipeline
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, err
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		// An empty document decodes to the zero Pipeline.
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return Pipeline{}, err
		}
	default:
		return Pipeline{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return p, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
