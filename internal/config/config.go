// Package config loads reed.yaml and syncs it into the CSV tables.
//
// reed.yaml is the project's hand-edited entry point; the CSV files
// under .reed/ are what the runtime actually reads. Sync flattens the
// parsed structure to dotted keys and writes them through the store, so
// every change lands backed up and sorted like any other write.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reedcms/reedbase/internal/reed"
)

// Config mirrors reed.yaml.
type Config struct {
	Project Project `yaml:"project"`
	Server  Server  `yaml:"server"`
}

// Project is the [project] section: site identity, languages, routing,
// and template behavior.
type Project struct {
	Name        string    `yaml:"name"`
	URL         string    `yaml:"url"`
	Description string    `yaml:"description,omitempty"`
	Languages   Languages `yaml:"languages"`
	Routing     Routing   `yaml:"routing"`
	Templates   Templates `yaml:"templates"`
}

type Languages struct {
	Default       string   `yaml:"default"`
	Available     []string `yaml:"available"`
	FallbackChain bool     `yaml:"fallback_chain"`
}

type Routing struct {
	URLPrefix     bool `yaml:"url_prefix"`
	TrailingSlash bool `yaml:"trailing_slash"`
}

type Templates struct {
	AutoReload     bool `yaml:"auto_reload"`
	CacheTemplates bool `yaml:"cache_templates"`
}

// Server is the [server] section: worker count plus one block per
// deployment environment.
type Server struct {
	Workers int         `yaml:"workers"`
	Dev     Environment `yaml:"dev"`
	Prod    Environment `yaml:"prod"`
}

type Environment struct {
	Domain            string   `yaml:"domain"`
	IO                string   `yaml:"io"`
	EnableCORS        bool     `yaml:"enable_cors"`
	AllowedOrigins    []string `yaml:"allowed_origins,omitempty"`
	EnableRateLimit   bool     `yaml:"enable_rate_limit"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
	EnableCompression bool     `yaml:"enable_compression"`
	EnableHTTP2       bool     `yaml:"enable_http2"`
	KeepAlive         int      `yaml:"keep_alive"`
}

// Load reads and parses a reed.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the caller.
	if err != nil {
		return nil, &reed.IoError{Op: "read", Path: path, Err: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &reed.ParseError{Path: path, Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Project.Name == "" {
		return &reed.ValidationError{Field: "project.name", Constraint: "required"}
	}
	if c.Project.Languages.Default == "" {
		return &reed.ValidationError{Field: "project.languages.default", Constraint: "required"}
	}
	return nil
}
