package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/reedcms/reedbase/internal/reed"
	"github.com/reedcms/reedbase/internal/store"
)

type pair struct {
	key   string
	value string
}

// Sync writes the configuration into {reedDir}/project.csv and
// {reedDir}/server.csv, one store write per dotted key, each described
// as "{key} from reed.yaml". Existing records not named by the config
// survive untouched. Returns the keys that were written.
func Sync(cfg *Config, reedDir string, backup store.Backup) ([]string, error) {
	var updated []string

	projectKeys, err := syncFile(cfg.projectPairs(), filepath.Join(reedDir, "project.csv"), "project", backup)
	if err != nil {
		return nil, err
	}
	updated = append(updated, projectKeys...)

	serverKeys, err := syncFile(cfg.serverPairs(), filepath.Join(reedDir, "server.csv"), "server", backup)
	if err != nil {
		return nil, err
	}
	updated = append(updated, serverKeys...)

	return updated, nil
}

func syncFile(pairs []pair, path, context string, backup store.Backup) ([]string, error) {
	recs := store.Records{}
	if _, err := os.Stat(path); err == nil {
		recs, err = store.Init(reed.Request{Value: path})
		if err != nil {
			return nil, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, &reed.IoError{Op: "stat", Path: path, Err: err}
	}

	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		req := reed.Request{
			Key:         p.key,
			Context:     context,
			Value:       p.value,
			Description: p.key + " from reed.yaml",
		}
		if _, err := store.Set(req, recs, path, backup); err != nil {
			return nil, err
		}
		keys = append(keys, p.key)
	}
	return keys, nil
}

func (c *Config) projectPairs() []pair {
	p := c.Project
	pairs := []pair{
		{"project.name", p.Name},
		{"project.url", p.URL},
		{"project.languages.default", p.Languages.Default},
		{"project.languages.available", strings.Join(p.Languages.Available, ",")},
		{"project.languages.fallback_chain", strconv.FormatBool(p.Languages.FallbackChain)},
		{"project.routing.url_prefix", strconv.FormatBool(p.Routing.URLPrefix)},
		{"project.routing.trailing_slash", strconv.FormatBool(p.Routing.TrailingSlash)},
		{"project.templates.auto_reload", strconv.FormatBool(p.Templates.AutoReload)},
		{"project.templates.cache_templates", strconv.FormatBool(p.Templates.CacheTemplates)},
	}
	if p.Description != "" {
		pairs = append(pairs, pair{"project.description", p.Description})
	}
	return pairs
}

func (c *Config) serverPairs() []pair {
	pairs := []pair{
		{"server.workers", strconv.Itoa(c.Server.Workers)},
	}
	pairs = append(pairs, environmentPairs("server.dev", c.Server.Dev)...)
	pairs = append(pairs, environmentPairs("server.prod", c.Server.Prod)...)
	return pairs
}

func environmentPairs(prefix string, e Environment) []pair {
	return []pair{
		{prefix + ".domain", e.Domain},
		{prefix + ".io", e.IO},
		{prefix + ".enable_cors", strconv.FormatBool(e.EnableCORS)},
		{prefix + ".allowed_origins", strings.Join(e.AllowedOrigins, ",")},
		{prefix + ".enable_rate_limit", strconv.FormatBool(e.EnableRateLimit)},
		{prefix + ".requests_per_minute", strconv.Itoa(e.RequestsPerMinute)},
		{prefix + ".enable_compression", strconv.FormatBool(e.EnableCompression)},
		{prefix + ".enable_http2", strconv.FormatBool(e.EnableHTTP2)},
		{prefix + ".keep_alive", strconv.Itoa(e.KeepAlive)},
	}
}
