// Package cache holds the read path's in-memory tables.
//
// Five domains are loaded once at startup and are immutable afterwards:
// text and routes are language-scoped, meta, project, and server are
// flat. Reads are lock-free; replacing a snapshot means building a new
// Cache and swapping it at the owner. Lookups resolve key@environment
// first and fall back to the bare key.
package cache

import (
	"sync/atomic"

	"github.com/reedcms/reedbase/internal/reed"
)

type languageTable map[string]map[string]string

type flatTable map[string]string

// domain is one init-once cache slot. The first Init wins the
// compare-and-swap; later attempts report a ConfigError instead of
// silently replacing data mid-flight.
type domain[T any] struct {
	name string
	p    atomic.Pointer[T]
}

func (d *domain[T]) init(t *T) error {
	if !d.p.CompareAndSwap(nil, t) {
		return &reed.ConfigError{Component: d.name, Reason: "already initialized"}
	}
	return nil
}

func (d *domain[T]) get() (*T, error) {
	t := d.p.Load()
	if t == nil {
		return nil, &reed.ConfigError{Component: d.name, Reason: "not initialized"}
	}
	return t, nil
}

// Cache is the set of initialized domains. The zero value is not
// usable; construct with New.
type Cache struct {
	text    domain[languageTable]
	routes  domain[languageTable]
	meta    domain[flatTable]
	project domain[flatTable]
	server  domain[flatTable]
}

// New returns a Cache with all domains uninitialized.
func New() *Cache {
	return &Cache{
		text:    domain[languageTable]{name: "text cache"},
		routes:  domain[languageTable]{name: "routes cache"},
		meta:    domain[flatTable]{name: "meta cache"},
		project: domain[flatTable]{name: "project cache"},
		server:  domain[flatTable]{name: "server cache"},
	}
}

// InitText loads the text domain from a language-scoped CSV file.
func (c *Cache) InitText(path string) error {
	table, err := loadLanguageCSV(path)
	if err != nil {
		return err
	}
	return c.text.init(&table)
}

// InitRoutes loads the routes domain from a language-scoped CSV file.
func (c *Cache) InitRoutes(path string) error {
	table, err := loadLanguageCSV(path)
	if err != nil {
		return err
	}
	return c.routes.init(&table)
}

// InitMeta loads the meta domain from a flat CSV file.
func (c *Cache) InitMeta(path string) error {
	table, err := loadFlatCSV(path)
	if err != nil {
		return err
	}
	return c.meta.init(&table)
}

// InitProject loads the project domain from a flat CSV file.
func (c *Cache) InitProject(path string) error {
	table, err := loadFlatCSV(path)
	if err != nil {
		return err
	}
	return c.project.init(&table)
}

// InitServer loads the server domain from a flat CSV file.
func (c *Cache) InitServer(path string) error {
	table, err := loadFlatCSV(path)
	if err != nil {
		return err
	}
	return c.server.init(&table)
}

// Initialized reports whether every domain has been loaded.
func (c *Cache) Initialized() bool {
	return c.text.p.Load() != nil &&
		c.routes.p.Load() != nil &&
		c.meta.p.Load() != nil &&
		c.project.p.Load() != nil &&
		c.server.p.Load() != nil
}

// Text resolves a text key for one language. An empty environment skips
// the key@environment probe.
func (c *Cache) Text(key, language, environment string) (string, error) {
	table, err := c.text.get()
	if err != nil {
		return "", err
	}
	return resolveLanguage(*table, key, language, environment)
}

// Route resolves a route key for one language.
func (c *Cache) Route(key, language, environment string) (string, error) {
	table, err := c.routes.get()
	if err != nil {
		return "", err
	}
	return resolveLanguage(*table, key, language, environment)
}

// Meta resolves a meta key.
func (c *Cache) Meta(key, environment string) (string, error) {
	table, err := c.meta.get()
	if err != nil {
		return "", err
	}
	return resolveFlat(*table, key, environment)
}

// Project resolves a project configuration key.
func (c *Cache) Project(key, environment string) (string, error) {
	table, err := c.project.get()
	if err != nil {
		return "", err
	}
	return resolveFlat(*table, key, environment)
}

// Server resolves a server configuration key.
func (c *Cache) Server(key, environment string) (string, error) {
	table, err := c.server.get()
	if err != nil {
		return "", err
	}
	return resolveFlat(*table, key, environment)
}

func resolveLanguage(t languageTable, key, language, environment string) (string, error) {
	entries, ok := t[language]
	if !ok {
		return "", &reed.NotFoundError{Resource: "language", Context: language}
	}
	if environment != "" {
		if v, ok := entries[envKey(key, environment)]; ok {
			return v, nil
		}
	}
	if v, ok := entries[key]; ok {
		return v, nil
	}
	return "", &reed.NotFoundError{Resource: key, Context: "language=" + language}
}

func resolveFlat(t flatTable, key, environment string) (string, error) {
	if environment != "" {
		if v, ok := t[envKey(key, environment)]; ok {
			return v, nil
		}
	}
	if v, ok := t[key]; ok {
		return v, nil
	}
	return "", &reed.NotFoundError{Resource: key}
}
