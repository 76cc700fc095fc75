// Package registry maintains the append-only code dictionaries that map
// the version log's numeric action and user codes to human labels.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/reedcms/reedbase/internal/flatcsv"
	"github.com/reedcms/reedbase/internal/reed"
)

const (
	actionsFile = "actions.csv"
	usersFile   = "users.csv"
)

// Action codes written by the table layer. The dictionary carries the full
// set; these two are referenced directly.
const (
	ActionUpdate uint8 = 2
	ActionInit   uint8 = 5
)

// defaultActions seeds a fresh actions.csv. Codes are stable forever; new
// actions get new codes, existing ones are never renumbered.
var defaultActions = []flatcsv.Record{
	{Key: "1", Value: "create", Description: "record added"},
	{Key: "2", Value: "update", Description: "new table version written"},
	{Key: "3", Value: "delete", Description: "record or table removed"},
	{Key: "4", Value: "restore", Description: "backup restored"},
	{Key: "5", Value: "init", Description: "table initialised"},
}

// Registry resolves action and user codes to labels and assigns codes to
// new users on demand. Both dictionaries live as flat CSV files under one
// directory and only ever grow.
type Registry struct {
	dir string

	mu        sync.Mutex
	actions   map[uint8]string
	actionIDs map[string]uint8
	users     map[uint32]string
	userIDs   map[string]uint32
	nextUser  uint32
}

// Open loads the dictionaries under dir, creating the directory and
// seeding the action dictionary on first use.
func Open(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: registry dir is shared operator data
		return nil, &reed.IoError{Op: "create_registry_dir", Path: dir, Err: err}
	}

	r := &Registry{
		dir:       dir,
		actions:   make(map[uint8]string),
		actionIDs: make(map[string]uint8),
		users:     make(map[uint32]string),
		userIDs:   make(map[string]uint32),
		nextUser:  1,
	}

	actionsPath := filepath.Join(dir, actionsFile)
	if _, err := os.Stat(actionsPath); os.IsNotExist(err) {
		if err := flatcsv.Write(actionsPath, defaultActions); err != nil {
			return nil, fmt.Errorf("failed to seed action dictionary: %w", err)
		}
	}
	if err := r.loadActions(actionsPath); err != nil {
		return nil, err
	}
	if err := r.loadUsers(filepath.Join(dir, usersFile)); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) loadActions(path string) error {
	records, err := flatcsv.Read(path)
	if err != nil {
		return err
	}
	for _, rec := range records {
		code, err := strconv.ParseUint(rec.Key, 10, 8)
		if err != nil {
			return &reed.ParseError{Path: path, Input: rec.Key, Reason: "invalid action code"}
		}
		c := uint8(code)
		if _, ok := r.actions[c]; ok {
			return fmt.Errorf("%s: action code %d: %w", path, c, reed.ErrDuplicateCode)
		}
		r.actions[c] = rec.Value
		r.actionIDs[rec.Value] = c
	}
	return nil
}

func (r *Registry) loadUsers(path string) error {
	records, err := flatcsv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, rec := range records {
		code, err := strconv.ParseUint(rec.Key, 10, 32)
		if err != nil {
			return &reed.ParseError{Path: path, Input: rec.Key, Reason: "invalid user code"}
		}
		c := uint32(code)
		if _, ok := r.users[c]; ok {
			return fmt.Errorf("%s: user code %d: %w", path, c, reed.ErrDuplicateCode)
		}
		r.users[c] = rec.Value
		r.userIDs[rec.Value] = c
		if c >= r.nextUser {
			r.nextUser = c + 1
		}
	}
	return nil
}

// ActionName resolves an action code to its label.
func (r *Registry) ActionName(code uint8) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.actions[code]
	if !ok {
		return "", &reed.NotFoundError{Resource: "action code", Context: strconv.Itoa(int(code))}
	}
	return name, nil
}

// ActionCode resolves an action label to its code.
func (r *Registry) ActionCode(name string) (uint8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.actionIDs[name]
	if !ok {
		return 0, &reed.NotFoundError{Resource: "action", Context: name}
	}
	return code, nil
}

// Username resolves a user code to its name.
func (r *Registry) Username(code uint32) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.users[code]
	if !ok {
		return "", &reed.NotFoundError{Resource: "user code", Context: strconv.Itoa(int(code))}
	}
	return name, nil
}

// UserCode returns the stable code for a username, assigning and
// persisting the next free one when the name is new.
func (r *Registry) UserCode(name string) (uint32, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, &reed.ValidationError{Field: "user", Value: name, Constraint: "username must not be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if code, ok := r.userIDs[name]; ok {
		return code, nil
	}

	code := r.nextUser
	if err := r.appendUser(code, name); err != nil {
		return 0, err
	}
	r.users[code] = name
	r.userIDs[name] = code
	r.nextUser = code + 1
	return code, nil
}

// appendUser writes one dictionary line. The file is append-only, matching
// the never-renumber rule.
func (r *Registry) appendUser(code uint32, name string) error {
	path := filepath.Join(r.dir, usersFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302/G304: dictionary file is shared operator data
	if err != nil {
		return &reed.IoError{Op: "open_users", Path: path, Err: err}
	}
	defer f.Close()

	line := flatcsv.FormatRow(flatcsv.Record{Key: strconv.FormatUint(uint64(code), 10), Value: name}) + "\n"
	if _, err := f.WriteString(line); err != nil {
		return &reed.IoError{Op: "append_user", Path: path, Err: err}
	}
	return nil
}
