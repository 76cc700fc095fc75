// Package store is the write service over flat CSV tables.
//
// The caller owns the record map: Init loads a file into memory, Get
// resolves keys against that map with language and environment
// fallback, Set mutates one key and rewrites the whole file sorted and
// atomically, taking a backup first. Descriptions ride along in the map
// so a rewrite never erases them.
package store

import (
	"fmt"
	"sort"

	"github.com/reedcms/reedbase/internal/flatcsv"
	"github.com/reedcms/reedbase/internal/reed"
)

// Entry is one record's payload.
type Entry struct {
	Value       string
	Description string
}

// Records maps full keys (including any @language / @environment
// suffixes) to entries.
type Records map[string]Entry

// Backup snapshots a file before the store mutates it.
type Backup interface {
	Create(path string) error
}

// Init loads the CSV file named by req.Value into a fresh record map.
func Init(req reed.Request) (Records, error) {
	if req.Value == "" {
		return nil, &reed.ValidationError{
			Field:      "value",
			Value:      req.Value,
			Constraint: "CSV file path required",
		}
	}

	rows, err := flatcsv.Read(req.Value)
	if err != nil {
		return nil, err
	}
	recs := make(Records, len(rows))
	for _, row := range rows {
		recs[row.Key] = Entry{Value: row.Value, Description: row.Description}
	}
	return recs, nil
}

// Get resolves req against recs. The base key is {key}@{language} when
// a language is set; an environment probes {base}@{environment} before
// falling back to the base key. The response's Source names the key
// that actually matched.
func Get(req reed.Request, recs Records) (reed.Response, error) {
	base := req.Key
	if req.Language != "" {
		base = req.Key + "@" + req.Language
	}

	if req.Environment != "" {
		lookup := base + "@" + req.Environment
		if e, ok := recs[lookup]; ok {
			return reed.Response{
				Data:      e.Value,
				Source:    lookup,
				Cached:    true,
				Timestamp: reed.Now(),
			}, nil
		}
	}
	if e, ok := recs[base]; ok {
		return reed.Response{
			Data:      e.Value,
			Source:    base,
			Cached:    true,
			Timestamp: reed.Now(),
		}, nil
	}

	return reed.Response{}, &reed.NotFoundError{
		Resource: req.Key,
		Context:  fmt.Sprintf("language=%q, environment=%q", req.Language, req.Environment),
	}
}

// Set updates req.Key in recs and rewrites path with all records sorted
// by key. The backup runs before anything is touched, so the previous
// file content stays recoverable. The request is authoritative for its
// own key, description included; every other record keeps its
// description through the rewrite.
func Set(req reed.Request, recs Records, path string, backup Backup) (reed.Response, error) {
	if req.Value == "" {
		return reed.Response{}, &reed.ValidationError{
			Field:      "value",
			Value:      req.Value,
			Constraint: "value required for set operation",
		}
	}

	if err := backup.Create(path); err != nil {
		return reed.Response{}, err
	}

	recs[req.Key] = Entry{Value: req.Value, Description: req.Description}

	rows := make([]flatcsv.Record, 0, len(recs))
	for key, e := range recs {
		rows = append(rows, flatcsv.Record{Key: key, Value: e.Value, Description: e.Description})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	if err := flatcsv.Write(path, rows); err != nil {
		return reed.Response{}, err
	}

	return reed.Response{
		Data:      req.Value,
		Source:    path,
		Cached:    false,
		Timestamp: reed.Now(),
	}, nil
}
