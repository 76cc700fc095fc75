// Package main is the entry point for the reedbase CLI.
//
// reedbase manages versioned pipe-delimited CSV tables under a .reed
// directory: every write stores a full-content delta with an audit log
// line, every CSV mutation is preceded by a compressed backup, and
// reed.yaml can be synced into the tables. Configuration is read from
// CLI flags and an optional .env file in the working directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/reedcms/reedbase/internal/backup"
	"github.com/reedcms/reedbase/internal/cache"
	"github.com/reedcms/reedbase/internal/config"
	"github.com/reedcms/reedbase/internal/matrixcsv"
	"github.com/reedcms/reedbase/internal/registry"
	"github.com/reedcms/reedbase/internal/reed"
	"github.com/reedcms/reedbase/internal/store"
	"github.com/reedcms/reedbase/internal/tables"
	"github.com/reedcms/reedbase/internal/watch"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "reedbase: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	root := flag.String("root", ".reed", "Data directory holding tables, backups, and dictionaries")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	user := flag.String("user", "", "Username recorded in version history (default: $USER)")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *version {
		printVersion()
		return nil
	}

	ll := &slog.LevelVar{}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Drop attributes holding zero values to keep lines short.
			skip := false
			switch t := a.Value.Any().(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	// .env in the working directory fills in flags that were not given
	// explicitly.
	env, err := loadDotEnv(".")
	if err != nil {
		return err
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["root"] {
		if v := env["REEDBASE_ROOT"]; v != "" {
			*root = v
		}
	}
	if !set["log-level"] {
		if v := env["REEDBASE_LOG_LEVEL"]; v != "" {
			*logLevel = v
		}
	}
	if !set["user"] {
		if v := env["REEDBASE_USER"]; v != "" {
			*user = v
		}
	}
	if *user == "" {
		*user = os.Getenv("USER")
	}
	if *user == "" {
		*user = "unknown"
	}

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	if flag.NArg() == 0 {
		usage()
		return fmt.Errorf("subcommand required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	a := &app{root: *root, user: *user}
	args := flag.Args()[1:]
	switch cmd := flag.Arg(0); cmd {
	case "init":
		return a.runInit(args)
	case "write":
		return a.runWrite(args)
	case "cat":
		return a.runCat(args)
	case "versions":
		return a.runVersions(args)
	case "rollback":
		return a.runRollback(args)
	case "drop":
		return a.runDrop(args)
	case "get":
		return a.runGet(args)
	case "set":
		return a.runSet(args)
	case "backups":
		return a.runBackups(args)
	case "restore":
		return a.runRestore(args)
	case "sync":
		return a.runSync(args)
	case "aggregate":
		return a.runAggregate(args)
	case "watch":
		return a.runWatch(ctx, args)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown subcommand: %q", cmd)
	}
}

// app carries the global settings every subcommand needs.
type app struct {
	root string
	user string
}

func (a *app) table(name string) (*tables.Table, error) {
	reg, err := registry.Open(a.root)
	if err != nil {
		return nil, err
	}
	return tables.New(a.root, name, reg), nil
}

func (a *app) backups() *backup.Manager {
	return backup.New(filepath.Join(a.root, "backups"))
}

func (a *app) textPath() string {
	return filepath.Join(a.root, "text.csv")
}

// tableName pulls the positional table argument off the front of args
// and parses the remaining flags.
func tableName(fs *flag.FlagSet, args []string) (string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", fmt.Errorf("%s requires a table name", fs.Name())
	}
	fs.Parse(args[1:])
	return args[0], nil
}

// lintMatrix checks matrix-dialect content before it is committed, so a
// malformed registry file is flagged at write time. Tables store opaque
// bytes, so the content goes through either way.
func lintMatrix(name string, content []byte) {
	if !strings.HasSuffix(name, ".matrix") {
		return
	}
	if _, err := matrixcsv.Parse(content, name); err != nil {
		slog.Warn("matrix content failed to parse", "table", name, "err", err)
	}
}

// readInput reads the whole of file, or stdin when file is empty.
func readInput(file string) ([]byte, error) {
	if file == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(file) //nolint:gosec // G304: path comes from a CLI flag.
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return data, nil
}

func (a *app) runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	file := fs.String("file", "", "CSV file to load (default: stdin)")
	name, err := tableName(fs, args)
	if err != nil {
		return err
	}
	content, err := readInput(*file)
	if err != nil {
		return err
	}
	lintMatrix(name, content)
	tbl, err := a.table(name)
	if err != nil {
		return err
	}
	if err := tbl.Init(content, a.user); err != nil {
		return err
	}
	fmt.Printf("initialized table %q (%d bytes)\n", name, len(content))
	return nil
}

func (a *app) runWrite(args []string) error {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	file := fs.String("file", "", "CSV file to load (default: stdin)")
	name, err := tableName(fs, args)
	if err != nil {
		return err
	}
	content, err := readInput(*file)
	if err != nil {
		return err
	}
	lintMatrix(name, content)
	tbl, err := a.table(name)
	if err != nil {
		return err
	}
	res, err := tbl.Write(content, a.user)
	if err != nil {
		return err
	}
	fmt.Printf("wrote version %d (%d bytes)\n", res.Timestamp, res.CurrentSize)
	return nil
}

func (a *app) runCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	name, err := tableName(fs, args)
	if err != nil {
		return err
	}
	tbl, err := a.table(name)
	if err != nil {
		return err
	}
	content, err := tbl.ReadCurrent()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(content)
	return err
}

func (a *app) runVersions(args []string) error {
	fs := flag.NewFlagSet("versions", flag.ExitOnError)
	name, err := tableName(fs, args)
	if err != nil {
		return err
	}
	tbl, err := a.table(name)
	if err != nil {
		return err
	}
	versions, err := tbl.ListVersions()
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Printf("table %q has no recorded versions\n", name)
		return nil
	}
	fmt.Printf("%-20s %-20s %-8s %-16s %s\n", "TIMESTAMP", "WHEN", "ACTION", "USER", "SIZE")
	for _, v := range versions {
		when := time.Unix(0, int64(v.Timestamp)).UTC().Format("2006-01-02 15:04:05") //nolint:gosec // G115: nanosecond timestamps stay far below int64 max.
		fmt.Printf("%-20d %-20s %-8s %-16s %d\n", v.Timestamp, when, v.Action, v.User, v.DeltaSize)
	}
	return nil
}

func (a *app) runRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	ts := fs.Uint64("ts", 0, "Version timestamp to restore")
	name, err := tableName(fs, args)
	if err != nil {
		return err
	}
	if *ts == 0 {
		return fmt.Errorf("rollback requires -ts (see 'reedbase versions %s')", name)
	}
	tbl, err := a.table(name)
	if err != nil {
		return err
	}
	if err := tbl.Rollback(*ts, a.user); err != nil {
		return err
	}
	fmt.Printf("restored version %d of table %q as a new version\n", *ts, name)
	return nil
}

func (a *app) runDrop(args []string) error {
	fs := flag.NewFlagSet("drop", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm deletion")
	name, err := tableName(fs, args)
	if err != nil {
		return err
	}
	tbl, err := a.table(name)
	if err != nil {
		return err
	}
	if err := tbl.Delete(*yes); err != nil {
		return err
	}
	fmt.Printf("deleted table %q and its history\n", name)
	return nil
}

func (a *app) runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	key := fs.String("key", "", "Key to resolve (required)")
	lang := fs.String("lang", "", "Language suffix, e.g. de")
	env := fs.String("env", "", "Environment to probe before the base key")
	file := fs.String("file", a.textPath(), "CSV file to read")
	fs.Parse(args)
	if *key == "" {
		return fmt.Errorf("get requires -key")
	}
	if *env != "" {
		if err := cache.ValidateEnvironment(*env); err != nil {
			return err
		}
	}
	recs, err := store.Init(reed.Request{Value: *file})
	if err != nil {
		return err
	}
	resp, err := store.Get(reed.Request{Key: *key, Language: *lang, Environment: *env}, recs)
	if err != nil {
		return err
	}
	slog.Debug("resolved key", "key", resp.Source, "file", *file)
	fmt.Println(resp.Data)
	return nil
}

func (a *app) runSet(args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	key := fs.String("key", "", "Key to set (required)")
	value := fs.String("value", "", "Value to store (required)")
	desc := fs.String("desc", "", "Description stored alongside the value")
	file := fs.String("file", a.textPath(), "CSV file to modify")
	fs.Parse(args)
	if *key == "" {
		return fmt.Errorf("set requires -key")
	}

	recs := store.Records{}
	if _, err := os.Stat(*file); err == nil {
		recs, err = store.Init(reed.Request{Value: *file})
		if err != nil {
			return err
		}
	}
	req := reed.Request{Key: *key, Value: *value, Description: *desc}
	resp, err := store.Set(req, recs, *file, a.backups())
	if err != nil {
		return err
	}
	fmt.Printf("set %s in %s\n", *key, resp.Source)
	return nil
}

func (a *app) runBackups(args []string) error {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	fs.Parse(args)

	var infos []backup.Info
	var err error
	if fs.NArg() > 0 {
		infos, err = a.backups().List(fs.Arg(0))
	} else {
		infos, err = a.backups().ListAll()
	}
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no backups")
		return nil
	}
	fmt.Printf("%-20s %-24s %8s  %s\n", "WHEN", "ORIGINAL", "SIZE", "FILE")
	for _, info := range infos {
		when := info.Timestamp.Format("2006-01-02 15:04:05")
		fmt.Printf("%-20s %-24s %8d  %s\n", when, info.Original, info.Size, filepath.Base(info.Path))
	}
	return nil
}

func (a *app) runRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	from := fs.String("backup", "", "Backup file to restore (required)")
	dest := fs.String("dest", "", "Destination CSV path (required)")
	fs.Parse(args)
	if *from == "" || *dest == "" {
		return fmt.Errorf("restore requires -backup and -dest")
	}

	// Accept either a full path or a bare filename from the listing.
	path := *from
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(a.root, "backups", *from)
	}
	if err := a.backups().Restore(path, *dest); err != nil {
		return err
	}
	fmt.Printf("restored %s from %s\n", *dest, filepath.Base(path))
	return nil
}

func (a *app) runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	cfgPath := fs.String("config", "reed.yaml", "Configuration file to sync")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	updated, err := config.Sync(cfg, a.root, a.backups())
	if err != nil {
		return err
	}
	for _, key := range updated {
		slog.Debug("synced config key", "key", key)
	}
	fmt.Printf("synced %d keys from %s\n", len(updated), *cfgPath)
	return nil
}

func (a *app) runAggregate(args []string) error {
	fs := flag.NewFlagSet("aggregate", flag.ExitOnError)
	src := fs.String("src", ".", "Directory to scan for *.text.csv fragments")
	out := fs.String("out", a.textPath(), "Aggregated output file")
	fs.Parse(args)

	n, err := store.AggregateText(*src, *out)
	if err != nil {
		return err
	}
	fmt.Printf("aggregated %d keys into %s\n", n, *out)
	return nil
}

func (a *app) runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	dir := fs.String("dir", a.root, "Directory to watch for CSV changes")
	fs.Parse(args)

	w := watch.New(*dir, func(changed []string) {
		for _, p := range changed {
			fmt.Println(p)
		}
	})
	slog.Info("watching for CSV changes", "dir", *dir)
	return w.Run(ctx)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: reedbase [flags] <subcommand> [flags]

Subcommands:
  init <table> [-file F]      Create a table from a CSV file or stdin
  write <table> [-file F]     Store a new version of a table
  cat <table>                 Print the current snapshot
  versions <table>            List versions, newest first
  rollback <table> -ts N      Restore an old version as a new one
  drop <table> -yes           Delete a table and its history
  get -key K [-lang L] [-env E] [-file F]
                              Resolve a value with language and environment fallback
  set -key K -value V [-desc D] [-file F]
                              Set a value (backs up the file first)
  backups [<basename>]        List backups, newest first
  restore -backup B -dest D   Restore a backup over a CSV file
  sync [-config reed.yaml]    Sync project configuration into CSV tables
  aggregate [-src D] [-out F] Collect *.text.csv fragments into one file
  watch [-dir D]              Report CSV changes until interrupted

Global flags:
`)
	flag.PrintDefaults()
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("reedbase %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// loadDotEnv reads KEY=VALUE pairs from .env in dir. A missing file is
// fine. Values may be double-quoted.
func loadDotEnv(dir string) (map[string]string, error) {
	env := make(map[string]string)
	data, err := os.ReadFile(filepath.Join(dir, ".env")) //nolint:gosec // G304: path is the working directory.
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}
