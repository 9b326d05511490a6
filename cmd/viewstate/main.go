// Command viewstate inspects and edits a list view settings database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/andreyvit/viewstate"
)

// Config is the optional TOML config file. Command-line flags win.
type Config struct {
	Path     string `toml:"path"`
	Encoding string `toml:"encoding"`
	Verbose  bool   `toml:"verbose"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func parseEncoding(s string) (viewstate.Encoding, error) {
	switch strings.ToLower(s) {
	case "", "msgpack":
		return viewstate.MsgPack, nil
	case "json":
		return viewstate.JSON, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", s)
	}
}

func main() {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	if err := run(os.Args[1:], logger); err != nil {
		level.Error(logger).Log("msg", "command failed", "err", err)
		os.Exit(1)
	}
}

// run executes one command. The database is closed before run returns.
func run(args []string, logger log.Logger) error {
	app := kingpin.New("viewstate", "Inspect and edit list view settings")
	configFile := app.Flag("config", "TOML config file").Short('c').String()
	dbPath := app.Flag("db", "settings database file").Short('d').String()
	encoding := app.Flag("encoding", "value encoding for new writes (msgpack, json)").String()
	verbose := app.Flag("verbose", "trace every database operation").Short('v').Bool()

	keysCmd := app.Command("keys", "list stored settings keys")
	keysPrefix := keysCmd.Arg("prefix", "only keys starting with this prefix").String()

	dumpCmd := app.Command("dump", "print all stored settings")
	dumpMeta := dumpCmd.Flag("meta", "include mod counts and schema versions").Bool()
	dumpMerged := dumpCmd.Flag("merged", "include settings merged with defaults").Bool()

	getCmd := app.Command("get", "print the effective settings of a view")
	getKind := getCmd.Arg("kind", "view kind").Required().Enum(viewKindNames()...)
	getProject := getCmd.Arg("project", "project id").Required().Int()

	setCmd := app.Command("set", "store settings fields")
	setKey := setCmd.Arg("key", "settings key").Required().String()
	setFields := setCmd.Arg("fields", "field=json pairs, e.g. pageLimit=50").Required().Strings()

	resetCmd := app.Command("reset", "delete all settings stored under a key")
	resetKey := resetCmd.Arg("key", "settings key").Required().String()

	command, err := app.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Path = *dbPath
	}
	if *encoding != "" {
		cfg.Encoding = *encoding
	}
	if *verbose {
		cfg.Verbose = true
	}
	if cfg.Path == "" {
		return errors.New("database path is required, use --db or the config file")
	}
	enc, err := parseEncoding(cfg.Encoding)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := viewstate.Open(cfg.Path, viewstate.Options{
		Logf: func(format string, args ...any) {
			level.Debug(logger).Log("msg", fmt.Sprintf(format, args...))
		},
		Verbose:  cfg.Verbose,
		Encoding: enc,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	defer db.Close()

	switch command {
	case keysCmd.FullCommand():
		err = runKeys(ctx, db, *keysPrefix)
	case dumpCmd.FullCommand():
		flags := viewstate.DumpKeyHeaders | viewstate.DumpFields | viewstate.DumpStats
		if *dumpMeta {
			flags |= viewstate.DumpMeta
		}
		if *dumpMerged {
			flags |= viewstate.DumpMerged
		}
		err = runDump(db, flags)
	case getCmd.FullCommand():
		err = runGet(ctx, db, *getKind, *getProject, logger)
	case setCmd.FullCommand():
		err = runSet(ctx, db, *setKey, *setFields)
	case resetCmd.FullCommand():
		err = runReset(ctx, db, *resetKey, logger)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	level.Debug(logger).Log("msg", "done", "size", humanize.Bytes(uint64(db.Size())))
	return nil
}

func viewKindNames() []string {
	var names []string
	for _, vk := range viewstate.ViewKinds() {
		names = append(names, vk.Name())
	}
	return names
}

func findViewKind(name string) *viewstate.ViewKind {
	for _, vk := range viewstate.ViewKinds() {
		if vk.Name() == name {
			return vk
		}
	}
	return nil
}

func runKeys(ctx context.Context, db *viewstate.DB, prefix string) error {
	keys, err := db.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

func runDump(db *viewstate.DB, flags viewstate.DumpFlags) error {
	return db.ReadErr(func(tx *viewstate.Tx) error {
		fmt.Print(tx.Dump(flags))
		return nil
	})
}

func runGet(ctx context.Context, db *viewstate.DB, kindName string, projectID int, logger log.Logger) error {
	vk := findViewKind(kindName)
	if vk == nil {
		return fmt.Errorf("unknown view kind %q", kindName)
	}
	view := viewstate.NewView(db, vk, projectID, viewstate.ViewOptions{})
	s := view.Load(ctx)
	data, err := json.MarshalIndent(viewstate.EncodeSettings(s), "", "  ")
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "loaded settings", "key", view.Key())
	fmt.Println(string(data))
	return nil
}

func runSet(ctx context.Context, db *viewstate.DB, key string, pairs []string) error {
	raw := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%q: expected field=json", pair)
		}
		if !viewstate.IsSettingsKey(name) {
			return fmt.Errorf("%q: unknown settings field", name)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		raw[name] = v
	}
	if _, err := viewstate.Decode(raw); err != nil {
		return err
	}
	return db.Save(ctx, key, raw)
}

func runReset(ctx context.Context, db *viewstate.DB, key string, logger log.Logger) error {
	found, err := db.Reset(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		level.Warn(logger).Log("msg", "nothing stored", "key", key)
	}
	return nil
}
