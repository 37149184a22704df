// Command tactical-sim runs a tile-based battle from a scenario file and
// records it to the configured storage backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/database"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"
)

func main() {
	args := os.Args[1:]
	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = strings.ToLower(args[0]), args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runCommand(args)
	case "export":
		err = exportCommand(args)
	case "version":
		fmt.Println(CurrentVersion, BuildDate)
	default:
		err = fmt.Errorf("unknown command %q, expected run, export or version", cmd)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	scenarioPath := fs.String("scenario", "", "scenario file (YAML or JSON)")
	duration := fs.Duration("duration", 0, "simulated time to run, overrides the scenario; 0 runs until decided or interrupted")
	stdin := fs.Bool("stdin", false, "read intake commands from standard input while running")
	upload := fs.Bool("upload", false, "upload the replay to api.serverUrl when the battle ends")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scenarioPath == "" {
		return fmt.Errorf("-scenario is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		ConfigDir:    *configDir,
		ScenarioPath: *scenarioPath,
		Duration:     *duration,
		Upload:       *upload,
	}
	if *stdin {
		opts.Commands = os.Stdin
		opts.Replies = os.Stdout
	}

	res, err := runBattle(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Battle ended (%s) after %d ticks\n", res.Summary.Reason, res.Summary.Ticks)
	if res.ReplayPath != "" {
		fmt.Println("Replay written to", res.ReplayPath)
	}
	return nil
}

func exportCommand(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	sqlitePath := fs.String("sqlite", "", "read from this SQLite dump instead of Postgres")
	outputDir := fs.String("out", "", "output directory, defaults to storage.memory.outputDir")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no battle IDs provided")
	}

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintln(os.Stderr, "Using default config:", err)
	}
	memCfg := config.GetStorageConfig().Memory
	if *outputDir != "" {
		memCfg.OutputDir = *outputDir
	}

	dbLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	var db *gorm.DB
	var err error
	if *sqlitePath != "" {
		db, err = database.OpenSQLite(*sqlitePath, dbLogger)
	} else {
		db, err = database.OpenPostgres(config.GetDBConfig(), dbLogger)
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	for _, arg := range fs.Args() {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid battle ID %q: %w", arg, err)
		}
		path, err := exportBattle(db, uint(id), memCfg)
		if err != nil {
			return err
		}
		fmt.Println("Wrote battle data to", path)
	}
	return nil
}
