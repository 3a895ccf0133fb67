package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caasmo/litepool/config"
	"github.com/spf13/pflag"
)

// command is a litepool subcommand. flags returns a fresh flag set and the
// help text describing it.
type command struct {
	name        string
	description string
	flags       func() (*pflag.FlagSet, CommandHelp)
	run         func(ctx context.Context, a *app, fs *pflag.FlagSet, stdout io.Writer) error
	// server commands manage the background daemons themselves.
	server bool
}

var commands = []command{
	{name: "exec", description: "Execute one statement on the writer session", flags: execFlags, run: runExec},
	{name: "query", description: "Run a query on a reader session and print the rows", flags: queryFlags, run: runQuery},
	{name: "bench", description: "Run concurrent readers and writers against a scratch table", flags: benchFlags, run: runBench},
	{name: "serve", description: "Serve Prometheus metrics and pool status over HTTP", flags: serveFlags, run: runServe, server: true},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func globalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("litepool", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "Path to a TOML configuration file")
	fs.String("db", "", "Path to the SQLite database file (overrides db.path)")
	fs.String("log-level", "", "Log level: debug, info, warn or error (overrides log.level)")
	// Stop at the command name so that command flags are parsed by the command.
	fs.SetInterspersed(false)
	return fs
}

func globalHelp(fs *pflag.FlagSet) CommandHelp {
	var subcommands []Subcommand
	for _, c := range commands {
		subcommands = append(subcommands, Subcommand{c.name, c.description})
	}
	subcommands = append(subcommands, Subcommand{"help", "Show help for a specific command"})

	return CommandHelp{
		Usage:         "litepool [global options] <command> [command options]",
		Description:   "Shares one writer and N reader SQLite sessions, each with its own statement cache.",
		Subcommands:   []SubcommandGroup{{Subcommands: subcommands}},
		GlobalOptions: fs,
		Examples: []string{
			"litepool --db app.db exec \"CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)\"",
			"litepool --db app.db query \"SELECT * FROM kv WHERE k = ?\" mykey",
			"litepool -c litepool.toml bench --workers 16",
			"litepool -c litepool.toml serve",
		},
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := globalFlags()
	fs.SetOutput(stderr)
	usage := func() {
		help := globalHelp(fs)
		help.Print(stderr, "litepool")
	}
	fs.Usage = usage

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}

	cmdArgs := fs.Args()
	if len(cmdArgs) < 1 {
		usage()
		return ErrMissingCommand
	}
	name := cmdArgs[0]
	commandArgs := cmdArgs[1:]

	if name == "help" {
		return handleHelpCommand(commandArgs, stdout, usage)
	}

	cmd, ok := lookupCommand(name)
	if !ok {
		usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	cmdFlags, help := cmd.flags()
	cmdFlags.SetOutput(stderr)
	cmdFlags.Usage = func() { help.Print(stderr) }
	if err := cmdFlags.Parse(commandArgs); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}

	configPath, _ := fs.GetString("config")
	dbPath, _ := fs.GetString("db")
	logLevel, _ := fs.GetString("log-level")
	cfg, err := loadConfig(configPath, dbPath, logLevel)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, config.NewProvider(cfg), configPath, stderr)
	if err != nil {
		return err
	}

	if !cmd.server {
		if err := a.start(); err != nil {
			return errors.Join(err, a.close())
		}
	}
	runErr := cmd.run(ctx, a, cmdFlags, stdout)
	return errors.Join(runErr, a.close())
}

// loadConfig reads path, or starts from the defaults when path is empty, and
// applies the command line overrides.
func loadConfig(path, dbPath, logLevel string) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	if dbPath != "" {
		cfg.Db.Path = dbPath
	}
	if logLevel != "" {
		if err := cfg.Log.Level.UnmarshalText([]byte(logLevel)); err != nil {
			return nil, fmt.Errorf("%w: --log-level: %v", ErrInvalidFlag, err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	return cfg, nil
}
