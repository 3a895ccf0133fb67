package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

func execFlags() (*pflag.FlagSet, CommandHelp) {
	fs := pflag.NewFlagSet("exec", pflag.ContinueOnError)
	return fs, CommandHelp{
		Usage: "litepool exec <sql> [args...]",
		Description: "Executes a single statement on the writer session and prints the number of changed rows.\n" +
			"Arguments are bound, in order, to the ? parameters of the statement as text.",
		Options: fs,
		Examples: []string{
			"litepool exec \"CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)\"",
			"litepool exec \"INSERT INTO kv (k, v) VALUES (?, ?)\" color blue",
		},
	}
}

func runExec(ctx context.Context, a *app, fs *pflag.FlagSet, stdout io.Writer) error {
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: sql", ErrMissingArgument)
	}

	ctx, cancel := a.operationContext(ctx)
	defer cancel()

	n, err := a.db.Exec(ctx, fs.Arg(0), stringArgs(fs.Args()[1:])...)
	if err != nil {
		return err
	}
	a.logger.Info("statement executed", "changes", n)

	if _, err := fmt.Fprintf(stdout, "%d row(s) changed\n", n); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

func stringArgs(args []string) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		out[i] = arg
	}
	return out
}
