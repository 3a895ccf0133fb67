package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/caasmo/litepool/db"
	"github.com/spf13/pflag"
)

func queryFlags() (*pflag.FlagSet, CommandHelp) {
	fs := pflag.NewFlagSet("query", pflag.ContinueOnError)
	fs.Bool("no-header", false, "Do not print the column names")
	return fs, CommandHelp{
		Usage:       "litepool query [options] <sql> [args...]",
		Description: "Runs a query on a reader session and prints the rows as aligned columns.",
		Options:     fs,
		Examples: []string{
			"litepool query \"SELECT k, v FROM kv ORDER BY k\"",
			"litepool query --no-header \"SELECT v FROM kv WHERE k = ?\" color",
		},
	}
}

func runQuery(ctx context.Context, a *app, fs *pflag.FlagSet, stdout io.Writer) error {
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: sql", ErrMissingArgument)
	}
	noHeader, _ := fs.GetBool("no-header")

	ctx, cancel := a.operationContext(ctx)
	defer cancel()

	rows, err := a.db.Query(ctx, fs.Arg(0), stringArgs(fs.Args()[1:])...)
	if err != nil {
		return err
	}
	a.logger.Debug("query completed", "rows", rows.Len())

	if err := printRows(stdout, rows, !noHeader); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

func printRows(w io.Writer, rows *db.Rows, header bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if header && len(rows.Columns) > 0 {
		fmt.Fprintln(tw, strings.Join(rows.Columns, "\t"))
	}
	for _, row := range rows.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "x'" + hex.EncodeToString(v) + "'"
	default:
		return fmt.Sprint(v)
	}
}
