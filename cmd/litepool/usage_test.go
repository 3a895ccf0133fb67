package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommandHelp_Print(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("option", "default", "a test option")

	help := CommandHelp{
		Usage:       "test-usage",
		Description: "test description",
		Subcommands: []SubcommandGroup{
			{
				Title: "Test Group",
				Subcommands: []Subcommand{
					{"sub", "sub description"},
				},
			},
		},
		Options:       fs,
		GlobalOptions: fs,
		Examples: []string{
			"example 1",
		},
	}

	var buf bytes.Buffer
	help.Print(&buf, "test-parent")

	output := buf.String()

	expectedSubstrings := []string{
		"Usage:",
		"test-usage",
		"Description:",
		"test description",
		"Subcommands:",
		"Test Group",
		"sub",
		"sub description",
		"Options:",
		"--option",
		"a test option",
		"Global Options:",
		"Examples:",
		"example 1",
		"For detailed help on a subcommand:",
		"test-parent help <subcommand>",
	}

	for _, sub := range expectedSubstrings {
		if !strings.Contains(output, sub) {
			t.Errorf("expected output to contain %q, but it did not.\n\nGot:\n%s", sub, output)
		}
	}
}

func TestCommandHelp_PrintSkipsEmptySections(t *testing.T) {
	help := CommandHelp{
		Usage:   "only-usage",
		Options: pflag.NewFlagSet("empty", pflag.ContinueOnError),
	}

	var buf bytes.Buffer
	help.Print(&buf)

	output := buf.String()
	for _, absent := range []string{"Description:", "Options:", "Examples:", "For detailed help"} {
		if strings.Contains(output, absent) {
			t.Errorf("output should not contain %q:\n%s", absent, output)
		}
	}
	if output != "Usage:\n  only-usage\n" {
		t.Errorf("output = %q", output)
	}
}
