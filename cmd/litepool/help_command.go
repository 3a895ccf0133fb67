package main

import (
	"fmt"
	"io"
)

// handleHelpCommand prints the help of the command named in args, or the
// global usage without arguments.
func handleHelpCommand(args []string, stdout io.Writer, mainUsage func()) error {
	if len(args) == 0 {
		mainUsage()
		return nil
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: help takes one command name", ErrTooManyArguments)
	}

	cmd, ok := lookupCommand(args[0])
	if !ok {
		mainUsage()
		return fmt.Errorf("%w: %s", ErrUnknownHelpTopic, args[0])
	}
	_, help := cmd.flags()
	help.Print(stdout)
	return nil
}
