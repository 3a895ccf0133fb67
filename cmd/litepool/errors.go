package main

import "errors"

// Shared error variables for the litepool command.
var (
	ErrMissingCommand   = errors.New("missing command")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrUnknownHelpTopic = errors.New("unknown help topic")
	ErrLoadConfig       = errors.New("failed to load configuration")
	ErrOpenDb           = errors.New("failed to open database")
	ErrUnknownDriver    = errors.New("unknown database driver")
	ErrNoConfigFile     = errors.New("no configuration file to reload")
	ErrServerExit       = errors.New("server exited with an error")
	ErrWriteOutput      = errors.New("failed to write output")

	// command parsing errors
	ErrMissingArgument  = errors.New("missing required argument")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrInvalidFlag      = errors.New("invalid flag provided")
)
