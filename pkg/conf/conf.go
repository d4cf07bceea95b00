// Package conf is a helper for harness configuration for both the command
// line interface and environment variables. It gives the ability to
// register options which will be fetched from CLI input OR an environment
// variable with the POLYBENCH_ prefix. For instance the "output" flag is
// also read from POLYBENCH_OUTPUT.
package conf

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	app = kingpin.New("polybench", "Cross-language benchmark execution and aggregation harness.")

	logLevelFlag = NewStringFlag(
		"log",
		"Log level: debug, info, warn, error, fatal, panic",
		"info",
	)
)

// SetAppName sets application name for CLI output.
func SetAppName(name string) {
	app.Name = name
}

// AppName returns the specified app name.
func AppName() string {
	return app.Name
}

// SetHelp sets the help message for the CLI.
func SetHelp(help string) {
	app.Help = help
}

// SetVersion sets the version reported by --version.
func SetVersion(version string) {
	app.Version(version)
}

// LogLevel returns the configured level from the input option or
// environment variable.
func LogLevel() (log.Level, error) {
	level, err := log.ParseLevel(logLevelFlag.Value())
	if err != nil {
		return log.InfoLevel, errors.Wrap(err, "cannot parse log level")
	}
	return level, nil
}

// ParseFlags parses both the command line flags of the process and the
// environment variables.
func ParseFlags() error {
	_, err := app.Parse(os.Args[1:])
	if err != nil {
		return errors.Wrap(err, "could not parse command line flags")
	}
	return nil
}

// parse is a test helper parsing an explicit argument list.
func parse(args []string) error {
	_, err := app.Parse(args)
	return err
}
