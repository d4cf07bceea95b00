package conf

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"
)

// envPrefix namespaces the environment variables mirroring every flag.
const envPrefix = "POLYBENCH"

// definedFlags stores all the defined flags to surface duplicate
// definitions early.
var definedFlags = map[string]struct{}{}

// cliAndEnvFlag represents an option's definition from CLI and environment
// variable. It stores generic data for each defined flag.
type cliAndEnvFlag struct {
	*kingpin.FlagClause
}

func newCliAndEnvFlag(flagName string, description string, defaultValue string) *cliAndEnvFlag {
	if _, duplicated := definedFlags[flagName]; duplicated {
		panic(fmt.Sprintf("flag %q was already defined", flagName))
	}
	definedFlags[flagName] = struct{}{}

	flag := &cliAndEnvFlag{FlagClause: app.Flag(flagName, description)}
	flag.OverrideDefaultFromEnvar(flag.envName())
	if defaultValue != "" {
		flag.Default(defaultValue)
	}
	return flag
}

// envName returns the flag name converted to its environment variable
// name: "output" becomes "POLYBENCH_OUTPUT".
func (f *cliAndEnvFlag) envName() string {
	return fmt.Sprintf("%s_%s", envPrefix, strings.ToUpper(strings.Replace(f.Model().Name, "-", "_", -1)))
}

// StringFlag represents a flag with a string value.
type StringFlag struct {
	*cliAndEnvFlag
	value *string
}

// NewStringFlag is a constructor of StringFlag struct.
func NewStringFlag(flagName string, description string, defaultValue string) *StringFlag {
	flag := &StringFlag{cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue)}
	flag.value = flag.String()
	return flag
}

// Value returns the value of the flag.
func (f *StringFlag) Value() string {
	return *f.value
}

// IntFlag represents a flag with an int value.
type IntFlag struct {
	*cliAndEnvFlag
	value *int
}

// NewIntFlag is a constructor of IntFlag struct.
func NewIntFlag(flagName string, description string, defaultValue int) *IntFlag {
	flag := &IntFlag{cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%d", defaultValue))}
	flag.value = flag.Int()
	return flag
}

// Value returns the value of the flag.
func (f *IntFlag) Value() int {
	return *f.value
}

// Int64Flag represents a flag with an int64 value.
type Int64Flag struct {
	*cliAndEnvFlag
	value *int64
}

// NewInt64Flag is a constructor of Int64Flag struct.
func NewInt64Flag(flagName string, description string, defaultValue int64) *Int64Flag {
	flag := &Int64Flag{cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%d", defaultValue))}
	flag.value = flag.Int64()
	return flag
}

// Value returns the value of the flag.
func (f *Int64Flag) Value() int64 {
	return *f.value
}

// BoolFlag represents a flag with a bool value.
type BoolFlag struct {
	*cliAndEnvFlag
	value *bool
}

// NewBoolFlag is a constructor of BoolFlag struct.
func NewBoolFlag(flagName string, description string, defaultValue bool) *BoolFlag {
	flag := &BoolFlag{cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%v", defaultValue))}
	flag.value = flag.Bool()
	return flag
}

// Value returns the value of the flag.
func (f *BoolFlag) Value() bool {
	return *f.value
}

// DurationFlag represents a flag with a time.Duration value.
type DurationFlag struct {
	*cliAndEnvFlag
	value *time.Duration
}

// NewDurationFlag is a constructor of DurationFlag struct.
func NewDurationFlag(flagName string, description string, defaultValue time.Duration) *DurationFlag {
	flag := &DurationFlag{cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue.String())}
	flag.value = flag.Duration()
	return flag
}

// Value returns the value of the flag.
func (f *DurationFlag) Value() time.Duration {
	return *f.value
}
