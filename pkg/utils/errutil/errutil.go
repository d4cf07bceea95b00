// Package errutil keeps the fatal-error helpers used by the CLI layer.
package errutil

import (
	log "github.com/sirupsen/logrus"
)

// Check logs the supplied error and exits if it is non-nil.
func Check(err error) {
	if err != nil {
		log.Debugf("%+v", err)
		log.Fatalf("%v", err)
	}
}

// CheckWithContext checks the error and exits if it is non-nil. Logs
// additional context information.
func CheckWithContext(err error, context string) {
	if err != nil {
		log.Debugf("%s: %+v", context, err)
		log.Fatalf("%s: %v", context, err)
	}
}
