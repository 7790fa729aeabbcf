package util

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/alugowski/archive-workdir/pkg/errors"
)

// HandleFatalError prints the error in its user-facing form and exits
// non-zero. Friendly errors print as-is; everything else keeps its context
// chain so the operator can see where it failed.
func HandleFatalError(err error) {
	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	os.Exit(1)
}

// HandlePanic converts a panic into a log line with a stack trace and a
// non-zero exit, rather than the raw runtime dump.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Panic: %v", r)
		os.Exit(1)
	}
}
