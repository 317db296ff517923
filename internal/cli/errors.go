package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/inercia/go-baski/pkg/httperr"
)

const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitUsage       = 2
	ExitUnavailable = 3
	ExitInterrupt   = 130
)

// ErrUsage marks invalid command line input.
var ErrUsage = errors.New("usage error")

// cobra does not type its parsing errors
var usagePatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

// ExitCode maps an error returned by the root command to a process exit
// code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupt
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, httperr.KindUnavailable):
		return ExitUnavailable
	}
	msg := err.Error()
	for _, p := range usagePatterns {
		if strings.Contains(msg, p) {
			return ExitUsage
		}
	}
	return ExitGeneral
}
