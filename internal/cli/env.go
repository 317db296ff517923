// Package cli implements the baski command line.
package cli

import (
	"io"
	"os"

	"github.com/inercia/go-baski/pkg/factory"
)

// Env holds the dependencies commands use, so tests can replace them.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// Registry resolves provider names for the complete command.
	Registry *factory.Registry
}

// DefaultEnv writes to the process streams and knows every builtin
// provider.
func DefaultEnv() *Env {
	return &Env{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Registry: factory.Builtin(),
	}
}
