package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvBool reads a strict boolean: only true/false, 1/0 and yes/no (any case)
// are accepted. def is used when the variable is unset.
func EnvBool(name string, def bool) (bool, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("environment variable %s can't be cast to boolean: %q", name, v)
	}
}

// EnvInt reads an integer variable, def when unset.
func EnvInt(name string, def int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("environment variable %s is not an integer: %q", name, v)
	}
	return n, nil
}

func IsDebug() (bool, error) { return EnvBool("DEBUG", false) }

func IsTest() (bool, error) { return EnvBool("TEST", false) }

func IsCloud() (bool, error) { return EnvBool("CLOUD", false) }

// Port is the listening port, 8080 by default.
func Port() (int, error) { return EnvInt("PORT", 8080) }

// Token returns TOKEN or, when unset, a random URL safe token.
func Token() string {
	if v := os.Getenv("TOKEN"); v != "" {
		return v
	}
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// ProjectID is the Google Cloud project the process runs in, if any.
func ProjectID() string {
	return os.Getenv("GOOGLE_CLOUD_PROJECT")
}
