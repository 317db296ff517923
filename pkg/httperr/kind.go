package httperr

// Kind is the taxonomy-level classification of a failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindBadRequest
	KindUnauthorized
	KindNotFound
	KindServerError
	KindTimeout
	KindConnection
	// KindUnavailable is terminal: a retry budget was exhausted.
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindGeneric:      "generic",
	KindBadRequest:   "bad_request",
	KindUnauthorized: "unauthorized",
	KindNotFound:     "not_found",
	KindServerError:  "server_error",
	KindTimeout:      "timeout",
	KindConnection:   "connection_error",
	KindUnavailable:  "unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "generic"
}

// Error makes a Kind usable as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Transient reports whether failures of this kind are worth retrying.
func (k Kind) Transient() bool {
	switch k {
	case KindServerError, KindTimeout, KindConnection:
		return true
	default:
		return false
	}
}
