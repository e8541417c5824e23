package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "connect", "read", "write")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error (e.g. a bind
// failure: retrying cannot free the port)
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnknownSymbol is returned when a symbol is not part of the tracked set. Not retriable.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrBadFrame is returned when a wire frame cannot be parsed. The frame is discarded.
	ErrBadFrame = errors.New("malformed frame")

	// ErrRegionExists is returned when a shared region with the same name is already present.
	ErrRegionExists = errors.New("shared region already exists")

	// ErrRegionNotFound is returned when attaching to a shared region that was never created.
	ErrRegionNotFound = errors.New("shared region not found")

	// ErrRegionCorrupt is returned when the region header fails validation.
	ErrRegionCorrupt = errors.New("shared region corrupt")

	// ErrAckTimeout is returned when no ack arrives within the configured window.
	ErrAckTimeout = errors.New("ack timeout")
)
