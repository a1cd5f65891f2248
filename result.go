package medic

import (
	"errors"

	"github.com/goccy/go-json"
)

// Result is the uniform outcome of every lifecycle and aggregate operation.
// Expected failure modes (a component that is not ready, an initialization
// that blew up) are reported through a failure Result rather than an error
// return, so callers always get one value per operation.
type Result struct {
	// Success reports whether the operation succeeded
	Success bool

	// Message is a human-readable summary of the outcome
	Message string

	// Data is the optional payload produced by the operation
	Data any

	// Err is the captured cause when Success is false (nil otherwise)
	Err error
}

// Ok returns a success Result with the given message.
func Ok(message string) Result {
	return Result{Success: true, Message: message}
}

// OkData returns a success Result carrying a payload.
func OkData(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Fail returns a failure Result carrying the captured cause.
func Fail(message string, err error) Result {
	return Result{Message: message, Err: err}
}

// IsNotReady reports whether the Result failed because the component was not
// in the active state. This distinguishes a readiness violation from a
// genuine lifecycle failure.
func (r Result) IsNotReady() bool {
	return errors.Is(r.Err, ErrNotReady)
}

// IsNotFound reports whether the Result failed because the named component
// is not registered.
func (r Result) IsNotFound() bool {
	return errors.Is(r.Err, ErrComponentNotFound)
}

// jsonResult is the wire shape of a Result. The error is flattened to its
// message since error values don't round-trip through JSON.
type jsonResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON encodes the Result for status pollers and log sinks.
func (r Result) JSON() ([]byte, error) {
	out := jsonResult{
		Success: r.Success,
		Message: r.Message,
		Data:    r.Data,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}
