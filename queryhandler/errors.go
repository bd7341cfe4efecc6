package queryhandler

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoRoot is returned when a query is given no root element.
var ErrNoRoot = errors.New("queryhandler: no root element")

// ErrUnknownHandler is returned by Resolve when a selector names a prefix no
// handler is registered for.
type ErrUnknownHandler struct {
	Name string
}

func (e *ErrUnknownHandler) Error() string {
	return fmt.Sprintf("queryhandler: query set to use %q, but no query handler of that name was found", e.Name)
}

// ErrInvalidName is returned by Register for names outside [a-zA-Z]+.
type ErrInvalidName struct {
	Name string
}

func (e *ErrInvalidName) Error() string {
	return fmt.Sprintf("queryhandler: custom query handler names may only contain [a-zA-Z]: %q", e.Name)
}

// ErrDuplicateHandler is returned by Register when the name is taken.
type ErrDuplicateHandler struct {
	Name string
}

func (e *ErrDuplicateHandler) Error() string {
	return fmt.Sprintf("queryhandler: a custom query handler named %q already exists", e.Name)
}

// ErrBuiltinHandler is returned by Unregister for built-in dialects.
type ErrBuiltinHandler struct {
	Name string
}

func (e *ErrBuiltinHandler) Error() string {
	return fmt.Sprintf("queryhandler: cannot unregister built-in query handler %q", e.Name)
}

// ErrWaitTimeout is returned by polling WaitFor implementations.
type ErrWaitTimeout struct {
	Selector string
	Timeout  time.Duration
}

func (e *ErrWaitTimeout) Error() string {
	return fmt.Sprintf("queryhandler: waiting for selector %q failed: timeout %s exceeded", e.Selector, e.Timeout)
}
