package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrModelNotFound indicates no model is registered under the given identifier.
var ErrModelNotFound = errors.New("model not found")

// IsModelNotFound checks if an error indicates a model is not registered.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// CompileErrorCode classifies why a raw model was rejected.
type CompileErrorCode string

const (
	CodeInvalidModel            CompileErrorCode = "invalid_model"
	CodeDuplicateNode           CompileErrorCode = "duplicate_node"
	CodeDanglingPluginReference CompileErrorCode = "dangling_plugin_reference"
	CodeInvalidConfig           CompileErrorCode = "invalid_config"
	CodeDanglingReference       CompileErrorCode = "dangling_reference"
	CodeEventTarget             CompileErrorCode = "event_target"
	CodeDanglingGuard           CompileErrorCode = "dangling_guard"
	CodeGuardNotCondition       CompileErrorCode = "guard_not_condition"
	CodeWrongEntryKind          CompileErrorCode = "wrong_entry_kind"
	CodeDuplicateEntryPoint     CompileErrorCode = "duplicate_entry_point"
	CodeNoEntryPoints           CompileErrorCode = "no_entry_points"
	CodeUnconditionalCycle      CompileErrorCode = "unconditional_cycle"
)

// CompileError describes one problem found while compiling a model.
type CompileError struct {
	Code    CompileErrorCode `json:"code"`
	ModelID string           `json:"model_id"`
	NodeID  string           `json:"node_id,omitempty"`
	Message string           `json:"message"`
}

func (e *CompileError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("model %s, node %s: %s: %s", e.ModelID, e.NodeID, e.Code, e.Message)
	}

	return fmt.Sprintf("model %s: %s: %s", e.ModelID, e.Code, e.Message)
}

// CompileErrors is returned by Compile. It always holds at least one error.
type CompileErrors []*CompileError

func (e CompileErrors) Error() string {
	messages := make([]string, len(e))
	for i, err := range e {
		messages[i] = err.Error()
	}

	return strings.Join(messages, "; ")
}

func (e CompileErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}

	return errs
}

// Has reports whether any of the errors carries code.
func (e CompileErrors) Has(code CompileErrorCode) bool {
	for _, err := range e {
		if err.Code == code {
			return true
		}
	}

	return false
}

// AsCompileErrors extracts the compile errors from err.
func AsCompileErrors(err error) (CompileErrors, bool) {
	var ce CompileErrors
	if errors.As(err, &ce) {
		return ce, true
	}

	return nil, false
}

// IsCompileError checks if an error was produced by the compiler.
func IsCompileError(err error) bool {
	_, ok := AsCompileErrors(err)

	return ok
}

// GraphDepthExceededError aborts a branch that went past one of the traversal limits.
type GraphDepthExceededError struct {
	ModelID string
	NodeID  string
	Limit   string
	Max     int
}

func (e *GraphDepthExceededError) Error() string {
	if e.ModelID == "" {
		return fmt.Sprintf("graph depth exceeded: %s limit of %d reached", e.Limit, e.Max)
	}

	return fmt.Sprintf("graph depth exceeded in model %s at node %s: %s limit of %d reached",
		e.ModelID, e.NodeID, e.Limit, e.Max)
}

// IsGraphDepthExceeded checks if an error is a graph depth exceeded error.
func IsGraphDepthExceeded(err error) bool {
	var de *GraphDepthExceededError

	return errors.As(err, &de)
}

// PanicError wraps a value recovered from a plugin panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("plugin panicked: %v", e.Value)
}
