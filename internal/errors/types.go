package errors

import "errors"

var (
	ErrPlanNotFound     = errors.New("plan file not found")
	ErrPlanParseFailed  = errors.New("plan parsing failed")
	ErrConfiguration    = errors.New("configuration invalid")
	ErrConnectivity     = errors.New("connection failed")
	ErrExecution        = errors.New("remote execution failed")
	ErrTransfer         = errors.New("file transfer failed")
	ErrCapacity         = errors.New("connection pool at capacity")
	ErrPoolShutdown     = errors.New("connection pool shutting down")
	ErrFlowFailed       = errors.New("flow execution failed")
	ErrFileSystemFailed = errors.New("filesystem operation failed")
)

type ProvKitError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *ProvKitError) Error() string {
	return e.OriginalErr.Error()
}

func (e *ProvKitError) Unwrap() error {
	return e.OriginalErr
}

// Is lets errors.Is match a ProvKitError against its taxonomy sentinel,
// so callers can branch on ErrCapacity etc. without unwrapping by hand.
func (e *ProvKitError) Is(target error) bool {
	return e.Type == target
}

func NewProvKitError(errorType error, context, cause, suggestion string, originalErr error) *ProvKitError {
	return &ProvKitError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewPlanError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrPlanNotFound, context, cause, suggestion, originalErr)
}

func NewParseError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrPlanParseFailed, context, cause, suggestion, originalErr)
}

func NewConfigurationError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrConfiguration, context, cause, suggestion, originalErr)
}

func NewConnectivityError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrConnectivity, context, cause, suggestion, originalErr)
}

func NewExecutionError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrExecution, context, cause, suggestion, originalErr)
}

func NewTransferError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrTransfer, context, cause, suggestion, originalErr)
}

func NewCapacityError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrCapacity, context, cause, suggestion, originalErr)
}

func NewShutdownError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrPoolShutdown, context, cause, suggestion, originalErr)
}

func NewFlowError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrFlowFailed, context, cause, suggestion, originalErr)
}

func NewFileSystemError(context, cause, suggestion string, originalErr error) *ProvKitError {
	return NewProvKitError(ErrFileSystemFailed, context, cause, suggestion, originalErr)
}
