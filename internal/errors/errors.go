package errors

import "sync"

// The process shares one handler so every surfaced error lands in the same
// log file. Constructed lazily on first use.
var (
	defaultHandler    *ErrorHandler
	defaultHandlerErr error
	once              sync.Once
)

// GetDefaultHandler returns the process-wide handler, building it on the
// first call. The construction error is sticky: later calls return it again
// without retrying.
func GetDefaultHandler() (*ErrorHandler, error) {
	once.Do(func() {
		defaultHandler, defaultHandlerErr = NewErrorHandler()
	})
	return defaultHandler, defaultHandlerErr
}

// HandleError routes err through the default handler. When the handler
// itself cannot be built the error is dropped rather than crashing the
// reporting path.
func HandleError(err error) {
	handler, handlerErr := GetDefaultHandler()
	if handlerErr != nil {
		return
	}
	handler.Handle(err)
}

// resetDefaultHandler clears the singleton between tests.
func resetDefaultHandler() {
	defaultHandler = nil
	defaultHandlerErr = nil
	once = sync.Once{}
}
