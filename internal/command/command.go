package command

// Execution flag names understood by the flow engine.
const (
	FlagFatal         = "failureIsFatal"
	FlagSkipOnSuccess = "skipOnSuccess"
)

// Terminal is an immutable command descriptor: the shell text plus a set of
// named boolean execution flags. A Terminal is consumed exactly once per
// step execution.
type Terminal struct {
	text  string
	flags map[string]bool
}

// NewTerminal builds a command descriptor with the given flags enabled.
func NewTerminal(text string, flags ...string) *Terminal {
	m := make(map[string]bool, len(flags))
	for _, f := range flags {
		m[f] = true
	}
	return &Terminal{text: text, flags: m}
}

// Text returns the shell command.
func (t *Terminal) Text() string {
	return t.text
}

// Flag reports whether the named execution flag is set.
func (t *Terminal) Flag(name string) bool {
	return t.flags[name]
}

// Result is the immutable outcome record of one executed operation. It is
// created once per operation and broadcast to subscribers, never mutated.
type Result struct {
	Operation string
	Success   bool
	Output    string
}

// NewResult builds an operation result.
func NewResult(operation string, success bool, output string) *Result {
	return &Result{Operation: operation, Success: success, Output: output}
}
