package ui

import (
	"fmt"
	"strings"

	"provkit/internal/command"
)

// Progress renders the operation-result stream of running flows on the
// console. It exists at the edge of the result side channel: the engine
// guarantees per-flow ordering and exactly-once delivery, the printer just
// formats whatever arrives.
type Progress struct {
	console *Console
}

// NewProgress creates a console-backed progress reporter.
func NewProgress() *Progress {
	return &Progress{console: NewConsole()}
}

// Listener returns a flow result listener that prints one line per
// executed operation.
func (p *Progress) Listener(flowName string) func(res *command.Result) {
	return func(res *command.Result) {
		if res.Success {
			p.console.PrintSuccess(fmt.Sprintf("  ✅ [%s] %s", flowName, res.Operation))
			return
		}
		p.console.PrintError(fmt.Sprintf("[%s] step failed: %s", flowName, res.Operation))
		if out := strings.TrimSpace(res.Output); out != "" {
			p.console.PrintInfo(indent(out))
		}
	}
}

// FlowFinished prints the aggregate outcome of one flow.
func (p *Progress) FlowFinished(flowName string, success bool) {
	if success {
		p.console.PrintSuccess(fmt.Sprintf("✨ Flow '%s' completed successfully", flowName))
	} else {
		p.console.PrintError(fmt.Sprintf("flow '%s' failed", flowName))
	}
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "      " + l
	}
	return strings.Join(lines, "\n")
}
