package step

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"provkit/internal/command"
	"provkit/internal/errors"
	"provkit/internal/flow"
	"provkit/internal/source"
	"provkit/pkg/remote"
)

// Recipe is the execution strategy bound to a step kind: it turns a
// definition into a runnable operation.
type Recipe func(def Definition, r *Registry) (flow.Operation, error)

// Registry maps step kinds to recipes. Registering a kind again overwrites
// the previous recipe; obtaining an unregistered kind is a configuration
// error raised at build time.
type Registry struct {
	mu      sync.RWMutex
	recipes map[Kind]Recipe
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{recipes: make(map[Kind]Recipe)}
}

// Builtin returns a registry preloaded with the built-in recipes.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(KindCommand, commandRecipe)
	r.Register(KindCondition, conditionRecipe)
	r.Register(KindSkipCondition, skipConditionRecipe)
	r.Register(KindDeploy, deployRecipe)
	r.Register(KindGroup, groupRecipe)
	return r
}

// Register binds a recipe to a kind. Last registration wins.
func (r *Registry) Register(kind Kind, recipe Recipe) {
	r.mu.Lock()
	r.recipes[kind] = recipe
	r.mu.Unlock()
}

// Obtain resolves a definition into an executable operation.
func (r *Registry) Obtain(def Definition) (flow.Operation, error) {
	r.mu.RLock()
	recipe, ok := r.recipes[def.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("Step '%s' has an unknown type", def.Name),
			fmt.Sprintf("no recipe is registered for step type %q", def.Kind),
			"Use one of the registered step types",
			fmt.Errorf("unregistered step type: %s", def.Kind),
		)
	}
	return recipe(def, r)
}

// terminalOp executes one terminal command and interprets its result
// through the command's execution flags.
type terminalOp struct {
	name     string
	terminal *command.Terminal
	timeout  time.Duration
}

func newTerminalOp(def Definition, flags ...string) *terminalOp {
	return &terminalOp{
		name:     def.Name,
		terminal: command.NewTerminal(def.Command, flags...),
		timeout:  def.Timeout,
	}
}

func (o *terminalOp) Name() string {
	return o.name
}

func (o *terminalOp) Run(ctx context.Context, conn remote.Connection) flow.Outcome {
	res := conn.Execute(ctx, o.terminal.Text(), o.timeout)
	output := res.Stdout
	if !res.Success && res.Stderr != "" {
		output = res.Stderr
	}
	if o.terminal.Flag(command.FlagSkipOnSuccess) {
		// A skip condition is not a pass/fail gate: its own result is
		// always a success, it only decides whether the rest of the
		// flow still runs.
		return flow.Outcome{Success: true, SkipRemaining: res.Success, Output: output}
	}
	return flow.Outcome{
		Success: res.Success,
		Fatal:   !res.Success && o.terminal.Flag(command.FlagFatal),
		Output:  output,
	}
}

func commandRecipe(def Definition, _ *Registry) (flow.Operation, error) {
	var flags []string
	if def.Fatal {
		flags = append(flags, command.FlagFatal)
	}
	return newTerminalOp(def, flags...), nil
}

// conditionRecipe: a condition that does not hold halts the flow.
func conditionRecipe(def Definition, _ *Registry) (flow.Operation, error) {
	return newTerminalOp(def, command.FlagFatal), nil
}

// skipConditionRecipe: a condition that holds suppresses every later step
// in the flow without failing any of them.
func skipConditionRecipe(def Definition, _ *Registry) (flow.Operation, error) {
	return newTerminalOp(def, command.FlagSkipOnSuccess), nil
}

// deployOp stages the payload locally, then uploads every staged file to
// the destination through the bound connection.
type deployOp struct {
	def Definition
}

func deployRecipe(def Definition, _ *Registry) (flow.Operation, error) {
	return &deployOp{def: def}, nil
}

func (o *deployOp) Name() string {
	return o.def.Name
}

func (o *deployOp) Run(ctx context.Context, conn remote.Connection) flow.Outcome {
	stageDir, err := source.Stage(ctx, o.def.Source)
	if err != nil {
		return flow.Outcome{Fatal: o.def.Fatal, Output: err.Error()}
	}
	defer os.RemoveAll(stageDir)

	files, err := source.Files(stageDir)
	if err != nil {
		return flow.Outcome{Fatal: o.def.Fatal, Output: err.Error()}
	}

	var total int64
	for _, rel := range files {
		local := filepath.Join(stageDir, rel)
		remotePath := filepath.Join(o.def.Destination, rel)
		tr := conn.Upload(ctx, local, remotePath)
		if !tr.Success {
			return flow.Outcome{
				Fatal:  o.def.Fatal,
				Output: fmt.Sprintf("upload of %s failed: %s", rel, tr.Stderr),
			}
		}
		total += tr.BytesTransferred
	}

	return flow.Outcome{
		Success: true,
		Output:  fmt.Sprintf("deployed %d files (%d bytes) to %s", len(files), total, o.def.Destination),
	}
}

// groupOp runs its nested steps in order as one composite operation. Fatal
// and skip semantics apply within the group; the group's own result is the
// AND over its executed children.
type groupOp struct {
	name     string
	fatal    bool
	children []flow.Operation
}

func groupRecipe(def Definition, r *Registry) (flow.Operation, error) {
	ops := make([]flow.Operation, 0, len(def.Steps))
	for _, nested := range def.Steps {
		op, err := r.Obtain(nested)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return &groupOp{name: def.Name, fatal: def.Fatal, children: ops}, nil
}

func (o *groupOp) Name() string {
	return o.name
}

func (o *groupOp) Run(ctx context.Context, conn remote.Connection) flow.Outcome {
	success := true
	var output string
	for _, child := range o.children {
		outcome := child.Run(ctx, conn)
		output = appendOutput(output, child.Name(), outcome.Output)
		if !outcome.Success {
			success = false
			if outcome.Fatal {
				break
			}
		}
		if outcome.SkipRemaining {
			break
		}
	}
	return flow.Outcome{Success: success, Fatal: !success && o.fatal, Output: output}
}

func appendOutput(existing, name, output string) string {
	if output == "" {
		return existing
	}
	line := fmt.Sprintf("[%s] %s", name, output)
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
