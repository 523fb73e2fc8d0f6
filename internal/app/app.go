package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"provkit/internal/flow"
	"provkit/internal/parser"
	"provkit/internal/pool"
	"provkit/internal/step"
	"provkit/internal/ui"
	"provkit/pkg/plan"
)

const (
	// Color codes for console output
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

const shutdownTimeout = 30 * time.Second

// Apply orchestrates a complete provisioning run: parse the plan, bring up
// the connection pool, compile every flow through the recipe registry, run
// the root flows, and tear the pool down. This is the Facade over all
// internal components.
func Apply(planPath string, isDryRun bool) error {
	slog.Info("Starting ProvKit apply run", "planPath", planPath, "dryRun", isDryRun)

	p, err := parser.Parse(planPath)
	if err != nil {
		return fmt.Errorf("plan parsing failed: %w", err)
	}
	runID := uuid.New().String()
	slog.Info("Plan parsed successfully", "name", p.Metadata.Name, "runId", runID,
		"connections", len(p.Spec.Connections), "flows", len(p.Spec.Flows))

	if isDryRun {
		fmt.Printf("%s🔍 DRY RUN MODE - No commands will be executed%s\n\n", ColorYellow, ColorReset)
		return dryRun(p)
	}

	fmt.Printf("%s🚧 Provisioning '%s' (%d flows)%s\n", ColorCyan, p.Metadata.Name, len(p.Spec.Flows), ColorReset)

	connPool := pool.New(pool.OptionsFromSettings(p.Spec.Pool))
	defer connPool.Shutdown(shutdownTimeout)

	run, err := compile(p, connPool)
	if err != nil {
		return err
	}
	defer run.releaseAll(connPool)

	ctx := context.Background()
	for _, root := range run.roots {
		if err := root.Run(ctx); err != nil {
			return fmt.Errorf("flow %q failed to start: %w", root.Name(), err)
		}
	}
	for _, root := range run.roots {
		<-root.Done()
	}

	failed := run.failedFlows()
	if len(failed) > 0 {
		fmt.Printf("%s❌ Provisioning finished with failures: %v%s\n", ColorRed, failed, ColorReset)
		slog.Warn("ProvKit apply run finished with failures", "runId", runID, "failedFlows", failed)
		return fmt.Errorf("provisioning failed: flows %v did not complete successfully", failed)
	}

	fmt.Printf("%s🎉 PROVKIT APPLY COMPLETED SUCCESSFULLY!%s\n", ColorGreen, ColorReset)
	slog.Info("ProvKit apply run completed successfully", "planName", p.Metadata.Name, "runId", runID)
	return nil
}

// Validate parses the plan and compiles every step through the registry;
// a nil return means the plan would run.
func Validate(planPath string) error {
	p, err := parser.Parse(planPath)
	if err != nil {
		return err
	}
	registry := step.Builtin()
	for _, fs := range p.Spec.Flows {
		for _, ss := range fs.Steps {
			def, err := step.FromSpec(ss)
			if err != nil {
				return fmt.Errorf("flow %q: %w", fs.Name, err)
			}
			if _, err := registry.Obtain(def); err != nil {
				return fmt.Errorf("flow %q: %w", fs.Name, err)
			}
		}
	}
	return nil
}

// compiledRun holds the assembled flows of one apply invocation.
type compiledRun struct {
	roots    []*flow.Flow
	acquired []*plan.ConnectionConfig

	mu       sync.Mutex
	failures []string
}

func (r *compiledRun) recordOutcome(name string, success bool) {
	if success {
		return
	}
	r.mu.Lock()
	r.failures = append(r.failures, name)
	r.mu.Unlock()
}

func (r *compiledRun) failedFlows() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failures...)
}

func (r *compiledRun) releaseAll(connPool *pool.Pool) {
	for _, cfg := range r.acquired {
		connPool.Release(cfg)
	}
	r.acquired = nil
}

// compile builds every declared flow: acquire its pooled connection,
// resolve its steps through the recipe registry, wire subscribers and the
// completion callback, then connect the declared chains.
func compile(p *plan.Plan, connPool *pool.Pool) (*compiledRun, error) {
	ctx := context.Background()
	registry := step.Builtin()
	progress := ui.NewProgress()
	run := &compiledRun{}

	configs := make(map[string]*plan.ConnectionConfig, len(p.Spec.Connections))
	for i := range p.Spec.Connections {
		configs[p.Spec.Connections[i].Name] = &p.Spec.Connections[i]
	}

	flows := make(map[string]*flow.Flow, len(p.Spec.Flows))
	for _, fs := range p.Spec.Flows {
		cfg := configs[fs.Connection]
		conn, err := connPool.Get(ctx, cfg)
		if err != nil {
			run.releaseAll(connPool)
			return nil, fmt.Errorf("flow %q: acquiring connection %q: %w", fs.Name, fs.Connection, err)
		}
		run.acquired = append(run.acquired, cfg)

		f := flow.New(fs.Name).With(conn).Subscribe(progress.Listener(fs.Name))
		for _, ss := range fs.Steps {
			def, err := step.FromSpec(ss)
			if err != nil {
				run.releaseAll(connPool)
				return nil, fmt.Errorf("flow %q: %w", fs.Name, err)
			}
			op, err := registry.Obtain(def)
			if err != nil {
				run.releaseAll(connPool)
				return nil, fmt.Errorf("flow %q: %w", fs.Name, err)
			}
			f.Perform(op)
		}

		name := fs.Name
		f.OnFinish(func(success bool) {
			run.recordOutcome(name, success)
			progress.FlowFinished(name, success)
		})
		flows[fs.Name] = f
	}

	chained := make(map[string]bool)
	for _, fs := range p.Spec.Flows {
		if fs.After == "" {
			continue
		}
		flows[fs.After].ConnectFlow(flows[fs.Name], fs.OnlyOnSuccess)
		chained[fs.Name] = true
	}
	for _, fs := range p.Spec.Flows {
		if !chained[fs.Name] {
			run.roots = append(run.roots, flows[fs.Name])
		}
	}
	if len(run.roots) == 0 {
		run.releaseAll(connPool)
		return nil, fmt.Errorf("plan has no root flow: every flow chains after another")
	}
	return run, nil
}

// dryRun prints the operations a plan would perform without touching any
// connection.
func dryRun(p *plan.Plan) error {
	registry := step.Builtin()
	for _, fs := range p.Spec.Flows {
		gate := ""
		if fs.After != "" {
			gate = fmt.Sprintf(" (after %s", fs.After)
			if fs.OnlyOnSuccess {
				gate += ", only on success"
			}
			gate += ")"
		}
		fmt.Printf("%s🔍 DRY RUN: Flow '%s' on connection '%s'%s%s\n", ColorYellow, fs.Name, fs.Connection, gate, ColorReset)
		for _, ss := range fs.Steps {
			def, err := step.FromSpec(ss)
			if err != nil {
				return fmt.Errorf("flow %q: %w", fs.Name, err)
			}
			if _, err := registry.Obtain(def); err != nil {
				return fmt.Errorf("flow %q: %w", fs.Name, err)
			}
			fmt.Printf("%s🔍 DRY RUN:   would run %s step '%s'%s\n", ColorYellow, def.Kind, def.Name, ColorReset)
		}
	}
	fmt.Printf("\n%s✅ DRY RUN COMPLETED - plan is valid%s\n", ColorGreen, ColorReset)
	return nil
}
