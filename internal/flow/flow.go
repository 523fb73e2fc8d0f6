package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"provkit/internal/command"
	"provkit/internal/errors"
	"provkit/pkg/remote"
)

// Outcome is an operation's interpretation of its own execution.
type Outcome struct {
	Success       bool
	Fatal         bool // a failure that must halt the remaining steps
	SkipRemaining bool // suppress (not fail) every later step in the flow
	Output        string
}

// Operation is one unit of work a flow can perform: it builds and runs its
// concrete command against the bound connection and interprets the result.
type Operation interface {
	Name() string
	Run(ctx context.Context, conn remote.Connection) Outcome
}

// DataHandler receives the result of the step it is attached to, typically
// to parse captured output into something later steps consume.
type DataHandler func(res *command.Result)

// Listener receives every published operation result of a flow, in step
// order, exactly once per executed operation.
type Listener func(res *command.Result)

// FinishCallback fires exactly once per flow with the aggregate success:
// the logical AND over all executed (non-skipped) step results.
type FinishCallback func(success bool)

// Flow states. A flow is terminal once its callback has fired; it cannot
// be re-run.
const (
	stateIdle int32 = iota
	stateRunning
	stateCompleted
)

type step struct {
	op      Operation
	handler DataHandler
}

type childLink struct {
	flow          *Flow
	onlyOnSuccess bool
}

// Flow is an ordered, runnable sequence of operations bound to one
// connection. Build it with With/Perform/ConnectFlow/OnFinish, then call
// Run exactly once; the steps execute in append order on the flow's own
// worker goroutine.
type Flow struct {
	id   string
	name string

	mu        sync.Mutex
	conn      remote.Connection
	steps     []step
	children  []childLink
	listeners []Listener
	onFinish  FinishCallback

	state atomic.Int32
	busy  atomic.Bool
	done  chan struct{}
}

// New creates an idle flow.
func New(name string) *Flow {
	return &Flow{
		id:   uuid.New().String(),
		name: name,
		done: make(chan struct{}),
	}
}

// ID returns the flow's unique run identifier.
func (f *Flow) ID() string {
	return f.id
}

// Name returns the flow's display name.
func (f *Flow) Name() string {
	return f.name
}

// With binds the connection the flow executes against. Returns the flow for
// chaining.
func (f *Flow) With(conn remote.Connection) *Flow {
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	return f
}

// Perform appends an operation, optionally with a data handler that
// receives the operation's result.
func (f *Flow) Perform(op Operation, handler ...DataHandler) *Flow {
	var h DataHandler
	if len(handler) > 0 {
		h = handler[0]
	}
	f.mu.Lock()
	f.steps = append(f.steps, step{op: op, handler: h})
	f.mu.Unlock()
	return f
}

// ConnectFlow registers a child flow that starts when this flow's run
// completes, regardless of this flow's own outcome unless onlyOnSuccess
// gates it.
func (f *Flow) ConnectFlow(child *Flow, onlyOnSuccess bool) *Flow {
	f.mu.Lock()
	f.children = append(f.children, childLink{flow: child, onlyOnSuccess: onlyOnSuccess})
	f.mu.Unlock()
	return f
}

// Subscribe registers a result listener. Listeners are invoked
// synchronously on the flow's worker, in step order, exactly once per
// executed operation. Ordering across concurrently running flows that
// share a listener is unspecified.
func (f *Flow) Subscribe(l Listener) *Flow {
	f.mu.Lock()
	f.listeners = append(f.listeners, l)
	f.mu.Unlock()
	return f
}

// OnFinish registers the single completion callback.
func (f *Flow) OnFinish(cb FinishCallback) *Flow {
	f.mu.Lock()
	f.onFinish = cb
	f.mu.Unlock()
	return f
}

// IsBusy reports whether the flow or any still-running chained descendant
// has not yet fired its callback.
func (f *Flow) IsBusy() bool {
	return f.busy.Load()
}

// Done returns a channel closed once the flow and every started descendant
// have completed. It is the non-polling alternative to IsBusy. The channel
// of a flow that never runs, such as a chained child gated out by its
// parent's failure, is never closed; select against the parent's Done
// instead of waiting on a child that may not start.
func (f *Flow) Done() <-chan struct{} {
	return f.done
}

// Run starts the flow on its own worker goroutine. Build-time errors (no
// bound connection, already run) surface synchronously here, before any
// worker is spawned; step-level failures never do, they become results
// and a callback(false).
func (f *Flow) Run(ctx context.Context) error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()

	if conn == nil {
		return errors.NewFlowError(
			fmt.Sprintf("Flow '%s' has no connection", f.name),
			"a flow must be bound to a connection before it runs",
			"Call With(connection) before Run",
			fmt.Errorf("flow %s: no connection bound", f.name),
		)
	}
	if !f.state.CompareAndSwap(stateIdle, stateRunning) {
		return errors.NewFlowError(
			fmt.Sprintf("Flow '%s' was already run", f.name),
			"flows are transient and cannot be re-run",
			"Build a fresh flow for another pass",
			fmt.Errorf("flow %s: already run", f.name),
		)
	}

	f.busy.Store(true)
	go f.work(ctx, conn)
	return nil
}

// work is the flow's single worker: strictly ordered steps, fatal
// short-circuit, skip suppression, one callback, then child start.
func (f *Flow) work(ctx context.Context, conn remote.Connection) {
	f.mu.Lock()
	steps := f.steps
	listeners := f.listeners
	onFinish := f.onFinish
	children := f.children
	f.mu.Unlock()

	slog.Info("Flow started", "flow", f.name, "id", f.id, "steps", len(steps))

	success := true
	skipping := false
	for _, s := range steps {
		if skipping {
			continue
		}

		outcome := s.op.Run(ctx, conn)
		res := command.NewResult(s.op.Name(), outcome.Success, outcome.Output)
		for _, l := range listeners {
			l(res)
		}
		if s.handler != nil {
			s.handler(res)
		}

		if !outcome.Success {
			success = false
			if outcome.Fatal {
				slog.Warn("Fatal step failure, halting flow", "flow", f.name, "step", s.op.Name())
				break
			}
		}
		if outcome.SkipRemaining {
			slog.Info("Skip condition met, suppressing remaining steps", "flow", f.name, "step", s.op.Name())
			skipping = true
		}
	}

	f.state.Store(stateCompleted)
	if onFinish != nil {
		onFinish(success)
	}
	slog.Info("Flow completed", "flow", f.name, "id", f.id, "success", success)

	// Children start only after the callback has returned, each on its
	// own worker. Fire-and-continue is the default; onlyOnSuccess gates
	// a link explicitly.
	started := make([]*Flow, 0, len(children))
	for _, link := range children {
		if link.onlyOnSuccess && !success {
			slog.Info("Skipping gated child flow", "flow", f.name, "child", link.flow.Name())
			continue
		}
		if err := link.flow.Run(ctx); err != nil {
			slog.Warn("Child flow failed to start", "flow", f.name, "child", link.flow.Name(), "error", err)
			continue
		}
		started = append(started, link.flow)
	}

	for _, child := range started {
		<-child.Done()
	}
	f.busy.Store(false)
	close(f.done)
}
