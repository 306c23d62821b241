package runtime

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hostcall/wasm-bridge/errors"
	"github.com/hostcall/wasm-bridge/marshal"
)

// Status tags the outcome of a Call or Resume round trip.
type Status int

const (
	// StatusCompleted: the export returned normally; Value holds the
	// converted result (nil for void functions).
	StatusCompleted Status = iota
	// StatusTrapped: the engine reported a runtime fault; Trap holds its
	// diagnostic text and the instance is Idle again.
	StatusTrapped
	// StatusSuspended: the guest invoked an import; Import describes the
	// pending call and the instance waits for Resume.
	StatusSuspended
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusTrapped:
		return "trapped"
	case StatusSuspended:
		return "suspended"
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// Result is the outcome of one Call/Resume round trip.
type Result struct {
	Status Status
	Value  any         // set when Status == StatusCompleted
	Trap   string      // set when Status == StatusTrapped
	Import *ImportCall // set when Status == StatusSuspended
}

// ImportCall describes an import invocation frozen mid-execution. It is
// created when the guest enters the trampoline and consumed exactly once
// by Resume.
type ImportCall struct {
	Namespace string
	Field     string
	Args      []any
	Signature string

	resultKind marshal.Kind
	fulfilled  bool
}

// ResultCode returns the pending call's declared result code, or
// marshal.KindNone for void imports.
func (c *ImportCall) ResultCode() marshal.Kind {
	return c.resultKind
}

type callOutcome struct {
	results []uint64
	err     error
}

// session carries one logical call: the pinned goroutine executing the
// engine, the rendezvous channels the trampoline parks on, and the
// declared result kinds of the exported function.
type session struct {
	imports   chan *ImportCall
	replies   chan uint64
	done      chan callOutcome
	abandon   chan struct{}
	abandoned atomic.Bool

	resultKinds []marshal.Kind
	function    string
}

func newSession(function string, resultKinds []marshal.Kind) *session {
	return &session{
		imports:     make(chan *ImportCall),
		replies:     make(chan uint64),
		done:        make(chan callOutcome, 1),
		abandon:     make(chan struct{}),
		resultKinds: resultKinds,
		function:    function,
	}
}

var errAbandoned = errors.NotRunning("call abandoned by host")

// Call begins a logical call of an exported function. It validates the
// function, arity, and argument kinds before any execution starts, then
// runs the engine on a dedicated goroutine and waits for the first
// suspension, trap, or completion.
func (i *Instance) Call(ctx context.Context, function string, args ...any) (*Result, error) {
	if !i.opMu.TryLock() {
		return nil, errors.AlreadyRunning()
	}
	defer i.opMu.Unlock()

	i.mu.Lock()
	running := i.running
	i.mu.Unlock()
	if running {
		// Suspended from a previous Call; only Resume/Abandon may proceed.
		return nil, errors.AlreadyRunning()
	}

	fn := i.mod.ExportedFunction(function)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseCall, "function", function)
	}
	def := fn.Definition()

	paramKinds, err := marshal.Kinds(def.ParamTypes())
	if err != nil {
		return nil, errors.Unsupported(errors.PhaseCall,
			"function "+function+" has parameters the bridge cannot marshal")
	}
	resultKinds, err := marshal.Kinds(def.ResultTypes())
	if err != nil || len(resultKinds) > 1 {
		return nil, errors.Unsupported(errors.PhaseCall,
			"function "+function+" has results the bridge cannot marshal")
	}

	if len(args) != len(paramKinds) {
		return nil, errors.Arity(len(paramKinds), len(args))
	}

	raw := make([]uint64, len(args))
	for idx, arg := range args {
		v, err := marshal.ToEngine(arg, paramKinds[idx])
		if err != nil {
			return nil, errors.Conversion(errors.PhaseCall,
				[]string{"arg[" + strconv.Itoa(idx) + "]"},
				typeName(arg), paramKinds[idx].String(), arg)
		}
		raw[idx] = v
	}

	sess := newSession(function, resultKinds)
	i.mu.Lock()
	i.running = true
	i.sess = sess
	i.mu.Unlock()

	i.log.Debug("call started",
		zap.String("function", function),
		zap.Int("args", len(args)))

	// The whole logical call is pinned to this goroutine: every engine
	// frame, including suspended trampoline frames, lives here until the
	// call completes, traps, or is abandoned.
	go func() {
		results, err := fn.Call(ctx, raw...)
		sess.done <- callOutcome{results: results, err: err}
	}()

	return i.wait(sess)
}

// Resume answers the pending import call with value and continues
// execution until the next suspension, trap, or completion. A value that
// does not convert to the pending call's result code leaves the instance
// Suspended so Resume can be retried.
func (i *Instance) Resume(ctx context.Context, value any) (*Result, error) {
	if !i.opMu.TryLock() {
		return nil, errors.NotRunning("operation in progress")
	}
	defer i.opMu.Unlock()

	i.mu.Lock()
	pending, sess := i.pending, i.sess
	i.mu.Unlock()
	if pending == nil || sess == nil {
		return nil, errors.NotRunning("no pending import call")
	}

	var raw uint64
	if pending.resultKind == marshal.KindNone {
		if value != nil {
			return nil, errors.InvalidResult(pending.resultKind.String(),
				errors.InvalidInput(errors.PhaseResume, "import declares no result"))
		}
	} else {
		var err error
		raw, err = marshal.ToEngine(value, pending.resultKind)
		if err != nil {
			return nil, errors.InvalidResult(pending.resultKind.String(), err)
		}
	}

	pending.fulfilled = true
	i.mu.Lock()
	i.pending = nil
	i.mu.Unlock()

	i.log.Debug("resume",
		zap.String("function", sess.function),
		zap.String("namespace", pending.Namespace),
		zap.String("field", pending.Field))

	// Unpark the trampoline frame; the guest sees the import return.
	sess.replies <- raw

	return i.wait(sess)
}

// Abandon releases a suspended instance: the parked trampoline frame is
// failed, the engine unwinds, and the pinned goroutine exits. The
// instance returns to Idle. Fails with NotRunning when nothing is
// suspended.
func (i *Instance) Abandon(ctx context.Context) error {
	if !i.opMu.TryLock() {
		return errors.NotRunning("operation in progress")
	}
	defer i.opMu.Unlock()

	i.mu.Lock()
	pending, sess := i.pending, i.sess
	i.mu.Unlock()
	if pending == nil || sess == nil {
		return errors.NotRunning("no pending import call")
	}

	sess.abandoned.Store(true)
	close(sess.abandon)
	<-sess.done

	i.mu.Lock()
	i.running = false
	i.pending = nil
	i.sess = nil
	i.mu.Unlock()

	i.log.Debug("call abandoned", zap.String("function", sess.function))
	return nil
}

// wait blocks until the pinned goroutine either reaches an import
// (suspension) or exits (completion or trap).
func (i *Instance) wait(sess *session) (*Result, error) {
	select {
	case pending := <-sess.imports:
		i.mu.Lock()
		i.pending = pending
		i.mu.Unlock()
		return &Result{Status: StatusSuspended, Import: pending}, nil

	case outcome := <-sess.done:
		return i.finish(sess, outcome)
	}
}

func (i *Instance) finish(sess *session, outcome callOutcome) (*Result, error) {
	i.mu.Lock()
	i.running = false
	i.pending = nil
	i.sess = nil
	i.mu.Unlock()

	if outcome.err != nil {
		i.log.Debug("trap",
			zap.String("function", sess.function),
			zap.Error(outcome.err))
		return &Result{Status: StatusTrapped, Trap: outcome.err.Error()}, nil
	}

	res := &Result{Status: StatusCompleted}
	if len(sess.resultKinds) == 1 && len(outcome.results) >= 1 {
		v, err := marshal.FromEngine(outcome.results[0], sess.resultKinds[0])
		if err != nil {
			return nil, err
		}
		res.Value = v
	}

	i.log.Debug("call completed", zap.String("function", sess.function))
	return res, nil
}

// yieldImport publishes a pending import from the trampoline and parks
// the calling (pinned) goroutine until the host answers or abandons.
func (i *Instance) yieldImport(pending *ImportCall) (uint64, error) {
	i.mu.Lock()
	sess := i.sess
	i.mu.Unlock()
	if sess == nil {
		return 0, errors.NotRunning("import invoked outside a live call")
	}

	select {
	case sess.imports <- pending:
	case <-sess.abandon:
		return 0, errAbandoned
	}

	select {
	case raw := <-sess.replies:
		return raw, nil
	case <-sess.abandon:
		return 0, errAbandoned
	}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
