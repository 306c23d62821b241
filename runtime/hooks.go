package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/hostcall/wasm-bridge/errors"
	"github.com/hostcall/wasm-bridge/marshal"
)

// ImportHook describes one function import to be intercepted. Immutable
// after load; the trampoline receives it as its attachment and dispatches
// on it at call time.
type ImportHook struct {
	Namespace string
	Field     string
	Signature string

	params  []marshal.Kind
	results []marshal.Kind

	// unknownTypes marks imports using value types the bridge cannot
	// marshal; they render as '?' in Signature and fail registration.
	unknownTypes bool
}

// HookLibrary is a namespace name plus the ordered function imports
// declared under it. The engine binds a namespace's symbol table in one
// host-module instantiation, so grouping happens at load time.
type HookLibrary struct {
	Namespace string
	Hooks     []*ImportHook
}

func buildHookLibraries(defs []api.FunctionDefinition) []*HookLibrary {
	var libs []*HookLibrary
	byNS := make(map[string]*HookLibrary)

	for _, def := range defs {
		ns, field, _ := def.Import()
		params, perr := marshal.Kinds(def.ParamTypes())
		results, rerr := marshal.Kinds(def.ResultTypes())
		hook := &ImportHook{
			Namespace: ns,
			Field:     field,
			Signature: marshal.SignatureOf(def),
			params:    params,
			results:   results,
		}
		if perr != nil || rerr != nil {
			hook.params, hook.results = nil, nil
			hook.unknownTypes = true
		}

		lib := byNS[ns]
		if lib == nil {
			lib = &HookLibrary{Namespace: ns}
			byNS[ns] = lib
			libs = append(libs, lib)
		}
		lib.Hooks = append(lib.Hooks, hook)
	}
	return libs
}

// valueTypes resolves the engine-level shape the trampoline registers
// under. Hooks whose signatures cannot cross the host boundary (vector,
// funcref, multi-value results) are unregistrable.
func (h *ImportHook) valueTypes() (params, results []api.ValueType, err error) {
	if h.unknownTypes {
		return nil, nil, errors.Unsupported(errors.PhaseInstantiate,
			"import "+h.Namespace+"."+h.Field+" has signature "+h.Signature+" which cannot be intercepted")
	}
	if len(h.results) > 1 {
		return nil, nil, errors.Unsupported(errors.PhaseInstantiate,
			"import "+h.Namespace+"."+h.Field+" declares multiple results")
	}

	params = make([]api.ValueType, len(h.params))
	for i, k := range h.params {
		if params[i], err = k.ValueType(); err != nil {
			return nil, nil, err
		}
	}
	results = make([]api.ValueType, len(h.results))
	for i, k := range h.results {
		if results[i], err = k.ValueType(); err != nil {
			return nil, nil, err
		}
	}
	return params, results, nil
}

// registerHooks instantiates one host module per HookLibrary in the
// module's store. The engine resolves a namespace once per store, so the
// first instantiation registers and later ones reuse; a failure is
// remembered and re-reported.
func (m *Module) registerHooks(ctx context.Context) error {
	m.hooksOnce.Do(func() {
		m.hooksErr = m.instantiateHostModules(ctx)
	})
	return m.hooksErr
}

func (m *Module) instantiateHostModules(ctx context.Context) error {
	for _, lib := range m.hooks {
		builder := m.store.NewHostModuleBuilder(lib.Namespace)
		for _, hook := range lib.Hooks {
			params, results, err := hook.valueTypes()
			if err != nil {
				return errors.Registration(lib.Namespace, err)
			}
			hook := hook
			builder.NewFunctionBuilder().
				WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
					m.dispatchImport(mod, hook, stack)
				}), params, results).
				Export(hook.Field)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Registration(lib.Namespace, err)
		}
		m.log.Debug("hook namespace registered",
			zap.String("namespace", lib.Namespace),
			zap.Int("hooks", len(lib.Hooks)))
	}
	return nil
}

// dispatchImport is the generic trampoline. It runs on the goroutine
// executing the suspended call, decodes the invocation's arguments per
// the hook attachment, publishes the pending import, and parks until the
// host resumes or abandons the call. A panic here unwinds the engine
// frames and surfaces as a trap on the logical call.
func (m *Module) dispatchImport(mod api.Module, hook *ImportHook, stack []uint64) {
	inst := m.instanceFor(mod.Name())
	if inst == nil {
		panic(errors.NotFound(errors.PhaseCall, "instance", mod.Name()))
	}

	args := make([]any, len(hook.params))
	for i, k := range hook.params {
		v, err := marshal.FromEngine(stack[i], k)
		if err != nil {
			panic(err)
		}
		args[i] = v
	}

	pending := &ImportCall{
		Namespace: hook.Namespace,
		Field:     hook.Field,
		Args:      args,
		Signature: hook.Signature,
	}
	if len(hook.results) == 1 {
		pending.resultKind = hook.results[0]
	}

	m.log.Debug("import intercepted",
		zap.String("instance", inst.name),
		zap.String("namespace", hook.Namespace),
		zap.String("field", hook.Field),
		zap.String("signature", hook.Signature))

	raw, err := inst.yieldImport(pending)
	if err != nil {
		panic(err)
	}
	if len(hook.results) == 1 {
		stack[0] = raw
	}
}
