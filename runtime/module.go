package runtime

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/hostcall/wasm-bridge/marshal"
)

// ExternKind labels an import or export descriptor.
type ExternKind string

const (
	ExternFunc   ExternKind = "func"
	ExternGlobal ExternKind = "global"
	ExternTable  ExternKind = "table"
	ExternMemory ExternKind = "memory"
)

// ImportDescriptor describes one declared import of a module. Signature
// is empty for non-function kinds.
type ImportDescriptor struct {
	Kind      ExternKind
	Namespace string
	Field     string
	Signature string
}

// ExportDescriptor describes one declared export of a module.
type ExportDescriptor struct {
	Kind      ExternKind
	Field     string
	Signature string
}

// Module is a compiled, immutable program plus the engine store it was
// compiled under. It must outlive every Instance created from it.
type Module struct {
	rt       *Runtime
	log      *zap.Logger
	store    wazero.Runtime
	compiled wazero.CompiledModule

	imports []ImportDescriptor
	exports []ExportDescriptor
	hooks   []*HookLibrary

	hooksOnce sync.Once
	hooksErr  error

	seq       atomic.Uint64
	mu        sync.Mutex
	instances map[string]*Instance
	closed    bool
}

func newModule(r *Runtime, store wazero.Runtime, compiled wazero.CompiledModule) (*Module, error) {
	m := &Module{
		rt:        r,
		log:       r.log,
		store:     store,
		compiled:  compiled,
		instances: make(map[string]*Instance),
	}

	importedFuncs := compiled.ImportedFunctions()
	for _, def := range importedFuncs {
		ns, field, _ := def.Import()
		m.imports = append(m.imports, ImportDescriptor{
			Kind:      ExternFunc,
			Namespace: ns,
			Field:     field,
			Signature: marshal.SignatureOf(def),
		})
	}
	for _, def := range compiled.ImportedMemories() {
		ns, field, _ := def.Import()
		m.imports = append(m.imports, ImportDescriptor{
			Kind:      ExternMemory,
			Namespace: ns,
			Field:     field,
		})
	}

	m.exports = exportDescriptors(compiled)
	m.hooks = buildHookLibraries(importedFuncs)
	return m, nil
}

// exportDescriptors lists function and memory exports in name order. The
// engine does not enumerate table or global externs on compiled modules.
func exportDescriptors(compiled wazero.CompiledModule) []ExportDescriptor {
	var out []ExportDescriptor
	for name, def := range compiled.ExportedFunctions() {
		out = append(out, ExportDescriptor{
			Kind:      ExternFunc,
			Field:     name,
			Signature: marshal.SignatureOf(def),
		})
	}
	for name := range compiled.ExportedMemories() {
		out = append(out, ExportDescriptor{Kind: ExternMemory, Field: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// Imports returns the module's import descriptors in declaration order
// (function imports first, then memories).
func (m *Module) Imports() []ImportDescriptor {
	out := make([]ImportDescriptor, len(m.imports))
	copy(out, m.imports)
	return out
}

// Exports returns the module's export descriptors in name order.
func (m *Module) Exports() []ExportDescriptor {
	out := make([]ExportDescriptor, len(m.exports))
	copy(out, m.exports)
	return out
}

// HookLibraries returns the per-namespace grouping of function imports.
func (m *Module) HookLibraries() []*HookLibrary {
	out := make([]*HookLibrary, len(m.hooks))
	copy(out, m.hooks)
	return out
}

// Close releases the module's engine store and with it every Instance
// still alive. Suspended instances are abandoned first so their pinned
// goroutines unwind.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	insts := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		insts = append(insts, inst)
	}
	m.mu.Unlock()

	for _, inst := range insts {
		_ = inst.Close(ctx)
	}
	return m.store.Close(ctx)
}

func (m *Module) trackInstance(name string, inst *Instance) {
	m.mu.Lock()
	m.instances[name] = inst
	m.mu.Unlock()
}

func (m *Module) untrackInstance(name string) {
	m.mu.Lock()
	delete(m.instances, name)
	m.mu.Unlock()
}

func (m *Module) instanceFor(name string) *Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instances[name]
}

func (m *Module) nextInstanceName() string {
	base := m.compiled.Name()
	if base == "" {
		base = "instance"
	}
	return base + "." + strconv.FormatUint(m.seq.Add(1), 10)
}
