package runtime

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/hostcall/wasm-bridge/errors"
)

// Instance is an executable instantiation of a Module. It owns a linear
// memory handle (nil if the module exports none) and the suspension state
// of at most one logical call.
type Instance struct {
	module *Module
	log    *zap.Logger
	name   string
	mod    api.Module
	memory api.Memory

	// opMu serializes Call/Resume/Abandon. It is held only while an
	// operation is in flight, not across a suspension, so TryLock failing
	// means a concurrent operation, which is protocol misuse.
	opMu sync.Mutex

	// mu guards the fields below; the trampoline reads sess from the
	// pinned call goroutine.
	mu      sync.Mutex
	running bool
	pending *ImportCall
	sess    *session
}

// Instantiate creates an Instance of the module. Hook namespaces are
// registered with the engine store first; a registration failure leaves
// no instance resource behind. Start functions do not run: imports can
// only be answered inside a live Call.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.Closed(errors.PhaseInstantiate, "module")
	}
	m.mu.Unlock()

	if err := m.registerHooks(ctx); err != nil {
		return nil, err
	}

	name := m.nextInstanceName()
	inst := &Instance{
		module: m,
		log:    m.log.With(zap.String("instance", name)),
		name:   name,
	}

	// Tracked before engine instantiation so the trampoline can resolve
	// the instance from its first moment of existence.
	m.trackInstance(name, inst)

	mod, err := m.store.InstantiateModule(ctx, m.compiled,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	if err != nil {
		m.untrackInstance(name)
		return nil, errors.Instantiation(err)
	}

	inst.mod = mod
	inst.memory = findMemoryExport(m.compiled, mod)

	m.log.Debug("instance created",
		zap.String("instance", name),
		zap.Bool("has_memory", inst.memory != nil))
	return inst, nil
}

// findMemoryExport locates the first exported memory (export-name order).
func findMemoryExport(compiled wazero.CompiledModule, mod api.Module) api.Memory {
	names := make([]string, 0, 1)
	for name := range compiled.ExportedMemories() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if mem := mod.ExportedMemory(name); mem != nil {
			return mem
		}
	}
	return nil
}

// Name returns the instance's unique name within its module's store.
func (i *Instance) Name() string {
	return i.name
}

// Read copies length bytes starting at offset out of the instance's
// linear memory.
func (i *Instance) Read(offset, length uint32) ([]byte, error) {
	if i.memory == nil {
		return nil, errors.NoMemory()
	}
	view, ok := i.memory.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(offset, length, i.memory.Size())
	}
	// The engine hands back a view of the live memory; detach it.
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// Write copies data into linear memory at offset. Bounds are checked
// before any byte moves, so a failed write has no partial effect.
func (i *Instance) Write(offset uint32, data []byte) error {
	if i.memory == nil {
		return errors.NoMemory()
	}
	if !i.memory.Write(offset, data) {
		return errors.OutOfBounds(offset, uint32(len(data)), i.memory.Size())
	}
	return nil
}

// MemorySize returns the current linear memory size in bytes.
func (i *Instance) MemorySize() (uint32, error) {
	if i.memory == nil {
		return 0, errors.NoMemory()
	}
	return i.memory.Size(), nil
}

// Close releases the instance. A suspended call is abandoned first so
// its pinned goroutine unwinds.
func (i *Instance) Close(ctx context.Context) error {
	_ = i.Abandon(ctx) // NotRunning when idle; ignored

	i.module.untrackInstance(i.name)
	if i.mod != nil {
		return i.mod.Close(ctx)
	}
	return nil
}
