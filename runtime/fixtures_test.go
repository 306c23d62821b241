package runtime

import (
	"context"
	"testing"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt := New()
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

func loadModule(t *testing.T, rt *Runtime, bytecode []byte) *Module {
	t.Helper()
	mod, err := rt.Load(context.Background(), bytecode)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return mod
}

func instantiate(t *testing.T, mod *Module) *Instance {
	t.Helper()
	inst, err := mod.Instantiate(context.Background())
	if err != nil {
		t.Fatalf("Instantiate error: %v", err)
	}
	t.Cleanup(func() { _ = inst.Close(context.Background()) })
	return inst
}

// Minimal valid WASM module (no sections)
var minimalWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
}

// (func (export "add") (param i32 i32) (result i32) local.get 0 local.get 1 i32.add)
var addWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// Type section: (i32, i32) -> i32
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	// Function section: func 0 uses type 0
	0x03, 0x02, 0x01, 0x00,
	// Export section: "add" -> func 0
	0x07, 0x07, 0x01, 0x03, 0x61, 0x64, 0x64, 0x00, 0x00,
	// Code section: local.get 0, local.get 1, i32.add
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
}

// Exported function that round-trips through a host import:
//
//	(import "env" "get" (func (param i32) (result i32)))
//	(memory (export "memory") 1)
//	(func (export "f") (param i32) (result i32)
//	  local.get 0 local.get 0 call $get i32.add)
var importCallWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// Type section: (i32) -> i32
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f,
	// Import section: "env" "get" func type 0
	0x02, 0x0b, 0x01, 0x03, 0x65, 0x6e, 0x76, 0x03, 0x67, 0x65, 0x74, 0x00, 0x00,
	// Function section: func 1 uses type 0
	0x03, 0x02, 0x01, 0x00,
	// Memory section: min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// Export section: "f" -> func 1, "memory" -> mem 0
	0x07, 0x0e, 0x02,
	0x01, 0x66, 0x00, 0x01,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	// Code section: local.get 0, local.get 0, call 0, i32.add
	0x0a, 0x0b, 0x01, 0x09, 0x00, 0x20, 0x00, 0x20, 0x00, 0x10, 0x00, 0x6a, 0x0b,
}

// Import-only module spanning two namespaces:
//
//	(import "env" "get" (func (param i32) (result i32)))
//	(import "env" "log" (func (param i32)))
//	(import "sys" "now" (func (result i64)))
var twoNamespaceWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// Type section: (i32)->i32, (i32)->(), ()->i64
	0x01, 0x0e, 0x03,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,
	0x60, 0x00, 0x01, 0x7e,
	// Import section: env.get, env.log, sys.now
	0x02, 0x1f, 0x03,
	0x03, 0x65, 0x6e, 0x76, 0x03, 0x67, 0x65, 0x74, 0x00, 0x00,
	0x03, 0x65, 0x6e, 0x76, 0x03, 0x6c, 0x6f, 0x67, 0x00, 0x01,
	0x03, 0x73, 0x79, 0x73, 0x03, 0x6e, 0x6f, 0x77, 0x00, 0x02,
}

// Void import answered with nil:
//
//	(import "env" "log" (func (param i32)))
//	(func (export "run") (param i32) (result i32)
//	  local.get 0 call $log local.get 0)
var voidImportWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// Type section: (i32)->(), (i32)->i32
	0x01, 0x0a, 0x02,
	0x60, 0x01, 0x7f, 0x00,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	// Import section: "env" "log" func type 0
	0x02, 0x0b, 0x01, 0x03, 0x65, 0x6e, 0x76, 0x03, 0x6c, 0x6f, 0x67, 0x00, 0x00,
	// Function section: func 1 uses type 1
	0x03, 0x02, 0x01, 0x01,
	// Export section: "run" -> func 1
	0x07, 0x07, 0x01, 0x03, 0x72, 0x75, 0x6e, 0x00, 0x01,
	// Code section: local.get 0, call 0, local.get 0
	0x0a, 0x0a, 0x01, 0x08, 0x00, 0x20, 0x00, 0x10, 0x00, 0x20, 0x00, 0x0b,
}

// (func (export "boom") (result i32) unreachable)
var trapWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// Type section: () -> i32
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f,
	// Function section: func 0 uses type 0
	0x03, 0x02, 0x01, 0x00,
	// Export section: "boom" -> func 0
	0x07, 0x08, 0x01, 0x04, 0x62, 0x6f, 0x6f, 0x6d, 0x00, 0x00,
	// Code section: unreachable
	0x0a, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0b,
}

// (import "env" "pair" (func (result i32 i32))): multi-value results
// cannot cross the host boundary, so hook registration fails.
var multiResultImportWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// Type section: () -> (i32, i32)
	0x01, 0x06, 0x01, 0x60, 0x00, 0x02, 0x7f, 0x7f,
	// Import section: "env" "pair" func type 0
	0x02, 0x0c, 0x01, 0x03, 0x65, 0x6e, 0x76, 0x04, 0x70, 0x61, 0x69, 0x72, 0x00, 0x00,
}

// (import "env" "mem" (memory 1)): memory imports are not hooked, so
// instantiation cannot resolve this.
var memImportWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// Import section: "env" "mem" memory {min: 1}
	0x02, 0x0c, 0x01, 0x03, 0x65, 0x6e, 0x76, 0x03, 0x6d, 0x65, 0x6d, 0x02, 0x00, 0x01,
}
