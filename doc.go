// Package wasmbridge embeds a WebAssembly engine and turns every import
// call a guest makes into data the host program can inspect and answer.
//
// A guest module declares imports; instead of binding them to fixed host
// functions, the bridge registers one generic trampoline per import. When
// the guest calls an import, execution freezes mid-call and the pending
// invocation (namespace, field, arguments, signature) is handed to the
// host. The host computes the answer with whatever latency it needs and
// resumes the guest with the result.
//
// # Architecture Overview
//
//	wasmbridge/          Root package with the Memory interface
//	├── runtime/         Load, instantiate, call/suspend/resume
//	├── marshal/         Signature codes and host <-> engine values
//	├── errors/          Structured error types for debugging
//	└── cmd/run/         CLI for exercising modules interactively
//
// # Quick Start
//
//	rt := runtime.New()
//	defer rt.Close(ctx)
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	res, err := inst.Call(ctx, "f", int32(5))
//	for err == nil && res.Status == runtime.StatusSuspended {
//	    imp := res.Import
//	    res, err = inst.Resume(ctx, answer(imp.Namespace, imp.Field, imp.Args))
//	}
//
// # Signature Encoding
//
// Function shapes travel as compact "(params)results" strings built from
// one-character codes:
//
//	i  i32    I  i64    f  f32    F  f64
//	R  externref    V  v128    c  funcref
//
// "(iI)f" is a function taking an i32 and an i64 and returning an f32.
// V and c can appear in descriptors but cannot cross the host boundary.
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. An Instance runs at
// most one logical call at a time; concurrent Call/Resume/Abandon fail
// fast with AlreadyRunning or NotRunning rather than queue.
//
// # Memory Model
//
// WASM linear memory can only grow, never shrink. When guest code frees
// memory it remains allocated but available for reuse within the
// instance. For memory-intensive workloads, consider recycling instances
// periodically.
package wasmbridge
