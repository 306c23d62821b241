// Package runtime embeds the wazero engine and exposes the host-call
// bridge: modules are loaded, instantiated, and driven through a
// call/suspend/resume protocol in which every import the guest invokes is
// frozen mid-call and handed to the host as data.
//
// A logical call spans one Call and any number of Resume round trips:
//
//	res, err := inst.Call(ctx, "f", int32(5))
//	for err == nil && res.Status == runtime.StatusSuspended {
//		answer := handle(res.Import) // compute the import's result out-of-band
//		res, err = inst.Resume(ctx, answer)
//	}
//
// The engine frames for a suspended call stay live on a goroutine pinned
// for the whole logical call; Resume hands the host's value back to the
// exact frame that invoked the import, as if the import had returned
// normally.
package runtime
