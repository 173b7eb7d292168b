// Package runner sequences canary tests.
//
// An [Orchestrator] runs one test: it starts the capture, brings up the
// subject (a dispatcher process, an in-process transport, or a direct
// connection for web targets), probes it, persists the result, tears the
// subject down, labels the capture and then waits for the settle delay.
// Teardown runs on every path, including failed launches.
//
// A [Runner] drives the orchestrator over rounds × transports × web
// targets, strictly one test at a time, archives the captures after each
// round and finally sweeps any leftover dispatcher processes:
//
//	r := runner.New(runner.Options{
//		ServerIP:   "203.0.113.7",
//		Rounds:     3,
//		Transports: specs,
//		Dispatcher: dispatcherPath,
//		Writer:     results.NewCSVWriter("Output"),
//	})
//	summary := r.Run(ctx)
//
// Every test produces a result, so an uninterrupted run yields exactly
// Rounds × len(subjects) results in round-major order. Cancelling ctx
// stops the run after the current test's teardown; that test is recorded
// as incomplete and not persisted.
package runner
