// Package dispatcher manages the external pluggable-transport dispatcher
// process.
//
// A [Launcher] owns at most one running dispatcher. Launch always tears
// down the previous process before spawning a new one, checks the
// executable exists, discards the child's output, and waits a grace
// period before reporting whether the process survived start-up.
//
// Stopping goes through a [Terminator]. Two backends exist:
//   - [SignalTerminator] sends SIGTERM, waits, then escalates to SIGKILL.
//   - [SweepTerminator] kills every process with the dispatcher's name.
//
// The default backend is chosen per platform (see DefaultTerminateMode)
// and can be overridden from configuration.
//
// [KillAllByName] is the unconditional sweep used at shutdown and after
// the last round, and [FindByName] looks a process name up in the OS
// process table.
//
// [BuildArgs] constructs the dispatcher's argument vector and fails closed
// when a transport's options file is missing.
package dispatcher
