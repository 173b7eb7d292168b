// Package transport establishes connections through in-process
// pluggable-transport implementations, as an alternative to spawning the
// dispatcher.
//
// Each call to [Connector.Establish] walks one attempt through
//
//	idle → connecting → ready | failed | cancelled
//
// and returns either the live connection (ready) or an error (failed,
// cancelled). A terminal state is entered exactly once per attempt.
//
// Transports are registered by name. Building a transport reads its
// config artifact from the resources directory; a missing or invalid
// artifact fails the attempt before any network activity. Names with no
// registered factory fail immediately with [ErrUnsupported].
package transport
