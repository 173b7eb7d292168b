// Package probe drives the canary request/response exchange over an
// established byte stream and classifies what came back.
//
// # Protocol
//
// The probe writes a fixed HTTP/1.0 request, then reads the stream in
// bounded chunks, appending every chunk to a buffer until either the
// configured marker appears in the buffer or the stream stops yielding
// data (EOF, read error, or read timeout).
//
// # Classification
//
// Once reading stops the buffer is classified:
//   - the request could not be written: ConnectError
//   - nothing was received: NoResponse
//   - no "\r\n\r\n" header/body separator: NoResponse
//   - a marker is set: Success iff the body equals the marker, else Mismatch
//   - no marker: Success (reachability mode)
//
// Transport tests use the marker ("Yeah!\n"); web reachability tests leave
// it empty so any complete response counts.
//
// # Deadlines
//
// Every read is bounded by ReadTimeout and the whole exchange by Deadline;
// MaxReads caps the number of read calls. A stream that never closes and
// never sends the marker therefore ends as NoResponse or Mismatch rather
// than blocking the run.
package probe
