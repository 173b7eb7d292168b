// Package capture records the traffic of each test and archives the
// recordings after every round.
//
// A [Recorder] is started before a subject is tested and stopped with the
// test's result. [CommandRecorder] runs a packet capture tool (tcpdump by
// default) filtered to the subject's port, then renames the capture after
// the result: allowed when the test succeeded, blocked when it failed and
// incomplete when no result was produced. A YAML sidecar describing the
// capture is written next to it.
//
// [ZipArchiver] bundles the capture directory into
// adversary_data_YYYY_MM_DD_HH_MM_SS.zip.
package capture
