package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torosent/canary/internal/dispatcher"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "canary <server-ip> [resources-dir]",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Test selection
	flags.IntP("runs", "n", 1, fmt.Sprintf("Number of rounds to run (%d-%d)", MinRuns, MaxRuns))
	flags.Bool("web-tests", false, "Also test direct reachability of the web targets")
	flags.StringSlice("transports", nil, "Transports to test (default shadow,Replicant)")
	flags.StringSlice("library", nil, "Transports to bring up in-process instead of through the dispatcher")

	// Dispatcher flags
	flags.String("dispatcher", "", "Path to the transport dispatcher (default <resources-dir>/"+dispatcher.DefaultExecutable+")")
	flags.String("terminate", "", "How to stop the dispatcher: 'signal' or 'sweep' (default depends on OS)")
	flags.Duration("launch-grace", dispatcher.DefaultGrace, "How long the dispatcher must stay up before a test proceeds")
	flags.Duration("settle", DefaultSettle, "Pause after each test's teardown")
	flags.Duration("probe-timeout", DefaultProbeTimeout, "Overall bound on a single probe")

	// Capture flags
	flags.Bool("capture", true, "Record traffic for each test (requires root)")
	flags.StringP("interface", "i", "", "Network interface to capture on (guessed when empty)")
	flags.String("capture-dir", DefaultCaptureDir, "Directory for capture files")
	flags.Duration("capture-tail", DefaultCaptureTail, "How long to keep recording after a test ends")
	flags.String("archive-dir", ".", "Directory for per-round capture archives")

	// Output flags
	flags.String("output-dir", DefaultOutputDir, "Directory for the results CSV")
	flags.Bool("json-output", false, "Emit the run summary as JSON")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "console", "Log format: console or json")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP endpoint for test spans (disabled when empty)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("runs") {
		val, err := fs.GetInt("runs")
		if err != nil {
			return err
		}
		cfg.Runs = val
	}
	if fs.Changed("web-tests") {
		val, err := fs.GetBool("web-tests")
		if err != nil {
			return err
		}
		cfg.WebTests = val
	}
	if fs.Changed("transports") {
		val, err := fs.GetStringSlice("transports")
		if err != nil {
			return err
		}
		cfg.Transports = trimAll(val)
	}
	if fs.Changed("library") {
		val, err := fs.GetStringSlice("library")
		if err != nil {
			return err
		}
		cfg.Library = trimAll(val)
	}
	if fs.Changed("dispatcher") {
		val, err := fs.GetString("dispatcher")
		if err != nil {
			return err
		}
		cfg.Dispatcher = strings.TrimSpace(val)
	}
	if fs.Changed("terminate") {
		val, err := fs.GetString("terminate")
		if err != nil {
			return err
		}
		cfg.Terminate = strings.TrimSpace(val)
	}
	if fs.Changed("launch-grace") {
		val, err := fs.GetDuration("launch-grace")
		if err != nil {
			return err
		}
		cfg.LaunchGrace = val
	}
	if fs.Changed("settle") {
		val, err := fs.GetDuration("settle")
		if err != nil {
			return err
		}
		cfg.Settle = val
	}
	if fs.Changed("probe-timeout") {
		val, err := fs.GetDuration("probe-timeout")
		if err != nil {
			return err
		}
		cfg.ProbeTimeout = val
	}
	if fs.Changed("capture") {
		val, err := fs.GetBool("capture")
		if err != nil {
			return err
		}
		cfg.Capture = val
	}
	if fs.Changed("interface") {
		val, err := fs.GetString("interface")
		if err != nil {
			return err
		}
		cfg.Interface = strings.TrimSpace(val)
	}
	if fs.Changed("capture-dir") {
		val, err := fs.GetString("capture-dir")
		if err != nil {
			return err
		}
		cfg.CaptureDir = val
	}
	if fs.Changed("capture-tail") {
		val, err := fs.GetDuration("capture-tail")
		if err != nil {
			return err
		}
		cfg.CaptureTail = val
	}
	if fs.Changed("archive-dir") {
		val, err := fs.GetString("archive-dir")
		if err != nil {
			return err
		}
		cfg.ArchiveDir = val
	}
	if fs.Changed("output-dir") {
		val, err := fs.GetString("output-dir")
		if err != nil {
			return err
		}
		cfg.OutputDir = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = val
	}
	if fs.Changed("log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.LogFormat = val
	}
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
