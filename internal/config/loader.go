package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/canary/internal/dispatcher"
	"github.com/torosent/canary/internal/model"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
// Positional arguments are the server IP and, optionally, the resources directory.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	positional := flagSet.Args()
	configPath := flagSet.Lookup("config").Value.String()
	if len(positional) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	if len(positional) > 2 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(positional[2:], " "))
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		ResourcesDir: DefaultResourcesDir,
		Runs:         1,
		Settle:       DefaultSettle,
		CaptureTail:  DefaultCaptureTail,
		LaunchGrace:  dispatcher.DefaultGrace,
		ProbeTimeout: DefaultProbeTimeout,
		OutputDir:    DefaultOutputDir,
		Capture:      true,
		CaptureDir:   DefaultCaptureDir,
		ArchiveDir:   ".",
		LogLevel:     "info",
		LogFormat:    "console",
		ConfigFile:   configPath,
		Catalog:      DefaultCatalog(),
		WebTargets:   DefaultWebTargets(),
		Tracing:      TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	if len(positional) > 0 {
		cfg.ServerIP = positional[0]
	}
	if len(positional) > 1 {
		cfg.ResourcesDir = positional[1]
	}

	cfg.ServerIP = strings.TrimSpace(cfg.ServerIP)
	cfg.ResourcesDir = strings.TrimSpace(cfg.ResourcesDir)
	if cfg.Dispatcher == "" {
		cfg.Dispatcher = filepath.Join(cfg.ResourcesDir, dispatcher.DefaultExecutable)
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "server_ip", "serverip", "server-ip", "server"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("server_ip: %w", err)
		}
		cfg.ServerIP = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "resources_dir", "resourcesdir", "resources-dir"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("resources_dir: %w", err)
		}
		if val != "" {
			cfg.ResourcesDir = val
		}
	}

	if raw, ok := lookupSetting(settings, "runs"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("runs: %w", err)
		}
		cfg.Runs = val
	}

	if raw, ok := lookupSetting(settings, "interface"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("interface: %w", err)
		}
		cfg.Interface = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "web_tests", "webtests", "web-tests"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("web_tests: %w", err)
		}
		cfg.WebTests = val
	}

	if raw, ok := lookupSetting(settings, "transports"); ok {
		if err := applyTransportSettings(cfg, raw); err != nil {
			return fmt.Errorf("transports: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "library"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("library: %w", err)
		}
		cfg.Library = trimAll(val)
	}

	if raw, ok := lookupSetting(settings, "web_targets", "webtargets", "web-targets"); ok {
		targets, err := parseWebTargets(raw)
		if err != nil {
			return fmt.Errorf("web_targets: %w", err)
		}
		cfg.WebTargets = targets
	}

	if raw, ok := lookupSetting(settings, "dispatcher"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("dispatcher: %w", err)
		}
		cfg.Dispatcher = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "terminate"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("terminate: %w", err)
		}
		cfg.Terminate = strings.TrimSpace(val)
	}

	durations := []struct {
		keys []string
		dst  *time.Duration
	}{
		{[]string{"settle"}, &cfg.Settle},
		{[]string{"capture_tail", "capturetail", "capture-tail"}, &cfg.CaptureTail},
		{[]string{"launch_grace", "launchgrace", "launch-grace"}, &cfg.LaunchGrace},
		{[]string{"probe_timeout", "probetimeout", "probe-timeout"}, &cfg.ProbeTimeout},
	}
	for _, d := range durations {
		if raw, ok := lookupSetting(settings, d.keys...); ok {
			val, err := asDuration(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", d.keys[0], err)
			}
			*d.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "capture"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		cfg.Capture = val
	}

	if raw, ok := lookupSetting(settings, "capture_dir", "capturedir", "capture-dir"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("capture_dir: %w", err)
		}
		if val != "" {
			cfg.CaptureDir = val
		}
	}

	if raw, ok := lookupSetting(settings, "archive_dir", "archivedir", "archive-dir"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("archive_dir: %w", err)
		}
		if val != "" {
			cfg.ArchiveDir = val
		}
	}

	if raw, ok := lookupSetting(settings, "output_dir", "outputdir", "output-dir"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output_dir: %w", err)
		}
		if val != "" {
			cfg.OutputDir = val
		}
	}

	if raw, ok := lookupSetting(settings, "json_output", "jsonoutput", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "log_level", "loglevel", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		cfg.LogLevel = val
	}

	if raw, ok := lookupSetting(settings, "log_format", "logformat", "log-format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_format: %w", err)
		}
		cfg.LogFormat = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

// applyTransportSettings accepts either a list of names, selecting from the
// catalog, or a list of definitions, which are merged into the catalog by
// name and selected.
func applyTransportSettings(cfg *Config, raw interface{}) error {
	items, err := toInterfaceSlice(raw)
	if err != nil {
		names, serr := asStringSlice(raw)
		if serr != nil {
			return err
		}
		cfg.Transports = trimAll(names)
		return nil
	}

	selected := make([]string, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			if name := strings.TrimSpace(v); name != "" {
				selected = append(selected, name)
			}
		default:
			settings, err := toStringKeyMap(v)
			if err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
			spec, err := buildTransportSpec(settings)
			if err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
			cfg.Catalog = upsertTransport(cfg.Catalog, spec)
			selected = append(selected, spec.Name)
		}
	}
	cfg.Transports = selected
	return nil
}

func buildTransportSpec(settings map[string]interface{}) (model.TransportSpec, error) {
	var spec model.TransportSpec
	if raw, ok := lookupSetting(settings, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return spec, fmt.Errorf("name: %w", err)
		}
		spec.Name = strings.TrimSpace(val)
	}
	if spec.Name == "" {
		return spec, errors.New("name is required")
	}
	if raw, ok := lookupSetting(settings, "port", "listen_port"); ok {
		val, err := asString(raw)
		if err != nil {
			return spec, fmt.Errorf("port: %w", err)
		}
		spec.ListenPort = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "options_file", "optionsfile", "options-file", "options"); ok {
		val, err := asString(raw)
		if err != nil {
			return spec, fmt.Errorf("options_file: %w", err)
		}
		spec.OptionsFile = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "dispatcher_name", "dispatchername", "dispatcher-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return spec, fmt.Errorf("dispatcher_name: %w", err)
		}
		spec.DispatcherName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "mode"); ok {
		val, err := asString(raw)
		if err != nil {
			return spec, fmt.Errorf("mode: %w", err)
		}
		spec.Mode = model.TransportMode(strings.ToLower(strings.TrimSpace(val)))
	}
	return spec, nil
}

func upsertTransport(catalog []model.TransportSpec, spec model.TransportSpec) []model.TransportSpec {
	for i := range catalog {
		if strings.EqualFold(catalog[i].Name, spec.Name) {
			if spec.ListenPort == "" {
				spec.ListenPort = catalog[i].ListenPort
			}
			catalog[i] = spec
			return catalog
		}
	}
	return append(catalog, spec)
}

func parseWebTargets(value interface{}) ([]model.WebTarget, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	targets := make([]model.WebTarget, 0, len(items))
	for i, item := range items {
		settings, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		var target model.WebTarget
		if raw, ok := lookupSetting(settings, "name"); ok {
			if target.Name, err = asString(raw); err != nil {
				return nil, fmt.Errorf("index %d name: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "url", "website"); ok {
			if target.URL, err = asString(raw); err != nil {
				return nil, fmt.Errorf("index %d url: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "port"); ok {
			if target.Port, err = asString(raw); err != nil {
				return nil, fmt.Errorf("index %d port: %w", i, err)
			}
		}
		if strings.TrimSpace(target.URL) == "" {
			return nil, fmt.Errorf("index %d: url is required", i)
		}
		if target.Name == "" {
			target.Name = target.URL
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func applyTracingSettings(t *TracingConfig, raw interface{}) error {
	settings, err := toStringKeyMap(raw)
	if err != nil {
		return err
	}
	if v, ok := lookupSetting(settings, "endpoint"); ok {
		if t.Endpoint, err = asString(v); err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
	}
	if v, ok := lookupSetting(settings, "protocol"); ok {
		if t.Protocol, err = asString(v); err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
	}
	if v, ok := lookupSetting(settings, "service_name", "servicename", "service-name"); ok {
		if t.ServiceName, err = asString(v); err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
	}
	if v, ok := lookupSetting(settings, "sample_rate", "samplerate", "sample-rate"); ok {
		if t.SampleRate, err = asFloat64(v); err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
	}
	if v, ok := lookupSetting(settings, "insecure"); ok {
		if t.Insecure, err = asBool(v); err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
	}
	return nil
}
