package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/torosent/canary/internal/dispatcher"
	"github.com/torosent/canary/internal/model"
)

const (
	MinRuns = 1
	MaxRuns = 15

	DefaultResourcesDir = "Sources/Resources"
	DefaultOutputDir    = "Output"
	DefaultCaptureDir   = "adversary_data"
	DefaultSettle       = 2 * time.Second
	DefaultCaptureTail  = 5 * time.Second
	DefaultProbeTimeout = 30 * time.Second
)

type Config struct {
	ServerIP     string        `mapstructure:"server_ip"`
	ResourcesDir string        `mapstructure:"resources_dir"`
	Runs         int           `mapstructure:"runs"`
	Interface    string        `mapstructure:"interface"`
	WebTests     bool          `mapstructure:"web_tests"`
	Transports   []string      `mapstructure:"-"`
	Library      []string      `mapstructure:"library"`
	Dispatcher   string        `mapstructure:"dispatcher"`
	Terminate    string        `mapstructure:"terminate"`
	Settle       time.Duration `mapstructure:"settle"`
	CaptureTail  time.Duration `mapstructure:"capture_tail"`
	LaunchGrace  time.Duration `mapstructure:"launch_grace"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	OutputDir    string        `mapstructure:"output_dir"`
	Capture      bool          `mapstructure:"capture"`
	CaptureDir   string        `mapstructure:"capture_dir"`
	ArchiveDir   string        `mapstructure:"archive_dir"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFormat    string        `mapstructure:"log_format"`
	JSONOutput   bool          `mapstructure:"json_output"`
	ConfigFile   string        `mapstructure:"-"`
	Tracing      TracingConfig `mapstructure:"tracing"`

	// Catalog holds every known transport; Transports selects from it.
	Catalog    []model.TransportSpec `mapstructure:"-"`
	WebTargets []model.WebTarget     `mapstructure:"web_targets"`
}

// TracingConfig configures OTLP span export. An empty endpoint disables it.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// SelectedTransports resolves Transports against the catalog, applying the
// library mode to names listed in Library.
func (c Config) SelectedTransports() ([]model.TransportSpec, error) {
	names := c.Transports
	if len(names) == 0 {
		names = DefaultRunSet
	}
	library := make(map[string]bool, len(c.Library))
	for _, name := range c.Library {
		library[strings.ToLower(strings.TrimSpace(name))] = true
	}

	out := make([]model.TransportSpec, 0, len(names))
	for _, name := range names {
		spec, ok := findTransport(c.Catalog, name)
		if !ok {
			return nil, fmt.Errorf("unknown transport %q", name)
		}
		if library[strings.ToLower(spec.Name)] {
			spec.Mode = model.ModeLibrary
		}
		if spec.Mode == "" {
			spec.Mode = model.ModeDispatcher
		}
		out = append(out, spec)
	}
	return out, nil
}

func findTransport(catalog []model.TransportSpec, name string) (model.TransportSpec, bool) {
	name = strings.TrimSpace(name)
	for _, spec := range catalog {
		if strings.EqualFold(spec.Name, name) {
			return spec, true
		}
	}
	return model.TransportSpec{}, false
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.ServerIP) == "" {
		issues = append(issues, "server IP is required")
	} else if net.ParseIP(c.ServerIP) == nil {
		issues = append(issues, fmt.Sprintf("server IP %q is not a valid IP address", c.ServerIP))
	}
	if c.Runs < MinRuns || c.Runs > MaxRuns {
		issues = append(issues, fmt.Sprintf("runs must be between %d and %d", MinRuns, MaxRuns))
	}
	if strings.TrimSpace(c.ResourcesDir) == "" {
		issues = append(issues, "resources directory is required")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		issues = append(issues, "output directory is required")
	}
	if c.Settle < 0 {
		issues = append(issues, "settle must be non-negative")
	}
	if c.CaptureTail < 0 {
		issues = append(issues, "capture tail must be non-negative")
	}
	if c.LaunchGrace < 0 {
		issues = append(issues, "launch grace must be non-negative")
	}
	if c.ProbeTimeout < 0 {
		issues = append(issues, "probe timeout must be non-negative")
	}
	if _, err := dispatcher.ParseTerminateMode(c.Terminate); err != nil {
		issues = append(issues, err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		issues = append(issues, fmt.Sprintf("log format %q must be console or json", c.LogFormat))
	}

	if _, err := c.SelectedTransports(); err != nil {
		issues = append(issues, err.Error())
	}
	for _, name := range c.Library {
		if _, ok := findTransport(c.Catalog, name); !ok {
			issues = append(issues, fmt.Sprintf("library transport %q is not in the catalog", name))
		}
	}
	issues = append(issues, validateCatalog(c.Catalog)...)
	if c.WebTests {
		issues = append(issues, validateWebTargets(c.WebTargets)...)
	}
	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateCatalog(catalog []model.TransportSpec) []string {
	var issues []string
	seen := map[string]bool{}
	for i, spec := range catalog {
		if strings.TrimSpace(spec.Name) == "" {
			issues = append(issues, fmt.Sprintf("transports[%d]: name is required", i))
			continue
		}
		key := strings.ToLower(spec.Name)
		if seen[key] {
			issues = append(issues, fmt.Sprintf("transports[%d]: duplicate name %q", i, spec.Name))
		}
		seen[key] = true
		if !validPort(spec.ListenPort) {
			issues = append(issues, fmt.Sprintf("transports[%d] (%s): port %q is invalid", i, spec.Name, spec.ListenPort))
		}
		switch spec.Mode {
		case "", model.ModeDispatcher, model.ModeLibrary:
		default:
			issues = append(issues, fmt.Sprintf("transports[%d] (%s): mode must be dispatcher or library", i, spec.Name))
		}
	}
	return issues
}

func validateWebTargets(targets []model.WebTarget) []string {
	var issues []string
	if len(targets) == 0 {
		issues = append(issues, "web tests enabled but no web targets configured")
	}
	for i, target := range targets {
		if _, err := target.Address(); err != nil {
			issues = append(issues, fmt.Sprintf("web_targets[%d]: %v", i, err))
		}
		if target.Port != "" && !validPort(target.Port) {
			issues = append(issues, fmt.Sprintf("web_targets[%d]: port %q is invalid", i, target.Port))
		}
	}
	return issues
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q must be grpc or http", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}
	return issues
}

func validPort(port string) bool {
	n, err := asInt(port)
	return err == nil && n > 0 && n <= 65535
}
