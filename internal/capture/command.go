package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/torosent/canary/internal/model"
)

const (
	DefaultStopTimeout = 5 * time.Second
	captureExt         = ".pcap"
	sidecarExt         = ".yaml"
)

// CommandFunc builds the capture process writing to file.
type CommandFunc func(iface, file, filter string) *exec.Cmd

// Tcpdump captures filter on iface into file, flushing every packet.
func Tcpdump(iface, file, filter string) *exec.Cmd {
	return exec.Command("tcpdump", "-i", iface, "-U", "-w", file, filter)
}

// Metadata is the sidecar written next to each capture.
type Metadata struct {
	ID        string    `yaml:"id"`
	Subject   string    `yaml:"subject"`
	WebTest   bool      `yaml:"web_test"`
	Port      string    `yaml:"port"`
	Server    string    `yaml:"server"`
	Interface string    `yaml:"interface"`
	Label     Label     `yaml:"label"`
	Outcome   string    `yaml:"outcome,omitempty"`
	Capture   string    `yaml:"capture,omitempty"`
	Started   time.Time `yaml:"started"`
	Stopped   time.Time `yaml:"stopped"`
}

// CommandOptions configure a CommandRecorder.
type CommandOptions struct {
	Dir         string
	Interface   string
	Command     CommandFunc   // defaults to Tcpdump
	StopTimeout time.Duration // wait for the tool to flush before killing it
}

type session struct {
	id      ulid.ULID
	subject model.Subject
	server  string
	dir     string
	cmd     *exec.Cmd
	done    chan struct{}
	started time.Time
}

func (s *session) base() string { return filepath.Join(s.dir, s.id.String()) }

// CommandRecorder runs an external capture tool for each test.
type CommandRecorder struct {
	opt     CommandOptions
	mu      sync.Mutex
	current *session
}

func NewCommandRecorder(opt CommandOptions) *CommandRecorder {
	if opt.Command == nil {
		opt.Command = Tcpdump
	}
	if opt.StopTimeout <= 0 {
		opt.StopTimeout = DefaultStopTimeout
	}
	return &CommandRecorder{opt: opt}
}

// Start begins recording traffic on the subject's port. A capture left
// running by an earlier test is finished as incomplete first.
func (r *CommandRecorder) Start(ctx context.Context, subject model.Subject, server string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		if err := r.stopLocked(ctx, nil); err != nil {
			zap.S().Warnw("failed to finish previous capture", "error", err)
		}
	}

	s := &session{
		id:      ulid.Make(),
		subject: subject,
		server:  server,
		dir:     filepath.Join(r.opt.Dir, safeName(subject.Name())),
		done:    make(chan struct{}),
		started: time.Now(),
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create capture directory: %w", err)
	}

	s.cmd = r.opt.Command(r.opt.Interface, s.base()+captureExt, "tcp port "+subject.Port())
	s.cmd.Stdout = nil
	s.cmd.Stderr = nil
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	go func() {
		_ = s.cmd.Wait()
		close(s.done)
	}()

	r.current = s
	zap.S().Infow("capture started", "subject", subject.Name(), "port", subject.Port(), "interface", r.opt.Interface, "id", s.id.String())
	return nil
}

// Stop ends the current capture and labels it after result.
func (r *CommandRecorder) Stop(ctx context.Context, result *model.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked(ctx, result)
}

func (r *CommandRecorder) stopLocked(ctx context.Context, result *model.TestResult) error {
	s := r.current
	if s == nil {
		return nil
	}
	r.current = nil

	r.terminate(ctx, s)

	label := LabelFor(result)
	meta := Metadata{
		ID:        s.id.String(),
		Subject:   s.subject.Name(),
		WebTest:   s.subject.IsWebTest(),
		Port:      s.subject.Port(),
		Server:    s.server,
		Interface: r.opt.Interface,
		Label:     label,
		Started:   s.started.UTC(),
		Stopped:   time.Now().UTC(),
	}
	if result != nil {
		meta.Outcome = result.Outcome.String()
	}

	labelled := s.base() + "-" + string(label)
	var errs []error
	if err := os.Rename(s.base()+captureExt, labelled+captureExt); err == nil {
		meta.Capture = filepath.Base(labelled + captureExt)
	} else if !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("label capture: %w", err))
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		errs = append(errs, fmt.Errorf("encode capture metadata: %w", err))
	} else if err := os.WriteFile(labelled+sidecarExt, data, 0o644); err != nil {
		errs = append(errs, fmt.Errorf("write capture metadata: %w", err))
	}

	zap.S().Infow("capture stopped", "subject", meta.Subject, "label", string(label), "id", meta.ID)
	return errors.Join(errs...)
}

func (r *CommandRecorder) terminate(ctx context.Context, s *session) {
	if s.cmd.Process == nil {
		return
	}
	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = s.cmd.Process.Kill()
	}
	timer := time.NewTimer(r.opt.StopTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return
	case <-timer.C:
	case <-ctx.Done():
	}
	_ = s.cmd.Process.Kill()
	<-s.done
}

func safeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "unknown"
	}
	return name
}
