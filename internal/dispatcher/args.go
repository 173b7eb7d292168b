package dispatcher

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/torosent/canary/internal/model"
)

const (
	DefaultExecutable = "shapeshifter-dispatcher"
	DefaultListenAddr = "127.0.0.1:1234"
	DefaultStateDir   = "TransportState"
	DefaultLogLevel   = "DEBUG"
	DefaultPTVersion  = "2.1"
)

// ArgsInput carries everything needed to build a dispatcher command line.
type ArgsInput struct {
	ServerIP     string
	Transport    model.TransportSpec
	ResourcesDir string
	StateDir     string
	ListenAddr   string
	LogLevel     string
	PTVersion    string
}

// BuildArgs returns the dispatcher argument vector for a transport test.
// The state directory is created if needed. A transport whose options file
// is absent yields an error wrapping ErrOptionsFileMissing and no arguments.
func BuildArgs(in ArgsInput) ([]string, error) {
	if strings.TrimSpace(in.ServerIP) == "" {
		return nil, errors.New("server address is required")
	}
	if in.StateDir == "" {
		in.StateDir = DefaultStateDir
	}
	if in.ListenAddr == "" {
		in.ListenAddr = DefaultListenAddr
	}
	if in.LogLevel == "" {
		in.LogLevel = DefaultLogLevel
	}
	if in.PTVersion == "" {
		in.PTVersion = DefaultPTVersion
	}

	if err := os.MkdirAll(in.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create transport state directory %s: %w", in.StateDir, err)
	}

	args := []string{
		"-transparent",
		"-client",
		"-target", net.JoinHostPort(in.ServerIP, in.Transport.ListenPort),
		"-transports", in.Transport.TransportName(),
	}

	if in.Transport.RequiresOptions() {
		options := in.Transport.OptionsFile
		if !filepath.IsAbs(options) {
			options = filepath.Join(in.ResourcesDir, options)
		}
		info, err := os.Stat(options)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s (%s)", ErrOptionsFileMissing, options, in.Transport.Name)
			}
			return nil, fmt.Errorf("stat options file %s: %w", options, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrOptionsFileMissing, options)
		}
		args = append(args, "-optionsFile", options)
	}

	args = append(args,
		"-state", in.StateDir,
		"-logLevel", in.LogLevel,
		"-enableLogging",
		"-ptversion", in.PTVersion,
		"-proxylistenaddr", in.ListenAddr,
	)
	return args, nil
}
