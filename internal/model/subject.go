// Package model holds the values passed between the canary test stages.
package model

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// TransportMode selects how a transport client is brought up.
type TransportMode string

const (
	ModeDispatcher TransportMode = "dispatcher"
	ModeLibrary    TransportMode = "library"
)

// TransportSpec identifies a pluggable transport and where its options live.
type TransportSpec struct {
	Name string
	// ListenPort is the transport server port on the remote host.
	ListenPort string
	// OptionsFile is relative to the resources directory. Empty means the
	// transport takes no options.
	OptionsFile string
	// DispatcherName is the value handed to -transports. Defaults to Name.
	DispatcherName string
	Mode           TransportMode
}

// TransportName returns the name the dispatcher knows this transport by.
func (t TransportSpec) TransportName() string {
	if t.DispatcherName != "" {
		return t.DispatcherName
	}
	return t.Name
}

// RequiresOptions reports whether the dispatcher must be given an options file.
func (t TransportSpec) RequiresOptions() bool {
	return strings.TrimSpace(t.OptionsFile) != ""
}

// WebTarget is a plain reachability target tested without a transport.
type WebTarget struct {
	Name string
	URL  string
	Port string
}

// Address returns host:port for the target URL, using Port when the URL has none.
func (w WebTarget) Address() (string, error) {
	u, err := url.Parse(w.URL)
	if err != nil {
		return "", fmt.Errorf("parse web target %q: %w", w.Name, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("web target %q has no host", w.Name)
	}
	port := u.Port()
	if port == "" {
		port = w.Port
	}
	if port == "" {
		switch strings.ToLower(u.Scheme) {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(host, port), nil
}

// HostHeader is the value sent in the probe's Host header.
func (w WebTarget) HostHeader() string {
	u, err := url.Parse(w.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Subject is one thing under test: either a transport or a web target.
type Subject struct {
	Transport *TransportSpec
	Web       *WebTarget
}

func TransportSubject(t TransportSpec) Subject { return Subject{Transport: &t} }

func WebSubject(w WebTarget) Subject { return Subject{Web: &w} }

func (s Subject) IsWebTest() bool { return s.Web != nil }

func (s Subject) Name() string {
	switch {
	case s.Transport != nil:
		return s.Transport.Name
	case s.Web != nil:
		return s.Web.Name
	default:
		return ""
	}
}

// Port is the port recorded by the capture collaborator.
func (s Subject) Port() string {
	switch {
	case s.Transport != nil:
		return s.Transport.ListenPort
	case s.Web != nil:
		return s.Web.Port
	default:
		return ""
	}
}

// Label is written to the results log. Web tests are labelled by URL.
func (s Subject) Label() string {
	if s.Web != nil {
		return s.Web.URL
	}
	return s.Name()
}
