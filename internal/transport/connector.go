package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/canary/internal/model"
)

// DefaultConnectTimeout bounds the connecting state.
const DefaultConnectTimeout = 30 * time.Second

// DialFunc opens one transport connection.
type DialFunc func(ctx context.Context) (net.Conn, error)

// FactoryInput is what a transport factory gets to build a DialFunc.
type FactoryInput struct {
	Transport    model.TransportSpec
	ServerIP     string
	ResourcesDir string
}

// OptionsPath resolves the transport's config artifact.
func (in FactoryInput) OptionsPath() string {
	p := in.Transport.OptionsFile
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(in.ResourcesDir, p)
}

// Factory builds the dialer for a transport, loading its configuration.
type Factory func(in FactoryInput) (DialFunc, error)

// Options configure a Connector.
type Options struct {
	ResourcesDir   string
	ConnectTimeout time.Duration
	Trace          TraceFunc // optional transition observer
}

// Connector establishes library-backed transport connections.
type Connector struct {
	opt       Options
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewConnector returns a connector with the built-in transports registered.
func NewConnector(opt Options) *Connector {
	if opt.ConnectTimeout <= 0 {
		opt.ConnectTimeout = DefaultConnectTimeout
	}
	c := &Connector{opt: opt, factories: map[string]Factory{}}
	c.Register(ShadowName, NewShadowDialer)
	return c
}

// Register installs or replaces the factory for a transport name.
func (c *Connector) Register(name string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = f
}

// Supports reports whether name has an in-process implementation.
func (c *Connector) Supports(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[name]
	return ok
}

// Establish connects through the named transport. On success the caller
// owns the returned connection.
func (c *Connector) Establish(ctx context.Context, spec model.TransportSpec, serverIP string) (net.Conn, error) {
	a := newAttempt(spec.Name, c.trace)

	c.mu.RLock()
	factory, ok := c.factories[spec.Name]
	c.mu.RUnlock()
	if !ok {
		a.to(StateFailed)
		return nil, fmt.Errorf("%s: %w", spec.Name, ErrUnsupported)
	}

	dial, err := factory(FactoryInput{Transport: spec, ServerIP: serverIP, ResourcesDir: c.opt.ResourcesDir})
	if err != nil {
		a.to(StateFailed)
		return nil, err
	}

	a.to(StateConnecting)
	dialCtx, cancel := context.WithTimeout(ctx, c.opt.ConnectTimeout)
	defer cancel()

	conn, err := dial(dialCtx)
	switch {
	case err == nil && ctx.Err() == nil:
		if !a.to(StateReady) {
			conn.Close()
			return nil, fmt.Errorf("%s: attempt already finished", spec.Name)
		}
		return conn, nil
	case ctx.Err() != nil:
		if conn != nil {
			conn.Close()
		}
		a.to(StateCancelled)
		return nil, fmt.Errorf("%s: %w", spec.Name, errors.Join(ErrCancelled, ctx.Err()))
	default:
		a.to(StateFailed)
		return nil, fmt.Errorf("%s: connect: %w", spec.Name, err)
	}
}

func (c *Connector) trace(name string, from, to State) {
	zap.S().Debugw("transport state", "transport", name, "from", from.String(), "to", to.String())
	if c.opt.Trace != nil {
		c.opt.Trace(name, from, to)
	}
}
