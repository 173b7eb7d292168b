package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/torosent/canary/internal/model"
)

const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultDialAttempts = 3
)

// Dialer opens plain TCP connections, retrying refused or timed out dials
// with exponential backoff. The dispatcher's local listener can lag behind
// the process becoming alive.
type Dialer struct {
	Timeout  time.Duration
	Attempts uint
	// InitialInterval is the first backoff delay. Zero uses 250ms.
	InitialInterval time.Duration
	// TLS is cloned for https web targets; ServerName is filled in.
	TLS *tls.Config
}

func (d Dialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	attempts := d.Attempts
	if attempts == 0 {
		attempts = DefaultDialAttempts
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	if d.InitialInterval > 0 {
		bo.InitialInterval = d.InitialInterval
	}
	bo.MaxInterval = 2 * time.Second

	nd := &net.Dialer{Timeout: timeout}
	try := 0
	return backoff.Retry(ctx, func() (net.Conn, error) {
		try++
		conn, err := nd.DialContext(ctx, "tcp", addr)
		if err != nil {
			zap.S().Debugw("dial failed", "addr", addr, "attempt", try, "error", err)
			return nil, err
		}
		return conn, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(attempts))
}

// DialWeb connects to a web target, completing a TLS handshake first when
// the target URL is https.
func (d Dialer) DialWeb(ctx context.Context, target model.WebTarget) (net.Conn, error) {
	addr, err := target.Address()
	if err != nil {
		return nil, err
	}
	conn, err := d.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(target.URL)
	if err != nil || !strings.EqualFold(u.Scheme, "https") {
		return conn, nil
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if d.TLS != nil {
		cfg = d.TLS.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = u.Hostname()
	}
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
	}
	return tlsConn, nil
}
