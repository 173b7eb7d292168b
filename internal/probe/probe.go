package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/torosent/canary/internal/model"
)

const (
	// CanaryMarker is the body the canary web server answers with.
	CanaryMarker = "Yeah!\n"

	DefaultChunkSize   = 1500
	DefaultReadTimeout = 10 * time.Second
	DefaultDeadline    = 30 * time.Second
	DefaultMaxReads    = 4096

	headerSeparator = "\r\n\r\n"
)

// Request builds the probe request. An empty host omits the Host header.
func Request(host string) string {
	if host == "" {
		return "GET / HTTP/1.0\r\nConnection: close\r\n\r\n"
	}
	return fmt.Sprintf("GET / HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", host)
}

// Probe configures one request/response exchange.
type Probe struct {
	Request     string        // bytes written to the stream; defaults to Request("")
	Marker      string        // expected body; empty selects reachability mode
	ChunkSize   int           // max bytes per read
	ReadTimeout time.Duration // bound on each read call
	Deadline    time.Duration // bound on the whole exchange
	MaxReads    int           // ceiling on read calls
}

// Report is the classified result of a probe.
type Report struct {
	Outcome  model.Outcome
	Received int
	Body     string
	Err      error
	Duration time.Duration
}

func (r Report) Success() bool { return r.Outcome == model.OutcomeSuccess }

func (p *Probe) normalize() {
	if p.Request == "" {
		p.Request = Request("")
	}
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.ReadTimeout <= 0 {
		p.ReadTimeout = DefaultReadTimeout
	}
	if p.Deadline <= 0 {
		p.Deadline = DefaultDeadline
	}
	if p.MaxReads <= 0 {
		p.MaxReads = DefaultMaxReads
	}
}

// Run sends the request over conn and classifies the response. It does not
// close conn.
func (p Probe) Run(ctx context.Context, conn net.Conn) Report {
	p.normalize()
	start := time.Now()

	deadline := start.Add(p.Deadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	// Unblock a pending read or write when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	_ = conn.SetWriteDeadline(deadline)
	if _, err := io.WriteString(conn, p.Request); err != nil {
		zap.S().Debugw("probe write failed", "error", err)
		return Report{Outcome: model.OutcomeConnectError, Err: fmt.Errorf("send probe request: %w", err), Duration: time.Since(start)}
	}

	buf, readErr := p.receive(ctx, conn, deadline)
	outcome, body := Classify(buf, p.Marker)
	report := Report{
		Outcome:  outcome,
		Received: len(buf),
		Body:     body,
		Duration: time.Since(start),
	}
	if outcome != model.OutcomeSuccess {
		report.Err = readErr
	}
	return report
}

// receive accumulates chunks until the marker shows up or the stream ends.
func (p Probe) receive(ctx context.Context, conn net.Conn, deadline time.Time) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, p.ChunkSize)
	marker := []byte(p.Marker)

	for reads := 0; reads < p.MaxReads; reads++ {
		if ctx.Err() != nil {
			return buf.Bytes(), ctx.Err()
		}
		readDeadline := time.Now().Add(p.ReadTimeout)
		if readDeadline.After(deadline) {
			readDeadline = deadline
		}
		_ = conn.SetReadDeadline(readDeadline)

		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			zap.S().Debugw("probe received data", "bytes", n, "total", buf.Len())
			if len(marker) > 0 && bytes.Contains(buf.Bytes(), marker) {
				return buf.Bytes(), nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf.Bytes(), nil
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if ctx.Err() != nil {
					return buf.Bytes(), ctx.Err()
				}
				return buf.Bytes(), fmt.Errorf("read timed out after %d bytes: %w", buf.Len(), err)
			}
			return buf.Bytes(), fmt.Errorf("read probe response: %w", err)
		}
		if n == 0 {
			return buf.Bytes(), nil
		}
	}
	return buf.Bytes(), fmt.Errorf("probe read ceiling of %d reads reached", p.MaxReads)
}

// Classify applies the probe rules to an accumulated response. It returns
// the body section when one was found.
func Classify(data []byte, marker string) (model.Outcome, string) {
	if len(data) == 0 {
		return model.OutcomeNoResponse, ""
	}
	if !utf8.Valid(data) {
		return model.OutcomeNoResponse, ""
	}
	sections := strings.Split(string(data), headerSeparator)
	if len(sections) < 2 {
		return model.OutcomeNoResponse, ""
	}
	body := sections[1]
	if marker == "" {
		return model.OutcomeSuccess, body
	}
	if body == marker {
		return model.OutcomeSuccess, body
	}
	return model.OutcomeMismatch, body
}
