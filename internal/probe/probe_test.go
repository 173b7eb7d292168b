package probe_test

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/torosent/canary/internal/model"
	"github.com/torosent/canary/internal/probe"
)

// serve starts a loopback listener that reads one request and hands the
// connection to respond.
func serve(t *testing.T, respond func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := http.ReadRequest(bufio.NewReader(conn)); err != nil {
			return
		}
		respond(conn)
	}()
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestProbeMarkerMatch(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		conn.Write([]byte("HTTP/1.0 200 OK\r\nContent-Type: text/plain\r\n\r\nYeah!\n"))
	})
	p := probe.Probe{Marker: probe.CanaryMarker}
	report := p.Run(context.Background(), dial(t, addr))
	if report.Outcome != model.OutcomeSuccess {
		t.Fatalf("expected success, got %s (err=%v)", report.Outcome, report.Err)
	}
	if report.Body != "Yeah!\n" {
		t.Fatalf("unexpected body %q", report.Body)
	}
}

func TestProbeMarkerMismatch(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		conn.Write([]byte("HTTP/1.0 200 OK\r\n\r\nNope\n"))
	})
	p := probe.Probe{Marker: probe.CanaryMarker}
	report := p.Run(context.Background(), dial(t, addr))
	if report.Outcome != model.OutcomeMismatch {
		t.Fatalf("expected mismatch, got %s", report.Outcome)
	}
	if report.Success() {
		t.Fatal("mismatch must not report success")
	}
}

func TestProbeClosedWithoutData(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {})
	p := probe.Probe{Marker: probe.CanaryMarker}
	report := p.Run(context.Background(), dial(t, addr))
	if report.Outcome != model.OutcomeNoResponse {
		t.Fatalf("expected no response, got %s", report.Outcome)
	}
	if report.Received != 0 {
		t.Fatalf("expected 0 bytes, got %d", report.Received)
	}
}

func TestProbeHeadersOnly(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		conn.Write([]byte("HTTP/1.0 204 No Content\r\nServer: test"))
	})
	p := probe.Probe{}
	report := p.Run(context.Background(), dial(t, addr))
	if report.Outcome != model.OutcomeNoResponse {
		t.Fatalf("expected no response for header-only reply, got %s", report.Outcome)
	}
}

func TestProbeReachabilityAcceptsAnyBody(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		conn.Write([]byte("HTTP/1.1 400 Bad Request\r\nConnection: close\r\n\r\n<html>plain http to https port</html>"))
	})
	p := probe.Probe{Request: probe.Request("example.com")}
	report := p.Run(context.Background(), dial(t, addr))
	if report.Outcome != model.OutcomeSuccess {
		t.Fatalf("expected success in reachability mode, got %s", report.Outcome)
	}
}

func TestProbeAccumulatesPartialReads(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		conn.Write([]byte("HTTP/1.0 200 OK\r\n"))
		time.Sleep(20 * time.Millisecond)
		conn.Write([]byte("\r\nYe"))
		time.Sleep(20 * time.Millisecond)
		conn.Write([]byte("ah!\n"))
		// Hold the connection open; the marker must end the read loop.
		time.Sleep(2 * time.Second)
	})
	p := probe.Probe{Marker: probe.CanaryMarker, ReadTimeout: time.Second}
	start := time.Now()
	report := p.Run(context.Background(), dial(t, addr))
	if report.Outcome != model.OutcomeSuccess {
		t.Fatalf("expected success, got %s (err=%v)", report.Outcome, report.Err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("probe kept reading after marker: %s", time.Since(start))
	}
}

func TestProbeSilentPeerIsBounded(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		time.Sleep(2 * time.Second)
	})
	p := probe.Probe{Marker: probe.CanaryMarker, ReadTimeout: 50 * time.Millisecond, Deadline: 200 * time.Millisecond}
	start := time.Now()
	report := p.Run(context.Background(), dial(t, addr))
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("probe not bounded: %s", elapsed)
	}
	if report.Outcome != model.OutcomeNoResponse {
		t.Fatalf("expected no response, got %s", report.Outcome)
	}
	if report.Err == nil {
		t.Fatal("expected timeout error to be reported")
	}
}

func TestProbeWriteFailure(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {})
	conn := dial(t, addr)
	conn.Close()
	p := probe.Probe{Marker: probe.CanaryMarker}
	report := p.Run(context.Background(), conn)
	if report.Outcome != model.OutcomeConnectError {
		t.Fatalf("expected connect error, got %s", report.Outcome)
	}
}

func TestProbeHonorsCancellation(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		time.Sleep(2 * time.Second)
	})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	p := probe.Probe{Marker: probe.CanaryMarker, ReadTimeout: 5 * time.Second}
	start := time.Now()
	report := p.Run(ctx, dial(t, addr))
	if time.Since(start) > time.Second {
		t.Fatalf("probe ignored cancellation")
	}
	if report.Success() {
		t.Fatal("cancelled probe must not succeed")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		marker string
		want   model.Outcome
	}{
		{"empty", "", probe.CanaryMarker, model.OutcomeNoResponse},
		{"no separator", "HTTP/1.0 200 OK\r\n", probe.CanaryMarker, model.OutcomeNoResponse},
		{"match", "HTTP/1.0 200 OK\r\n\r\nYeah!\n", probe.CanaryMarker, model.OutcomeSuccess},
		{"trailing data", "HTTP/1.0 200 OK\r\n\r\nYeah!\nmore", probe.CanaryMarker, model.OutcomeMismatch},
		{"empty body with marker", "HTTP/1.0 200 OK\r\n\r\n", probe.CanaryMarker, model.OutcomeMismatch},
		{"empty body no marker", "HTTP/1.0 200 OK\r\n\r\n", "", model.OutcomeSuccess},
		{"any body no marker", "HTTP/1.0 404 Not Found\r\n\r\nmissing", "", model.OutcomeSuccess},
		{"invalid utf8", "HTTP/1.0 200 OK\r\n\r\n\xff\xfe", "", model.OutcomeNoResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := probe.Classify([]byte(tt.data), tt.marker)
			if got != tt.want {
				t.Fatalf("Classify(%q, %q) = %s, want %s", tt.data, tt.marker, got, tt.want)
			}
		})
	}
}

func TestRequest(t *testing.T) {
	if got := probe.Request(""); got != "GET / HTTP/1.0\r\nConnection: close\r\n\r\n" {
		t.Fatalf("unexpected default request %q", got)
	}
	if got := probe.Request("example.com"); got != "GET / HTTP/1.0\r\nHost: example.com\r\nConnection: close\r\n\r\n" {
		t.Fatalf("unexpected host request %q", got)
	}
}
