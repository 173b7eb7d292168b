package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"

	"github.com/Jigsaw-Code/outline-sdk/transport"
	"github.com/Jigsaw-Code/outline-sdk/transport/shadowsocks"
	"github.com/tidwall/gjson"
)

const (
	ShadowName = "shadow"
	// DefaultShadowTarget is the address the shadow server is asked to
	// reach when the config does not name one: the canary web server
	// running next to it.
	DefaultShadowTarget = "127.0.0.1:80"
	defaultShadowCipher = "chacha20-ietf-poly1305"
)

// NewShadowDialer builds a shadowsocks dialer from the transport's JSON
// config artifact. Recognised keys: password, cipherName (or cipherMode
// or method), target.
func NewShadowDialer(in FactoryInput) (DialFunc, error) {
	path := in.OptionsPath()
	if path == "" {
		return nil, &ConfigError{Transport: in.Transport.Name, Err: errors.New("no config artifact configured")}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Transport: in.Transport.Name, Path: path, Err: err}
	}
	if !gjson.ValidBytes(data) {
		return nil, &ConfigError{Transport: in.Transport.Name, Path: path, Err: errors.New("invalid JSON")}
	}

	fields := gjson.GetManyBytes(data, "password", "cipherName", "cipherMode", "method", "target")
	password := fields[0].String()
	if password == "" {
		return nil, &ConfigError{Transport: in.Transport.Name, Path: path, Err: errors.New("password is required")}
	}
	cipher := firstNonEmpty(fields[1].String(), fields[2].String(), fields[3].String(), defaultShadowCipher)
	target := firstNonEmpty(fields[4].String(), DefaultShadowTarget)

	key, err := shadowsocks.NewEncryptionKey(strings.ToLower(cipher), password)
	if err != nil {
		return nil, &ConfigError{Transport: in.Transport.Name, Path: path, Err: err}
	}
	endpoint := &transport.TCPEndpoint{Address: net.JoinHostPort(in.ServerIP, in.Transport.ListenPort)}
	dialer, err := shadowsocks.NewStreamDialer(endpoint, key)
	if err != nil {
		return nil, &ConfigError{Transport: in.Transport.Name, Path: path, Err: err}
	}

	return func(ctx context.Context) (net.Conn, error) {
		return dialer.DialStream(ctx, target)
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
