package bridge

import (
	"context"
	"log/slog"

	"fam.dev/fam/codec"
	"fam.dev/fam/host"
	"fam.dev/fam/internal/logging"
)

// Client issues bridge operations against a Host. It is safe for concurrent
// use.
type Client struct {
	host host.Host
	log  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger logs each invocation at debug level and failures at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a Client bound to h.
func New(h host.Host, opts ...Option) *Client {
	c := &Client{host: h}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.Component(c.log, "bridge")
	return c
}

// request encodes v as a call payload.
func request(op host.Call, v any) (codec.Payload, error) {
	p, err := codec.Encode(v)
	if err != nil {
		return "", encodeFailure(op, msgStringify, err)
	}
	return p, nil
}

// invoke runs call and maps a host error to an InvocationFailure.
func (c *Client) invoke(ctx context.Context, op host.Call, call func(context.Context) (codec.Payload, error)) (codec.Payload, error) {
	c.log.DebugContext(ctx, "invoke", "call", string(op))
	res, err := call(ctx)
	if err != nil {
		return "", c.failed(ctx, invocationFailure(op, err))
	}
	return res, nil
}

// response decodes a call payload into v.
func response(op host.Call, p codec.Payload, v any) error {
	if err := codec.Decode(p, v); err != nil {
		return decodeFailure(op, msgParse, err)
	}
	return nil
}

func (c *Client) failed(ctx context.Context, err error) error {
	if f, ok := err.(*Failure); ok {
		c.log.WarnContext(ctx, "call failed", "call", string(f.Op), "kind", string(f.Kind), "err", f.Cause)
	}
	return err
}
