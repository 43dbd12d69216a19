package hostrpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"fam.dev/fam/codec"
	"fam.dev/fam/host"
)

// Client implements host.Host over a host gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client HostClient

	// Timeout applies per RPC when non-zero. An expired call fails with
	// host.ErrUnavailable.
	Timeout time.Duration
}

var _ host.Host = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewHostClient(cc)}, nil
}

// NewClient wraps an existing connection. Closing the Client does not close
// cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{client: NewHostClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) ID(ctx context.Context) (codec.Payload, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	return payload(c.client.ID(ctx, &emptypb.Empty{}))
}

func (c *Client) Buckets(ctx context.Context) (codec.Payload, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	return payload(c.client.Buckets(ctx, &emptypb.Empty{}))
}

func (c *Client) AddBucket(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	return payload(c.client.AddBucket(ctx, wrapperspb.String(string(req))))
}

func (c *Client) RemoveBucket(ctx context.Context, req codec.Payload) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err := c.client.RemoveBucket(ctx, wrapperspb.String(string(req)))
	return mapRPC(err)
}

func (c *Client) Root(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	return payload(c.client.Root(ctx, wrapperspb.String(string(req))))
}

func (c *Client) Entries(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	return payload(c.client.Entries(ctx, wrapperspb.String(string(req))))
}

func (c *Client) Put(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	return payload(c.client.Put(ctx, wrapperspb.String(string(req))))
}

func (c *Client) Del(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	return payload(c.client.Del(ctx, wrapperspb.String(string(req))))
}

func (c *Client) ShareBucket(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	return payload(c.client.ShareBucket(ctx, wrapperspb.String(string(req))))
}

// OpenExternalURL sends url to the server and ignores the outcome.
func (c *Client) OpenExternalURL(ctx context.Context, url string) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, _ = c.client.OpenExternalURL(ctx, wrapperspb.String(url))
}

func payload(out *wrapperspb.StringValue, err error) (codec.Payload, error) {
	if err != nil {
		return "", mapRPC(err)
	}
	return codec.Payload(out.GetValue()), nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
