package hostrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the gRPC service carrying host calls.
//
// Requests and responses are protobuf well-known types: payload text travels
// as a StringValue and calls without a request or response use Empty. No
// protoc/codegen step is needed.
const ServiceName = "fam.host.v1.Host"

// HostServer is the server API for the host gRPC service.
type HostServer interface {
	ID(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Buckets(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	AddBucket(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	RemoveBucket(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	Root(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Entries(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Put(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Del(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	ShareBucket(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	OpenExternalURL(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
}

// RegisterHostServer registers the host service on a gRPC server.
func RegisterHostServer(s grpc.ServiceRegistrar, srv HostServer) {
	s.RegisterService(&Host_ServiceDesc, srv)
}

// HostClient is the client API for the host gRPC service.
type HostClient interface {
	ID(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Buckets(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	AddBucket(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	RemoveBucket(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Root(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Entries(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Put(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Del(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	ShareBucket(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	OpenExternalURL(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type hostClient struct{ cc grpc.ClientConnInterface }

func NewHostClient(cc grpc.ClientConnInterface) HostClient { return &hostClient{cc: cc} }

func method(name string) string { return "/" + ServiceName + "/" + name }

func invoke[Out any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Out, error) {
	out := new(Out)
	if err := cc.Invoke(ctx, method(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *hostClient) ID(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "ID", in, opts)
}

func (c *hostClient) Buckets(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "Buckets", in, opts)
}

func (c *hostClient) AddBucket(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "AddBucket", in, opts)
}

func (c *hostClient) RemoveBucket(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, "RemoveBucket", in, opts)
}

func (c *hostClient) Root(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "Root", in, opts)
}

func (c *hostClient) Entries(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "Entries", in, opts)
}

func (c *hostClient) Put(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "Put", in, opts)
}

func (c *hostClient) Del(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "Del", in, opts)
}

func (c *hostClient) ShareBucket(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "ShareBucket", in, opts)
}

func (c *hostClient) OpenExternalURL(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, "OpenExternalURL", in, opts)
}

// unary builds the method descriptor for one call. call adapts the typed
// server method to the generic handler signature.
func unary[In any](name string, call func(HostServer, context.Context, *In) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(In)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(HostServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method(name)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(HostServer), ctx, req.(*In))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Host_ServiceDesc is the grpc.ServiceDesc for the host service.
var Host_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HostServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ID", func(s HostServer, ctx context.Context, in *emptypb.Empty) (any, error) { return s.ID(ctx, in) }),
		unary("Buckets", func(s HostServer, ctx context.Context, in *emptypb.Empty) (any, error) { return s.Buckets(ctx, in) }),
		unary("AddBucket", func(s HostServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) { return s.AddBucket(ctx, in) }),
		unary("RemoveBucket", func(s HostServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) { return s.RemoveBucket(ctx, in) }),
		unary("Root", func(s HostServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) { return s.Root(ctx, in) }),
		unary("Entries", func(s HostServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) { return s.Entries(ctx, in) }),
		unary("Put", func(s HostServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) { return s.Put(ctx, in) }),
		unary("Del", func(s HostServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) { return s.Del(ctx, in) }),
		unary("ShareBucket", func(s HostServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) { return s.ShareBucket(ctx, in) }),
		unary("OpenExternalURL", func(s HostServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) { return s.OpenExternalURL(ctx, in) }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "host.proto",
}
