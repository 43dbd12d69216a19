package hostrpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"fam.dev/fam/codec"
	"fam.dev/fam/host"
)

// Server exposes a host.Host over the host gRPC service. Payload text is
// passed through untouched.
type Server struct {
	Host host.Host
}

var _ HostServer = (*Server)(nil)

var errMissingHost = status.Error(codes.FailedPrecondition, "missing host")

func (s *Server) ready() bool { return s != nil && s.Host != nil }

func reply(p codec.Payload, err error) (*wrapperspb.StringValue, error) {
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(string(p)), nil
}

func (s *Server) ID(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	return reply(s.Host.ID(ctx))
}

func (s *Server) Buckets(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	return reply(s.Host.Buckets(ctx))
}

func (s *Server) AddBucket(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	return reply(s.Host.AddBucket(ctx, codec.Payload(in.GetValue())))
}

func (s *Server) RemoveBucket(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	if err := s.Host.RemoveBucket(ctx, codec.Payload(in.GetValue())); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Root(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	return reply(s.Host.Root(ctx, codec.Payload(in.GetValue())))
}

func (s *Server) Entries(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	return reply(s.Host.Entries(ctx, codec.Payload(in.GetValue())))
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	return reply(s.Host.Put(ctx, codec.Payload(in.GetValue())))
}

func (s *Server) Del(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	return reply(s.Host.Del(ctx, codec.Payload(in.GetValue())))
}

func (s *Server) ShareBucket(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	return reply(s.Host.ShareBucket(ctx, codec.Payload(in.GetValue())))
}

func (s *Server) OpenExternalURL(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if !s.ready() {
		return nil, errMissingHost
	}
	s.Host.OpenExternalURL(ctx, in.GetValue())
	return &emptypb.Empty{}, nil
}
