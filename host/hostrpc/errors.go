package hostrpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fam.dev/fam/host"
)

// mapRPC turns a status error from the server back into a host sentinel. The
// status message is kept as detail.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = host.ErrNotFound
	case codes.InvalidArgument:
		sentinel = host.ErrInvalidRequest
	case codes.Unavailable, codes.DeadlineExceeded:
		sentinel = host.ErrUnavailable
	case codes.Canceled:
		sentinel = context.Canceled
	default:
		return err
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}

// mapErr is the server-side inverse of mapRPC.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, host.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, host.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, host.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
