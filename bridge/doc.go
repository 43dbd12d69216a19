// Package bridge is the client side of the host channel.
//
// Each Client method is one backend call and runs the same pipeline:
//
//	encode request -> invoke host -> decode response
//
// and every failure is reported as a *Failure whose Kind names the stage that
// failed:
//
//	EncodeFailure      the request could not be built; the host was not called
//	InvocationFailure  the host call did not complete; its effect is unknown
//	DecodeFailure      the host answered but the payload is unusable
//
// The Client holds no state besides the host handle, performs no retries and
// returns only freshly decoded values. Use Retryable to decide whether an
// error may be retried blindly.
package bridge
