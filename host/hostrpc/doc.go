// Package hostrpc carries host calls over gRPC.
//
// Server wraps any host.Host (usually a refhost.Host) and Client implements
// host.Host against a remote Server, so a bridge.Client can sit on either
// side of the wire without change. Host errors cross the wire as status codes
// and come back as the host package sentinels.
package hostrpc
