package bridge

import (
	"context"

	"fam.dev/fam/codec"
	"fam.dev/fam/delegation"
	"fam.dev/fam/did"
	"fam.dev/fam/host"
)

// ShareBucket requests a delegation on bucket for audience. The returned
// delegation has passed Extract.
func (c *Client) ShareBucket(ctx context.Context, bucket, audience did.DID) (delegation.Delegation, error) {
	b, err := didBytes(host.CallShareBucket, bucket)
	if err != nil {
		return delegation.Delegation{}, c.failed(ctx, err)
	}
	a, err := didBytes(host.CallShareBucket, audience)
	if err != nil {
		return delegation.Delegation{}, c.failed(ctx, err)
	}
	req, err := request(host.CallShareBucket, host.ShareRequest{Bucket: b, Audience: a})
	if err != nil {
		return delegation.Delegation{}, c.failed(ctx, err)
	}
	res, err := c.invoke(ctx, host.CallShareBucket, func(ctx context.Context) (codec.Payload, error) {
		return c.host.ShareBucket(ctx, req)
	})
	if err != nil {
		return delegation.Delegation{}, err
	}
	var archive []byte
	if err := response(host.CallShareBucket, res, &archive); err != nil {
		return delegation.Delegation{}, c.failed(ctx, err)
	}
	d, err := delegation.Extract(archive)
	if err != nil {
		return delegation.Delegation{}, c.failed(ctx, decodeFailure(host.CallShareBucket, msgExtract, err))
	}
	return d, nil
}

// OpenExternalURL asks the host to open url. It does not wait for or report
// an outcome.
func (c *Client) OpenExternalURL(ctx context.Context, url string) {
	c.log.DebugContext(ctx, "invoke", "call", string(host.CallOpenExternalURL))
	c.host.OpenExternalURL(ctx, url)
}
