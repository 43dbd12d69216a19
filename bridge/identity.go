package bridge

import (
	"context"

	"fam.dev/fam/host"
	"fam.dev/fam/principal"
)

// ID fetches and decodes the local signing identity.
func (c *Client) ID(ctx context.Context) (principal.Signer, error) {
	res, err := c.invoke(ctx, host.CallID, c.host.ID)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := response(host.CallID, res, &raw); err != nil {
		return nil, c.failed(ctx, err)
	}
	s, err := principal.Decode(raw)
	if err != nil {
		return nil, c.failed(ctx, decodeFailure(host.CallID, msgPrivateKey, err))
	}
	return s, nil
}
