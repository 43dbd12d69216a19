package refhost

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fam.dev/fam/codec"
	"fam.dev/fam/delegation"
	"fam.dev/fam/did"
	"fam.dev/fam/host"
)

// sharedAbilities are granted to the audience of ShareBucket.
var sharedAbilities = []string{"clock/*", "space/blob/*"}

func (h *Host) ShareBucket(ctx context.Context, req codec.Payload) (codec.Payload, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var r host.ShareRequest
	if err := decodeRequest(req, &r); err != nil {
		return h.fail(host.CallShareBucket, err)
	}
	bucketID, err := did.Decode(r.Bucket)
	if err != nil {
		return h.fail(host.CallShareBucket, fmt.Errorf("%w: bucket: %v", host.ErrInvalidRequest, err))
	}
	audience, err := did.Decode(r.Audience)
	if err != nil {
		return h.fail(host.CallShareBucket, fmt.Errorf("%w: audience: %v", host.ErrInvalidRequest, err))
	}

	h.mu.Lock()
	b, err := h.bucket(bucketID)
	var grant delegation.Delegation
	if err == nil {
		grant = b.grant
	}
	h.mu.Unlock()
	if err != nil {
		return h.fail(host.CallShareBucket, err)
	}

	caps := make([]delegation.Capability, len(sharedAbilities))
	for i, can := range sharedAbilities {
		caps[i] = delegation.Capability{Can: can, With: bucketID.String()}
	}
	d, err := delegation.Delegate(h.agent, audience, caps,
		delegation.WithProofs(grant),
		delegation.WithExpiration(h.clock.Now().Add(h.shareTTL)),
		delegation.WithNonce(uuid.NewString()),
	)
	if err != nil {
		return h.fail(host.CallShareBucket, err)
	}
	archive, err := delegation.Archive(d)
	if err != nil {
		return h.fail(host.CallShareBucket, err)
	}
	h.log.Info("bucket shared", "bucket", bucketID.String(), "audience", audience.String(), "delegation", d.Link().String())
	return h.respond(host.CallShareBucket, archive, nil)
}
