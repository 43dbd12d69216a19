package refhost

import (
	"fmt"

	"fam.dev/fam/delegation"
	"fam.dev/fam/did"
	"fam.dev/fam/host"
)

// Abilities a bucket grant must cover.
var (
	clockAbilities  = []string{"clock/advance"}
	uploadAbilities = []string{"space/blob/add"}
)

// checkGrant applies the bucket registration policy and returns the bucket
// DID. All capabilities must name the same DID resource, the grant must be
// delegated to this host's agent, and it must allow both advancing the
// bucket clock and uploading blobs.
func (h *Host) checkGrant(proof delegation.Delegation) (did.DID, error) {
	if proof.Audience() != h.agent.DID() {
		return did.Undef, fmt.Errorf("%w: delegation audience %s is not agent %s", host.ErrInvalidRequest, proof.Audience(), h.agent.DID())
	}

	bucketID := did.Undef
	var canMutateClock, canUpload bool
	for _, c := range proof.Capabilities() {
		id, err := did.Parse(c.With)
		if err != nil {
			return did.Undef, fmt.Errorf("%w: resource %q: %v", host.ErrInvalidRequest, c.With, err)
		}
		if !bucketID.Defined() {
			bucketID = id
		} else if id != bucketID {
			return did.Undef, fmt.Errorf("%w: capabilities do not reference the same resource", host.ErrInvalidRequest)
		}
		canMutateClock = canMutateClock || covers(c.Can, clockAbilities)
		canUpload = canUpload || covers(c.Can, uploadAbilities)
	}

	if !canMutateClock {
		return did.Undef, fmt.Errorf("%w: missing capability to mutate merkle clock", host.ErrInvalidRequest)
	}
	if !canUpload {
		return did.Undef, fmt.Errorf("%w: missing capability to upload data", host.ErrInvalidRequest)
	}
	return bucketID, nil
}

func covers(can string, abilities []string) bool {
	for _, a := range abilities {
		if delegation.Matches(can, a) {
			return true
		}
	}
	return false
}
