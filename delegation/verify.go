package delegation

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"fam.dev/fam/principal"
)

// VerifyOption configures Verify.
type VerifyOption func(*verifyOptions)

type verifyOptions struct {
	clock clock.Clock
}

// WithClock sets the clock used for time bounds. Defaults to the wall clock.
func WithClock(c clock.Clock) VerifyOption {
	return func(o *verifyOptions) { o.clock = c }
}

// Verify checks every signature in the chain rooted at d and that each
// delegation is within its time bounds. Issuers must be did:key principals.
func Verify(d Delegation, opts ...VerifyOption) error {
	o := verifyOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	if !d.Defined() {
		return newError(KindChain, "DLG-CHAIN-003", "cannot verify an undefined delegation")
	}
	return verify(d, o, make(map[string]bool))
}

func verify(d Delegation, o verifyOptions, seen map[string]bool) error {
	key := string(d.Link().Binary())
	if seen[key] {
		return nil
	}
	seen[key] = true

	v, err := principal.VerifierFor(d.Issuer())
	if err != nil {
		return wrapError(KindSignature, "DLG-SIG-005", fmt.Sprintf("no verifier for issuer %s", d.Issuer()), err)
	}
	if !v.Verify(d.payload, d.sig) {
		return newError(KindSignature, "DLG-SIG-006", fmt.Sprintf("signature invalid for %s", d.Link()))
	}

	now := o.clock.Now()
	if exp, ok := d.Expiration(); ok && !now.Before(exp) {
		return newError(KindTime, "DLG-TIME-001", fmt.Sprintf("delegation %s expired at %s", d.Link(), exp))
	}
	if nbf, ok := d.NotBefore(); ok && now.Before(nbf) {
		return newError(KindTime, "DLG-TIME-002", fmt.Sprintf("delegation %s not valid before %s", d.Link(), nbf))
	}

	for _, p := range d.proofs {
		if err := verify(p, o, seen); err != nil {
			return err
		}
	}
	return nil
}
