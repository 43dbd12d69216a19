package delegation

import (
	"fmt"
	"time"

	"fam.dev/fam/codec"
	"fam.dev/fam/did"
	"fam.dev/fam/link"
	"fam.dev/fam/principal"
)

// Option configures Delegate.
type Option func(*options)

type options struct {
	exp    *int64
	nbf    *int64
	nonce  string
	facts  []map[string]any
	proofs []Delegation
}

// WithExpiration sets the time after which the delegation is invalid.
// Precision is one second.
func WithExpiration(t time.Time) Option {
	return func(o *options) {
		sec := t.Unix()
		o.exp = &sec
	}
}

// WithNotBefore sets the time before which the delegation is invalid.
func WithNotBefore(t time.Time) Option {
	return func(o *options) {
		sec := t.Unix()
		o.nbf = &sec
	}
}

// WithNonce makes otherwise identical delegations distinct.
func WithNonce(nonce string) Option {
	return func(o *options) { o.nonce = nonce }
}

// WithFacts attaches signed assertions.
func WithFacts(facts ...map[string]any) Option {
	return func(o *options) { o.facts = append(o.facts, facts...) }
}

// WithProofs chains the delegation to earlier grants. Every proof's audience
// must be the new delegation's issuer.
func WithProofs(proofs ...Delegation) Option {
	return func(o *options) { o.proofs = append(o.proofs, proofs...) }
}

// Delegate issues a delegation from issuer to audience granting caps.
func Delegate(issuer principal.Signer, audience did.DID, caps []Capability, opts ...Option) (Delegation, error) {
	if issuer == nil {
		return Delegation{}, newError(KindPrincipal, "DLG-PRN-003", "nil issuer")
	}
	if !audience.Defined() {
		return Delegation{}, newError(KindPrincipal, "DLG-PRN-004", "undefined audience")
	}
	if len(caps) == 0 {
		return Delegation{}, newError(KindCapability, "DLG-CAP-000", "delegation grants no capabilities")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	att := make([]Capability, len(caps))
	for i, c := range caps {
		n, err := normalizeCapability(c)
		if err != nil {
			return Delegation{}, err
		}
		att[i] = n
	}

	facts := make([]map[string]any, len(o.facts))
	for i, f := range o.facts {
		n, err := codec.Normalize(f)
		if err != nil {
			return Delegation{}, wrapError(KindBlock, "DLG-BLK-005", "invalid fact", err)
		}
		facts[i] = n.(map[string]any)
	}

	var prf []link.Link
	for i, p := range o.proofs {
		if !p.Defined() {
			return Delegation{}, newError(KindChain, "DLG-CHAIN-003", fmt.Sprintf("proof %d is undefined", i))
		}
		if p.Audience() != issuer.DID() {
			return Delegation{}, newError(KindChain, "DLG-CHAIN-002",
				fmt.Sprintf("proof %s audience %s is not issuer %s", p.Link(), p.Audience(), issuer.DID()))
		}
		prf = append(prf, p.Link())
	}

	p := payload{
		Version:  Version,
		Issuer:   issuer.DID().Bytes(),
		Audience: audience.Bytes(),
		Att:      att,
		Exp:      o.exp,
		Nbf:      o.nbf,
		Nonce:    o.nonce,
		Proofs:   prf,
	}
	if len(facts) > 0 {
		p.Facts = facts
	}
	pb, err := codec.Marshal(p)
	if err != nil {
		return Delegation{}, wrapError(KindBlock, "DLG-BLK-008", "cannot encode delegation payload", err)
	}
	sig, err := issuer.Sign(pb)
	if err != nil {
		return Delegation{}, wrapError(KindSignature, "DLG-SIG-004", "signing failed", err)
	}
	raw, err := codec.Marshal(block{Payload: pb, Signature: sig.Bytes()})
	if err != nil {
		return Delegation{}, wrapError(KindBlock, "DLG-BLK-008", "cannot encode delegation block", err)
	}

	d, _, err := decodeBlock(raw)
	if err != nil {
		return Delegation{}, err
	}
	d.proofs = append([]Delegation(nil), o.proofs...)
	return d, nil
}
