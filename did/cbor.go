package did

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MarshalCBOR encodes d as a CBOR byte string holding its binary form.
func (d DID) MarshalCBOR() ([]byte, error) {
	if !d.Defined() {
		return nil, fmt.Errorf("%w: cannot encode undefined DID", ErrInvalid)
	}
	return cbor.Marshal(d.Bytes())
}

// UnmarshalCBOR decodes a CBOR byte string produced by MarshalCBOR.
func (d *DID) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	parsed, err := Decode(b)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
