package link

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBORTag is the CBOR tag number reserved for CIDs (DAG-CBOR).
const CBORTag = 42

// MarshalCBOR encodes l as tag 42 wrapping 0x00 followed by the binary CID.
func (l Link) MarshalCBOR() ([]byte, error) {
	if !l.Defined() {
		return nil, fmt.Errorf("%w: cannot encode undefined link", ErrInvalid)
	}
	content := make([]byte, 0, len(l.Binary())+1)
	content = append(content, 0x00)
	content = append(content, l.Binary()...)
	return cbor.Marshal(cbor.Tag{Number: CBORTag, Content: content})
}

// UnmarshalCBOR decodes a tag 42 item.
func (l *Link) UnmarshalCBOR(data []byte) error {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	if tag.Number != CBORTag {
		return fmt.Errorf("%w: unexpected CBOR tag %d", ErrInvalid, tag.Number)
	}
	var content []byte
	if err := cbor.Unmarshal(tag.Content, &content); err != nil {
		return fmt.Errorf("%w: tag content: %s", ErrInvalid, err)
	}
	parsed, err := FromTag(content)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// FromTag decodes the content of a CBOR tag 42 item. Generic decoders that
// surface unregistered tags use it to recover links.
func FromTag(content []byte) (Link, error) {
	if len(content) < 2 || content[0] != 0x00 {
		return Undef, fmt.Errorf("%w: tag content must start with the identity multibase prefix", ErrInvalid)
	}
	return FromBinary(content[1:])
}
