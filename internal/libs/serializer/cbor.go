package serializer

import (
	"github.com/hyp3rd/ewrap"
	"github.com/ugorji/go/codec"
)

// CBORSerializer serializes values with the ugorji CBOR handle.
type CBORSerializer struct {
	handle *codec.CborHandle
}

// NewCBORSerializer returns a CBOR serializer with its own handle.
func NewCBORSerializer() *CBORSerializer {
	return &CBORSerializer{handle: &codec.CborHandle{}}
}

// Marshal serializes the given value into a byte slice.
func (s *CBORSerializer) Marshal(v any) ([]byte, error) {
	var out []byte

	err := codec.NewEncoderBytes(&out, s.handle).Encode(v)
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to marshal cbor")
	}

	return out, nil
}

// Unmarshal deserializes the given byte slice into v.
func (s *CBORSerializer) Unmarshal(data []byte, v any) error {
	err := codec.NewDecoderBytes(data, s.handle).Decode(v)
	if err != nil {
		return ewrap.Wrap(err, "failed to unmarshal cbor")
	}

	return nil
}
