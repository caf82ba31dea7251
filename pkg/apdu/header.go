package apdu

// Header is one object header: group, variation, qualifier and the
// decoded range that follows it.
type Header struct {
	Group     uint8
	Variation uint8
	Qualifier uint8
	Range     Range
}

// EncodeHeader serializes group+variation+qualifier+range.
func EncodeHeader(h Header) []byte {
	out := make([]byte, 0, 3+6)
	out = append(out, h.Group, h.Variation, h.Qualifier)
	out = append(out, EncodeRange(h.Range)...)
	return out
}

// DecodeHeader parses one object header from the front of data, returning
// the header and the number of bytes consumed (not including any object
// data that follows).
func DecodeHeader(data []byte) (Header, int, error) {
	if len(data) < 3 {
		return Header{}, 0, ErrTooShort
	}
	group, variation, qualifier := data[0], data[1], data[2]
	r, n, err := DecodeRange(qualifier, data[3:])
	if err != nil {
		return Header{}, 0, err
	}
	return Header{Group: group, Variation: variation, Qualifier: qualifier, Range: r}, 3 + n, nil
}
