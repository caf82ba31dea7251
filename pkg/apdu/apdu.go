// Package apdu implements the DNP3 application layer wire format: the
// 2-byte application control + function code + (response-only) IIN header,
// and the object-header / qualifier-range codec objects are addressed
// with. Deep per-group value decoding lives in pkg/measurement (master
// side) and pkg/outstation (outstation side); this package only knows how
// to walk the header stream, mirroring the split the teacher keeps
// between pkg/od's raw Stream/Streamer and the SDO/PDO layers that give
// those bytes meaning.
package apdu

import "encoding/binary"

const (
	ctrlFir     uint8 = 1 << 7
	ctrlFin     uint8 = 1 << 6
	ctrlCon     uint8 = 1 << 5
	ctrlUns     uint8 = 1 << 4
	ctrlSeqMask uint8 = 0x0F
)

// Control is the 1-byte application control field; kept as its own type
// because every APDU layer references its FIR/FIN/CON/UNS bits
// independently of the function code byte that follows it.
type Control struct {
	Fir bool
	Fin bool
	Con bool
	Uns bool
	Seq uint8 // 4 bits
}

// Encode packs the control bits into their wire byte.
func (c Control) Encode() byte {
	var b uint8
	if c.Fir {
		b |= ctrlFir
	}
	if c.Fin {
		b |= ctrlFin
	}
	if c.Con {
		b |= ctrlCon
	}
	if c.Uns {
		b |= ctrlUns
	}
	b |= c.Seq & ctrlSeqMask
	return b
}

// DecodeControl unpacks a control byte.
func DecodeControl(b byte) Control {
	return Control{
		Fir: b&ctrlFir != 0,
		Fin: b&ctrlFin != 0,
		Con: b&ctrlCon != 0,
		Uns: b&ctrlUns != 0,
		Seq: b & ctrlSeqMask,
	}
}

// ObjectBlock is one undecoded object header plus its raw prefix+object
// bytes, exactly as they appeared on the wire.
type ObjectBlock struct {
	Header Header
	Data   []byte
}

// Fragment is a parsed application fragment: control + function code,
// optionally an IIN (responses only), and the raw object blocks that
// followed.
type Fragment struct {
	Control  Control
	Function FunctionCode
	IIN      IINField // only meaningful when Function is a response
	Objects  []ObjectBlock
}

// EncodeRequest serializes a request fragment (no IIN).
func EncodeRequest(ctrl Control, fc FunctionCode, objects []ObjectBlock) []byte {
	out := make([]byte, 0, 2+objectsLen(objects))
	out = append(out, ctrl.Encode(), byte(fc))
	for _, o := range objects {
		out = append(out, EncodeHeader(o.Header)...)
		out = append(out, o.Data...)
	}
	return out
}

// EncodeResponse serializes a response fragment, including IIN.
func EncodeResponse(ctrl Control, fc FunctionCode, iin IINField, objects []ObjectBlock) []byte {
	out := make([]byte, 0, 4+objectsLen(objects))
	out = append(out, ctrl.Encode(), byte(fc))
	out = binary.LittleEndian.AppendUint16(out, uint16(iin))
	for _, o := range objects {
		out = append(out, EncodeHeader(o.Header)...)
		out = append(out, o.Data...)
	}
	return out
}

func objectsLen(objects []ObjectBlock) int {
	n := 0
	for _, o := range objects {
		n += 3 + len(o.Data)
	}
	return n
}

// IsResponseFunction reports whether fc carries an IIN field.
func IsResponseFunction(fc FunctionCode) bool {
	return fc == FuncResponse || fc == FuncUnsolicitedResponse
}

// Decode parses a complete application fragment (the reassembled APDU).
// Object block bodies are not validated here beyond being present; the
// object-level consumer (measurement loader or outstation dispatcher) is
// expected to reject malformed contents with its own IIN bit.
func Decode(apdu []byte) (Fragment, error) {
	if len(apdu) < 2 {
		return Fragment{}, ErrTooShort
	}
	frag := Fragment{
		Control:  DecodeControl(apdu[0]),
		Function: FunctionCode(apdu[1]),
	}
	pos := 2
	if IsResponseFunction(frag.Function) {
		if len(apdu) < 4 {
			return Fragment{}, ErrTooShort
		}
		frag.IIN = IINField(binary.LittleEndian.Uint16(apdu[2:4]))
		pos = 4
	}

	hasData := FunctionCarriesObjectData(frag.Function)
	for pos < len(apdu) {
		header, consumed, err := DecodeHeader(apdu[pos:])
		if err != nil {
			return Fragment{}, err
		}
		pos += consumed
		dataLen := 0
		if hasData {
			dataLen, err = header.Range.ObjectBytesLen(header.Group, header.Variation)
			if err != nil {
				return Fragment{}, err
			}
		}
		if pos+dataLen > len(apdu) {
			return Fragment{}, ErrTooShort
		}
		frag.Objects = append(frag.Objects, ObjectBlock{Header: header, Data: apdu[pos : pos+dataLen]})
		pos += dataLen
	}
	return frag, nil
}
