package lzma

import "encoding/binary"

// Properties holds the decoded 13-byte classic LZMA header.
//
// LC, LP and PB are the literal-context, literal-position and position
// bits packed into the first header byte. DictSize is the effective
// dictionary size, raised to MinDictSize when the header declares less;
// DictSizeInHeader preserves the declared value.
type Properties struct {
	LC uint32
	LP uint32
	PB uint32

	DictSize         uint32
	DictSizeInHeader uint32

	// UnpackSize is the declared size of the decoded data. It is only
	// meaningful when UnpackSizeDefined is true; otherwise the stream
	// must terminate with an end marker and MarkerMandatory is set.
	UnpackSize        uint64
	UnpackSizeDefined bool
	MarkerMandatory   bool
}

// ParseHeader decodes the 13-byte header: a packed properties byte, the
// dictionary size as a little-endian uint32, and the unpacked size as a
// little-endian uint64 where all-0xFF means "undefined".
func ParseHeader(header []byte) (Properties, error) {
	var p Properties
	if len(header) < HeaderSize {
		return p, ErrUnexpectedEOF
	}

	d := uint32(header[0])
	if d >= 9*5*5 {
		return p, ErrBadProperties
	}
	p.LC = d % 9
	d /= 9
	p.PB = d / 5
	p.LP = d % 5

	p.DictSizeInHeader = binary.LittleEndian.Uint32(header[1:5])
	p.DictSize = p.DictSizeInHeader
	if p.DictSize < MinDictSize {
		p.DictSize = MinDictSize
	}

	for i := 0; i < 8; i++ {
		if header[5+i] != 0xFF {
			p.UnpackSizeDefined = true
		}
	}
	p.UnpackSize = binary.LittleEndian.Uint64(header[5:13])
	p.MarkerMandatory = !p.UnpackSizeDefined

	return p, nil
}
