package lzmaviz

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/deepteams/lzmaviz/internal/lzma"
)

// Errors surfaced by the decoder. They are the internal sentinel values,
// re-exported so callers can match them with errors.Is.
var (
	ErrUnexpectedEOF     = lzma.ErrUnexpectedEOF
	ErrBadProperties     = lzma.ErrBadProperties
	ErrStreamInit        = lzma.ErrStreamInit
	ErrOutputOverflow    = lzma.ErrOutputOverflow
	ErrBadDistance       = lzma.ErrBadDistance
	ErrEmptyWindowRep    = lzma.ErrEmptyWindowRep
	ErrMissingFinishedOK = lzma.ErrMissingFinishedOK
)

// Status reports how a successfully decoded stream terminated.
type Status int

const (
	// FinishedWithMarker means the stream ended with an explicit end
	// marker.
	FinishedWithMarker Status = iota + 1
	// FinishedWithoutMarker means the declared unpacked size was reached
	// with the range coder fully consumed.
	FinishedWithoutMarker
)

func (s Status) String() string {
	switch s {
	case FinishedWithMarker:
		return "finished with end marker"
	case FinishedWithoutMarker:
		return "finished without end marker"
	default:
		return "unknown"
	}
}

// Result is a complete decode: the output bytes and two parallel traces
// of the same length.
type Result struct {
	// Data is the decoded stream.
	Data []byte
	// Heat holds, for each output byte, the information cost in bits
	// attributed to it.
	Heat []float64
	// Literals is true where the byte came from a literal packet, false
	// where it was copied by a match.
	Literals []bool

	// Status tells how the stream terminated.
	Status Status
	// Corrupted is a non-fatal warning from the range decoder: the
	// stream violated an invariant but still decoded to completion.
	Corrupted bool

	// Compressed is the number of payload bytes consumed, excluding the
	// 13-byte header.
	Compressed int64
}

// MaxHeat returns the largest per-byte cost in the trace, the
// normalisation factor used by the presentation layer.
func (r *Result) MaxHeat() float64 {
	max := 0.0
	for _, h := range r.Heat {
		if h > max {
			max = h
		}
	}
	return max
}

// Features describes an LZMA file's header, as returned by [GetFeatures].
type Features struct {
	LC int // literal-context bits
	LP int // literal-position bits
	PB int // position bits

	// DictSize is the effective dictionary size; DeclaredDictSize is
	// the raw header value before the 4 KiB floor is applied.
	DictSize         uint32
	DeclaredDictSize uint32

	// UnpackSize is the declared decoded size, meaningful only when
	// UnpackSizeDefined is true. Undefined size means the stream must
	// end with an end marker.
	UnpackSize        uint64
	UnpackSizeDefined bool
}

// Decode reads a classic LZMA stream (13-byte header plus range-coded
// payload) from r and decodes it completely, buffering the output and
// the heat trace in memory.
func Decode(r io.Reader) (*Result, error) {
	br := bufio.NewReader(r)

	props, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	res, err := lzma.DecodePayload(br, props)
	if err != nil {
		return nil, fmt.Errorf("lzmaviz: decoding payload: %w", err)
	}

	status := FinishedWithMarker
	if res.Status == lzma.StatusFinishedWithoutMarker {
		status = FinishedWithoutMarker
	}
	return &Result{
		Data:       res.Data,
		Heat:       res.Heat,
		Literals:   res.Literals,
		Status:     status,
		Corrupted:  res.Corrupted,
		Compressed: res.Compressed,
	}, nil
}

// DecodeBytes decodes a complete LZMA stream held in memory.
func DecodeBytes(data []byte) (*Result, error) {
	return Decode(bytes.NewReader(data))
}

// DecodeFile opens and decodes the LZMA file at path.
func DecodeFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// GetFeatures reads the 13-byte header without decoding the payload. It
// is much cheaper than a full [Decode].
func GetFeatures(r io.Reader) (*Features, error) {
	props, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	return &Features{
		LC:                int(props.LC),
		LP:                int(props.LP),
		PB:                int(props.PB),
		DictSize:          props.DictSize,
		DeclaredDictSize:  props.DictSizeInHeader,
		UnpackSize:        props.UnpackSize,
		UnpackSizeDefined: props.UnpackSizeDefined,
	}, nil
}

// readHeader pulls the header bytes off the reader and parses them.
func readHeader(r io.Reader) (lzma.Properties, error) {
	header := make([]byte, lzma.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return lzma.Properties{}, fmt.Errorf("lzmaviz: reading header: %w", lzma.ErrUnexpectedEOF)
	}
	props, err := lzma.ParseHeader(header)
	if err != nil {
		return lzma.Properties{}, fmt.Errorf("lzmaviz: parsing header: %w", err)
	}
	return props, nil
}
