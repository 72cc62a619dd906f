package lzma

import "errors"

// Decoder errors. All of them are terminal: the decoder never recovers
// internally, it surfaces the error to the caller and the output produced
// so far is discarded.
var (
	// ErrUnexpectedEOF is returned when the input stream runs out in the
	// middle of the header or the range-coded payload.
	ErrUnexpectedEOF = errors.New("lzma: unexpected end of stream")

	// ErrBadProperties is returned when the first header byte does not
	// encode a valid (lc, lp, pb) triple.
	ErrBadProperties = errors.New("lzma: invalid properties byte")

	// ErrStreamInit is returned when the byte introducing the range-coded
	// payload is not zero.
	ErrStreamInit = errors.New("lzma: range coder initialisation failed")

	// ErrOutputOverflow is returned when the stream encodes more bytes
	// than the declared unpacked size.
	ErrOutputOverflow = errors.New("lzma: stream exceeds declared unpacked size")

	// ErrBadDistance is returned when a match distance is at least the
	// dictionary size or references bytes that were never written.
	ErrBadDistance = errors.New("lzma: match distance out of range")

	// ErrEmptyWindowRep is returned when a rep or short-rep packet occurs
	// before any byte has been decoded.
	ErrEmptyWindowRep = errors.New("lzma: rep match with empty window")

	// ErrMissingFinishedOK is returned when the end marker is reached but
	// the range coder is not in its fully-consumed state.
	ErrMissingFinishedOK = errors.New("lzma: end marker with pending range coder state")
)
