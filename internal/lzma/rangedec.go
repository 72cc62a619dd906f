package lzma

import (
	"io"
	"math"
)

// byteReader pulls single bytes from the underlying stream and counts how
// many were consumed. The range coder only ever needs one byte of
// look-ahead, so no buffering beyond the caller's io.ByteReader is
// required.
type byteReader struct {
	r         io.ByteReader
	processed int64
}

// readByte returns the next input byte. Any shortfall, including a clean
// EOF, is reported as ErrUnexpectedEOF: the payload's own framing decides
// where the stream ends, so running out of bytes is always a truncation.
func (br *byteReader) readByte() (byte, error) {
	b, err := br.r.ReadByte()
	if err != nil {
		return 0, ErrUnexpectedEOF
	}
	br.processed++
	return b, nil
}

// rangeDecoder is the binary arithmetic decoder at the bottom of the LZMA
// stack. It maintains a shrinking interval [0, rrange) and a code register
// holding the not-yet-consumed portion of the stream inside that interval.
//
// As a side channel it accumulates, in perplexity, the exact information
// content (in bits) of every decoded symbol: -log2 of the model
// probability of the bit that was actually decoded. The top-level decoder
// drains this accumulator at packet boundaries to build the heat trace.
type rangeDecoder struct {
	in *byteReader

	rrange uint32
	code   uint32

	// Corrupted is a soft signal: certain invariant violations mark the
	// stream as damaged without stopping the decode, because the data may
	// still be usable up to a legitimate end marker.
	Corrupted bool

	perplexity float64
}

// init reads the mandatory zero byte followed by four big-endian code
// bytes. It reports false when the lead byte is non-zero, in which case
// the stream is not a valid LZMA payload and decoding cannot proceed.
func (rc *rangeDecoder) init() (bool, error) {
	rc.Corrupted = false
	rc.rrange = 0xFFFFFFFF
	rc.code = 0
	rc.perplexity = 0

	b, err := rc.in.readByte()
	if err != nil {
		return false, err
	}
	for i := 0; i < 4; i++ {
		c, err := rc.in.readByte()
		if err != nil {
			return false, err
		}
		rc.code = rc.code<<8 | uint32(c)
	}
	if b != 0 || rc.code == rc.rrange {
		rc.Corrupted = true
	}
	return b == 0, nil
}

// isFinishedOK reports whether the code register has been fully consumed,
// the required terminal state after an end marker.
func (rc *rangeDecoder) isFinishedOK() bool {
	return rc.code == 0
}

// normalize reloads the low bits of the code register whenever the range
// drops below 2^24, keeping the interval arithmetic at full precision.
func (rc *rangeDecoder) normalize() error {
	if rc.rrange < topValue {
		b, err := rc.in.readByte()
		if err != nil {
			return err
		}
		rc.rrange <<= 8
		rc.code = rc.code<<8 | uint32(b)
	}
	return nil
}

// decodeBit decodes one bit using the adaptive probability cell probs[i]
// and updates the cell by the 1/32 move rule. The information cost of the
// decoded bit is added to the perplexity accumulator before the cell is
// updated.
func (rc *rangeDecoder) decodeBit(probs []prob, i int) (uint32, error) {
	v := uint32(probs[i])
	bound := (rc.rrange >> numBitModelTotalBits) * v

	var symbol uint32
	if rc.code < bound {
		rc.perplexity += -math.Log2(float64(v) / (1 << numBitModelTotalBits))
		v += ((1 << numBitModelTotalBits) - v) >> numMoveBits
		rc.rrange = bound
		symbol = 0
	} else {
		rc.perplexity += -math.Log2(1 - float64(v)/(1<<numBitModelTotalBits))
		v -= v >> numMoveBits
		rc.code -= bound
		rc.rrange -= bound
		symbol = 1
	}
	probs[i] = prob(v)

	if rc.code == rc.rrange {
		rc.Corrupted = true
	}
	if err := rc.normalize(); err != nil {
		return 0, err
	}
	return symbol, nil
}

// decodeDirectBits decodes numBits bits with fixed probability 1/2, MSB
// first. Each bit contributes exactly one bit of information cost.
func (rc *rangeDecoder) decodeDirectBits(numBits int) (uint32, error) {
	rc.perplexity += float64(numBits)
	var res uint32
	for ; numBits > 0; numBits-- {
		rc.rrange >>= 1
		rc.code -= rc.rrange
		t := 0 - (rc.code >> 31)
		rc.code += rc.rrange & t

		if rc.code == rc.rrange {
			rc.Corrupted = true
		}
		if err := rc.normalize(); err != nil {
			return 0, err
		}
		res = res<<1 + t + 1
	}
	return res, nil
}

// takePerplexity returns the bits accumulated since the last call and
// resets the accumulator. The contract: the returned value is the total
// information cost of every bit decoded since the previous drain.
func (rc *rangeDecoder) takePerplexity() float64 {
	p := rc.perplexity
	rc.perplexity = 0
	return p
}
