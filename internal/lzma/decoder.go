// Package lzma implements a classic LZMA (LZMA1) stream decoder that
// additionally attributes an information cost, in bits, to every decoded
// byte. The decoder follows Igor Pavlov's reference decoder bit for bit;
// the cost accounting is a side channel of the range decoder that is
// drained at packet boundaries.
package lzma

import (
	"io"
	"sync"
)

// Status is the terminal state of a successful decode.
type Status int

const (
	// StatusError accompanies a non-nil error.
	StatusError Status = iota
	// StatusFinishedWithMarker means the stream ended with an explicit
	// end marker.
	StatusFinishedWithMarker
	// StatusFinishedWithoutMarker means the declared unpacked size was
	// reached and the range coder was fully consumed.
	StatusFinishedWithoutMarker
)

func (s Status) String() string {
	switch s {
	case StatusFinishedWithMarker:
		return "finished with end marker"
	case StatusFinishedWithoutMarker:
		return "finished without end marker"
	default:
		return "error"
	}
}

// Result is the product of a decode: the decoded bytes plus two parallel
// traces of identical length, the per-byte information cost in bits and
// the per-byte literal flag (true when the byte came from a literal
// packet rather than a match copy).
type Result struct {
	Data     []byte
	Heat     []float64
	Literals []bool

	Status    Status
	Corrupted bool

	// Compressed is the number of payload bytes consumed, excluding the
	// 13-byte header.
	Compressed int64
}

// MaxHeat returns the largest per-byte cost in the trace, the
// normalisation factor for presentation.
func (r *Result) MaxHeat() float64 {
	max := 0.0
	for _, h := range r.Heat {
		if h > max {
			max = h
		}
	}
	return max
}

// decoderPool caches Decoder structs between decode calls so that the
// probability tables can be reused. The output and trace slices are handed
// to the caller and are not kept by the pool.
var decoderPool sync.Pool

func acquireDecoder(p Properties) *Decoder {
	if v := decoderPool.Get(); v != nil {
		d := v.(*Decoder)
		d.reset(p)
		return d
	}
	d := &Decoder{}
	d.reset(p)
	return d
}

func releaseDecoder(d *Decoder) {
	if d == nil {
		return
	}
	d.win.release()
	// Nil the handed-out buffers so the pool does not pin them.
	d.win.out = nil
	d.heat = nil
	d.literals = nil
	decoderPool.Put(d)
}

// DecodePayload decodes the range-coded payload that follows a parsed
// header. On success the returned Result owns the output and trace
// buffers; on error everything decoded so far is discarded.
func DecodePayload(r io.ByteReader, props Properties) (*Result, error) {
	d := acquireDecoder(props)
	defer releaseDecoder(d)

	status, err := d.decode(r)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Data:       d.win.out,
		Heat:       d.heat,
		Literals:   d.literals,
		Status:     status,
		Corrupted:  d.rc.Corrupted,
		Compressed: d.rc.in.processed,
	}
	return res, nil
}

// Decoder holds the complete adaptive model of one LZMA stream: the
// literal probabilities, the match/rep selection cells, the distance
// trees, and the two length decoders. All tables belong exclusively to
// the decoder; nothing is shared across streams.
type Decoder struct {
	props Properties
	rc    rangeDecoder
	win   window

	litProbs []prob

	posSlot     [numLenToPosStates]bitTree
	align       bitTree
	posDecoders [1 + numFullDistances - endPosModelIndex]prob

	isMatch    [numStates << numPosBitsMax]prob
	isRep      [numStates]prob
	isRepG0    [numStates]prob
	isRepG1    [numStates]prob
	isRepG2    [numStates]prob
	isRep0Long [numStates << numPosBitsMax]prob

	lenDec    lenDecoder
	repLenDec lenDecoder

	heat     []float64
	literals []bool
}

// reset prepares the decoder for a fresh stream: every probability cell
// back to 1024, an empty window of the stream's dictionary size, and
// empty traces. Table storage is reused when the shape allows it.
func (d *Decoder) reset(p Properties) {
	d.props = p

	numLit := 0x300 << (p.LC + p.LP)
	if cap(d.litProbs) < numLit {
		d.litProbs = make([]prob, numLit)
	} else {
		d.litProbs = d.litProbs[:numLit]
	}
	initProbs(d.litProbs)

	if d.align.probs == nil {
		for i := range d.posSlot {
			d.posSlot[i] = newBitTree(6)
		}
		d.align = newBitTree(numAlignBits)
		d.lenDec = newLenDecoder()
		d.repLenDec = newLenDecoder()
	} else {
		for i := range d.posSlot {
			d.posSlot[i].reset()
		}
		d.align.reset()
		d.lenDec.reset()
		d.repLenDec.reset()
	}
	initProbs(d.posDecoders[:])

	initProbs(d.isMatch[:])
	initProbs(d.isRep[:])
	initProbs(d.isRepG0[:])
	initProbs(d.isRepG1[:])
	initProbs(d.isRepG2[:])
	initProbs(d.isRep0Long[:])

	d.win.create(p.DictSize)
	d.heat = d.heat[:0]
	d.literals = d.literals[:0]
}

// trace attributes the range decoder's accumulated cost to a completed
// packet of n output bytes, spreading it uniformly, and records the
// packet kind for each byte. The heat, literal and output slices stay the
// same length at every packet boundary.
func (d *Decoder) trace(n uint32, literal bool) {
	per := d.rc.takePerplexity() / float64(n)
	for i := uint32(0); i < n; i++ {
		d.heat = append(d.heat, per)
		d.literals = append(d.literals, literal)
	}
}

// Packet-history state transitions. The state distinguishes, for the
// literal decoder and the rep heuristics, what the last few packets were.
func stateUpdateLiteral(state uint32) uint32 {
	if state < 4 {
		return 0
	}
	if state < 10 {
		return state - 3
	}
	return state - 6
}

func stateUpdateMatch(state uint32) uint32 {
	if state < 7 {
		return 7
	}
	return 10
}

func stateUpdateRep(state uint32) uint32 {
	if state < 7 {
		return 8
	}
	return 11
}

func stateUpdateShortRep(state uint32) uint32 {
	if state < 7 {
		return 9
	}
	return 11
}

// decodeLiteral decodes one literal byte. The probability sub-table is
// selected by the low lp bits of the position and the high lc bits of the
// previous byte. After a match (state >= 7) the byte at the most recent
// match distance steers the decode until its bits diverge from the
// decoded ones.
func (d *Decoder) decodeLiteral(state, rep0 uint32) error {
	prevByte := uint32(0)
	if !d.win.isEmpty() {
		prevByte = uint32(d.win.getByte(1))
	}

	symbol := uint32(1)
	litState := (d.win.totalPos&(1<<d.props.LP-1))<<d.props.LC + prevByte>>(8-d.props.LC)
	probs := d.litProbs[0x300*litState:]

	if state >= 7 {
		matchByte := d.win.getByte(rep0 + 1)
		for symbol < 0x100 {
			matchBit := uint32(matchByte>>7) & 1
			matchByte <<= 1
			bit, err := d.rc.decodeBit(probs, int((1+matchBit)<<8+symbol))
			if err != nil {
				return err
			}
			symbol = symbol<<1 | bit
			if matchBit != bit {
				break
			}
		}
	}
	for symbol < 0x100 {
		bit, err := d.rc.decodeBit(probs, int(symbol))
		if err != nil {
			return err
		}
		symbol = symbol<<1 | bit
	}
	d.win.putByte(byte(symbol - 0x100))
	return nil
}

// decodeDistance decodes a match distance for the given (pre-adjustment)
// length. Slots below 4 are the distance itself; higher slots add either
// reverse-tree-coded or direct bits plus the align tree.
func (d *Decoder) decodeDistance(length uint32) (uint32, error) {
	lenState := length
	if lenState > numLenToPosStates-1 {
		lenState = numLenToPosStates - 1
	}

	posSlot, err := d.posSlot[lenState].decode(&d.rc)
	if err != nil {
		return 0, err
	}
	if posSlot < 4 {
		return posSlot, nil
	}

	numDirectBits := int(posSlot>>1 - 1)
	dist := (2 | posSlot&1) << numDirectBits
	if posSlot < endPosModelIndex {
		n, err := reverseDecode(d.posDecoders[dist-posSlot:], numDirectBits, &d.rc)
		if err != nil {
			return 0, err
		}
		dist += n
	} else {
		n, err := d.rc.decodeDirectBits(numDirectBits - numAlignBits)
		if err != nil {
			return 0, err
		}
		dist += n << numAlignBits
		a, err := d.align.reverseDecode(&d.rc)
		if err != nil {
			return 0, err
		}
		dist += a
	}
	return dist, nil
}

// decode runs the packet state machine until a terminal condition. The
// rep queue holds the four most recent match distances, most recent
// first; the on-the-wire value plus one is the byte distance.
func (d *Decoder) decode(r io.ByteReader) (Status, error) {
	d.rc.in = &byteReader{r: r}
	ok, err := d.rc.init()
	if err != nil {
		return StatusError, err
	}
	if !ok {
		return StatusError, ErrStreamInit
	}

	unpackSize := d.props.UnpackSize
	sizeDefined := d.props.UnpackSizeDefined

	var rep0, rep1, rep2, rep3 uint32
	state := uint32(0)

	for {
		if sizeDefined && unpackSize == 0 && !d.props.MarkerMandatory && d.rc.isFinishedOK() {
			return StatusFinishedWithoutMarker, nil
		}

		posState := d.win.totalPos & (1<<d.props.PB - 1)

		bit, err := d.rc.decodeBit(d.isMatch[:], int(state<<numPosBitsMax+posState))
		if err != nil {
			return StatusError, err
		}
		if bit == 0 {
			if sizeDefined && unpackSize == 0 {
				return StatusError, ErrOutputOverflow
			}
			if err := d.decodeLiteral(state, rep0); err != nil {
				return StatusError, err
			}
			d.trace(1, true)
			state = stateUpdateLiteral(state)
			unpackSize--
			continue
		}

		var length uint32

		bit, err = d.rc.decodeBit(d.isRep[:], int(state))
		if err != nil {
			return StatusError, err
		}
		if bit != 0 {
			if sizeDefined && unpackSize == 0 {
				return StatusError, ErrOutputOverflow
			}
			if d.win.isEmpty() {
				return StatusError, ErrEmptyWindowRep
			}

			bit, err = d.rc.decodeBit(d.isRepG0[:], int(state))
			if err != nil {
				return StatusError, err
			}
			if bit == 0 {
				bit, err = d.rc.decodeBit(d.isRep0Long[:], int(state<<numPosBitsMax+posState))
				if err != nil {
					return StatusError, err
				}
				if bit == 0 {
					state = stateUpdateShortRep(state)
					d.win.putByte(d.win.getByte(rep0 + 1))
					d.trace(1, false)
					unpackSize--
					continue
				}
			} else {
				var dist uint32
				bit, err = d.rc.decodeBit(d.isRepG1[:], int(state))
				if err != nil {
					return StatusError, err
				}
				if bit == 0 {
					dist = rep1
				} else {
					bit, err = d.rc.decodeBit(d.isRepG2[:], int(state))
					if err != nil {
						return StatusError, err
					}
					if bit == 0 {
						dist = rep2
					} else {
						dist = rep3
						rep3 = rep2
					}
					rep2 = rep1
				}
				rep1 = rep0
				rep0 = dist
			}
			length, err = d.repLenDec.decode(&d.rc, posState)
			if err != nil {
				return StatusError, err
			}
			state = stateUpdateRep(state)
		} else {
			rep3 = rep2
			rep2 = rep1
			rep1 = rep0
			length, err = d.lenDec.decode(&d.rc, posState)
			if err != nil {
				return StatusError, err
			}
			state = stateUpdateMatch(state)
			rep0, err = d.decodeDistance(length)
			if err != nil {
				return StatusError, err
			}
			if rep0 == endMarkerDist {
				if d.rc.isFinishedOK() {
					return StatusFinishedWithMarker, nil
				}
				return StatusError, ErrMissingFinishedOK
			}

			if sizeDefined && unpackSize == 0 {
				return StatusError, ErrOutputOverflow
			}
			if rep0 >= d.props.DictSize || !d.win.checkDistance(rep0+1) {
				return StatusError, ErrBadDistance
			}
		}

		length += matchMinLen
		overflow := false
		if sizeDefined && unpackSize < uint64(length) {
			// Clamp so the traces stay aligned with the output, then
			// report the overflow after the copy.
			length = uint32(unpackSize)
			overflow = true
		}
		d.win.copyMatch(rep0+1, length)
		d.trace(length, false)
		unpackSize -= uint64(length)
		if overflow {
			return StatusError, ErrOutputOverflow
		}
	}
}
