package lzma

import (
	"encoding/binary"
	"math/bits"
)

// Test-only LZMA encoder. It mirrors the decoder's probability model
// update for update, which lets the tests construct bit-exact streams
// for arbitrary packet sequences, including ones a real compressor
// would never emit (rep at stream start, out-of-window distances,
// payload past the declared size).

// rangeEncoder is the counterpart of rangeDecoder.
type rangeEncoder struct {
	low       uint64
	rrange    uint32
	cache     byte
	cacheSize int64
	out       []byte
}

func newRangeEncoder() *rangeEncoder {
	return &rangeEncoder{rrange: 0xFFFFFFFF, cacheSize: 1}
}

func (re *rangeEncoder) shiftLow() {
	if uint32(re.low) < 0xFF000000 || re.low>>32 != 0 {
		temp := re.cache
		for {
			re.out = append(re.out, temp+byte(re.low>>32))
			temp = 0xFF
			re.cacheSize--
			if re.cacheSize == 0 {
				break
			}
		}
		re.cache = byte(re.low >> 24)
	}
	re.cacheSize++
	re.low = uint64(uint32(re.low) << 8)
}

func (re *rangeEncoder) encodeBit(probs []prob, i int, bit uint32) {
	v := uint32(probs[i])
	bound := (re.rrange >> numBitModelTotalBits) * v
	if bit == 0 {
		re.rrange = bound
		v += ((1 << numBitModelTotalBits) - v) >> numMoveBits
	} else {
		re.low += uint64(bound)
		re.rrange -= bound
		v -= v >> numMoveBits
	}
	probs[i] = prob(v)
	for re.rrange < topValue {
		re.rrange <<= 8
		re.shiftLow()
	}
}

func (re *rangeEncoder) encodeDirectBits(v uint32, numBits int) {
	for i := numBits - 1; i >= 0; i-- {
		re.rrange >>= 1
		if v>>uint(i)&1 != 0 {
			re.low += uint64(re.rrange)
		}
		for re.rrange < topValue {
			re.rrange <<= 8
			re.shiftLow()
		}
	}
}

func (re *rangeEncoder) flush() {
	for i := 0; i < 5; i++ {
		re.shiftLow()
	}
}

func encodeTree(re *rangeEncoder, probs []prob, numBits int, sym uint32) {
	m := uint32(1)
	for i := numBits - 1; i >= 0; i-- {
		b := sym >> uint(i) & 1
		re.encodeBit(probs, int(m), b)
		m = m<<1 | b
	}
}

func encodeTreeReverse(re *rangeEncoder, probs []prob, numBits int, sym uint32) {
	m := uint32(1)
	for i := 0; i < numBits; i++ {
		b := sym & 1
		sym >>= 1
		re.encodeBit(probs, int(m), b)
		m = m<<1 | b
	}
}

type testLenEncoder struct {
	choice [2]prob
	low    [1 << numPosBitsMax][]prob
	mid    [1 << numPosBitsMax][]prob
	high   []prob
}

func newTestLenEncoder() *testLenEncoder {
	le := &testLenEncoder{high: make([]prob, 1<<8)}
	le.choice[0] = probInitVal
	le.choice[1] = probInitVal
	initProbs(le.high)
	for i := range le.low {
		le.low[i] = make([]prob, 1<<3)
		le.mid[i] = make([]prob, 1<<3)
		initProbs(le.low[i])
		initProbs(le.mid[i])
	}
	return le
}

// encode writes the match length minus matchMinLen.
func (le *testLenEncoder) encode(re *rangeEncoder, l, posState uint32) {
	switch {
	case l < 8:
		re.encodeBit(le.choice[:], 0, 0)
		encodeTree(re, le.low[posState], 3, l)
	case l < 16:
		re.encodeBit(le.choice[:], 0, 1)
		re.encodeBit(le.choice[:], 1, 0)
		encodeTree(re, le.mid[posState], 3, l-8)
	default:
		re.encodeBit(le.choice[:], 0, 1)
		re.encodeBit(le.choice[:], 1, 1)
		encodeTree(re, le.high, 8, l-16)
	}
}

// testEncoder carries the full model state plus the emitted history so
// that matched literals and rep distances are encoded against the same
// context the decoder will reconstruct.
type testEncoder struct {
	re *rangeEncoder

	lc, lp, pb uint32

	litProbs    []prob
	posSlot     [numLenToPosStates][]prob
	alignProbs  []prob
	posDecoders []prob

	isMatch    []prob
	isRep      []prob
	isRepG0    []prob
	isRepG1    []prob
	isRepG2    []prob
	isRep0Long []prob

	lenEnc    *testLenEncoder
	repLenEnc *testLenEncoder

	state                  uint32
	rep0, rep1, rep2, rep3 uint32
	totalPos               uint32

	hist []byte
}

func newTestEncoder(lc, lp, pb uint32) *testEncoder {
	e := &testEncoder{
		re: newRangeEncoder(),
		lc: lc, lp: lp, pb: pb,
		litProbs:    make([]prob, 0x300<<(lc+lp)),
		alignProbs:  make([]prob, 1<<numAlignBits),
		posDecoders: make([]prob, 1+numFullDistances-endPosModelIndex),
		isMatch:     make([]prob, numStates<<numPosBitsMax),
		isRep:       make([]prob, numStates),
		isRepG0:     make([]prob, numStates),
		isRepG1:     make([]prob, numStates),
		isRepG2:     make([]prob, numStates),
		isRep0Long:  make([]prob, numStates<<numPosBitsMax),
		lenEnc:      newTestLenEncoder(),
		repLenEnc:   newTestLenEncoder(),
	}
	initProbs(e.litProbs)
	initProbs(e.alignProbs)
	initProbs(e.posDecoders)
	initProbs(e.isMatch)
	initProbs(e.isRep)
	initProbs(e.isRepG0)
	initProbs(e.isRepG1)
	initProbs(e.isRepG2)
	initProbs(e.isRep0Long)
	for i := range e.posSlot {
		e.posSlot[i] = make([]prob, 1<<6)
		initProbs(e.posSlot[i])
	}
	return e
}

func (e *testEncoder) posState() uint32 {
	return e.totalPos & (1<<e.pb - 1)
}

// literal encodes one literal byte and appends it to the history.
func (e *testEncoder) literal(b byte) {
	posState := e.posState()
	e.re.encodeBit(e.isMatch, int(e.state<<numPosBitsMax+posState), 0)

	prevByte := uint32(0)
	if len(e.hist) > 0 {
		prevByte = uint32(e.hist[len(e.hist)-1])
	}
	litState := (e.totalPos&(1<<e.lp-1))<<e.lc + prevByte>>(8-e.lc)
	probs := e.litProbs[0x300*litState:]

	matched := e.state >= 7
	var matchByte byte
	if matched {
		matchByte = e.hist[len(e.hist)-1-int(e.rep0)]
	}

	sym := uint32(1)
	for i := 7; i >= 0; i-- {
		bit := uint32(b>>uint(i)) & 1
		if matched {
			matchBit := uint32(matchByte>>7) & 1
			matchByte <<= 1
			e.re.encodeBit(probs, int((1+matchBit)<<8+sym), bit)
			if matchBit != bit {
				matched = false
			}
		} else {
			e.re.encodeBit(probs, int(sym), bit)
		}
		sym = sym<<1 | bit
	}

	e.state = stateUpdateLiteral(e.state)
	e.hist = append(e.hist, b)
	e.totalPos++
}

// matchPacket encodes a match packet with the given byte distance and
// length without emitting the copied bytes. Tests use it directly to
// construct streams the decoder must reject.
func (e *testEncoder) matchPacket(dist, length uint32) {
	posState := e.posState()
	e.re.encodeBit(e.isMatch, int(e.state<<numPosBitsMax+posState), 1)
	e.re.encodeBit(e.isRep, int(e.state), 0)

	e.rep3, e.rep2, e.rep1 = e.rep2, e.rep1, e.rep0
	e.rep0 = dist - 1

	l := length - matchMinLen
	e.lenEnc.encode(e.re, l, posState)
	e.state = stateUpdateMatch(e.state)

	lenState := l
	if lenState > numLenToPosStates-1 {
		lenState = numLenToPosStates - 1
	}
	e.distance(e.rep0, lenState)
}

// match encodes a match packet and emits the copied bytes.
func (e *testEncoder) match(dist, length uint32) {
	e.matchPacket(dist, length)
	e.emitCopy(dist, length)
}

// distance encodes the on-the-wire distance value (byte distance minus
// one) through the slot, model and align stages.
func (e *testEncoder) distance(d, lenState uint32) {
	var slot uint32
	if d < 4 {
		slot = d
	} else {
		n := uint32(bits.Len32(d))
		slot = (n-1)*2 + d>>(n-2)&1
	}
	encodeTree(e.re, e.posSlot[lenState], 6, slot)
	if slot < 4 {
		return
	}

	numDirectBits := int(slot>>1 - 1)
	base := (2 | slot&1) << numDirectBits
	rest := d - base
	if slot < endPosModelIndex {
		encodeTreeReverse(e.re, e.posDecoders[base-slot:], numDirectBits, rest)
	} else {
		e.re.encodeDirectBits(rest>>numAlignBits, numDirectBits-numAlignBits)
		encodeTreeReverse(e.re, e.alignProbs, numAlignBits, rest&(1<<numAlignBits-1))
	}
}

// rep encodes a repeated-distance match selecting queue slot idx
// (0 = most recent) and emits length bytes.
func (e *testEncoder) rep(idx int, length uint32) {
	posState := e.posState()
	e.re.encodeBit(e.isMatch, int(e.state<<numPosBitsMax+posState), 1)
	e.re.encodeBit(e.isRep, int(e.state), 1)

	switch idx {
	case 0:
		e.re.encodeBit(e.isRepG0, int(e.state), 0)
		e.re.encodeBit(e.isRep0Long, int(e.state<<numPosBitsMax+posState), 1)
	case 1:
		e.re.encodeBit(e.isRepG0, int(e.state), 1)
		e.re.encodeBit(e.isRepG1, int(e.state), 0)
		d := e.rep1
		e.rep1 = e.rep0
		e.rep0 = d
	case 2:
		e.re.encodeBit(e.isRepG0, int(e.state), 1)
		e.re.encodeBit(e.isRepG1, int(e.state), 1)
		e.re.encodeBit(e.isRepG2, int(e.state), 0)
		d := e.rep2
		e.rep2 = e.rep1
		e.rep1 = e.rep0
		e.rep0 = d
	case 3:
		e.re.encodeBit(e.isRepG0, int(e.state), 1)
		e.re.encodeBit(e.isRepG1, int(e.state), 1)
		e.re.encodeBit(e.isRepG2, int(e.state), 1)
		d := e.rep3
		e.rep3 = e.rep2
		e.rep2 = e.rep1
		e.rep1 = e.rep0
		e.rep0 = d
	}

	e.repLenEnc.encode(e.re, length-matchMinLen, posState)
	e.state = stateUpdateRep(e.state)
	e.emitCopy(e.rep0+1, length)
}

// repPacket encodes the selection prefix of a rep packet and nothing
// else, for streams the decoder rejects before the length decode.
func (e *testEncoder) repPacket() {
	posState := e.posState()
	e.re.encodeBit(e.isMatch, int(e.state<<numPosBitsMax+posState), 1)
	e.re.encodeBit(e.isRep, int(e.state), 1)
}

// shortRep encodes a length-1 repeat of the most recent distance.
func (e *testEncoder) shortRep() {
	posState := e.posState()
	e.re.encodeBit(e.isMatch, int(e.state<<numPosBitsMax+posState), 1)
	e.re.encodeBit(e.isRep, int(e.state), 1)
	e.re.encodeBit(e.isRepG0, int(e.state), 0)
	e.re.encodeBit(e.isRep0Long, int(e.state<<numPosBitsMax+posState), 0)
	e.state = stateUpdateShortRep(e.state)
	e.emitCopy(e.rep0+1, 1)
}

// endMarker encodes the terminating match packet: distance 0xFFFFFFFF.
func (e *testEncoder) endMarker() {
	posState := e.posState()
	e.re.encodeBit(e.isMatch, int(e.state<<numPosBitsMax+posState), 1)
	e.re.encodeBit(e.isRep, int(e.state), 0)
	e.lenEnc.encode(e.re, 0, posState)
	e.state = stateUpdateMatch(e.state)
	e.distance(endMarkerDist, 0)
}

func (e *testEncoder) emitCopy(dist, length uint32) {
	for ; length > 0; length-- {
		e.hist = append(e.hist, e.hist[len(e.hist)-int(dist)])
		e.totalPos++
	}
}

// payload flushes the range encoder and returns the coded payload,
// beginning with the mandatory zero byte.
func (e *testEncoder) payload() []byte {
	e.re.flush()
	return e.re.out
}

// header builds the 13-byte file header. size < 0 declares the unpacked
// size unknown.
func (e *testEncoder) header(dictSize uint32, size int64) []byte {
	h := make([]byte, HeaderSize)
	h[0] = byte((e.pb*5+e.lp)*9 + e.lc)
	binary.LittleEndian.PutUint32(h[1:5], dictSize)
	if size < 0 {
		for i := 5; i < 13; i++ {
			h[i] = 0xFF
		}
	} else {
		binary.LittleEndian.PutUint64(h[5:13], uint64(size))
	}
	return h
}

// file returns header plus payload as one stream.
func (e *testEncoder) file(dictSize uint32, size int64) []byte {
	return append(e.header(dictSize, size), e.payload()...)
}
