package lzma

import "github.com/deepteams/lzmaviz/internal/pool"

// window is the sliding dictionary of decoded bytes. It is a circular
// buffer of the dictionary size; every byte written is also appended to a
// linear output buffer that the caller ultimately receives.
type window struct {
	buf    []byte
	pos    uint32
	size   uint32
	isFull bool

	// totalPos counts every byte ever written; its low bits select
	// position-dependent probability sub-tables.
	totalPos uint32

	out []byte
}

// create (re)initialises the window with a pooled dictionary buffer.
// The buffer contents are left stale: positions that were never written
// are unreachable through a checked distance.
func (w *window) create(dictSize uint32) {
	if w.buf != nil {
		pool.Put(w.buf)
	}
	w.buf = pool.Get(int(dictSize))
	w.pos = 0
	w.size = dictSize
	w.isFull = false
	w.totalPos = 0
	w.out = nil
}

// release returns the dictionary buffer to the pool. The linear output
// buffer is not touched; ownership of it moves to the caller.
func (w *window) release() {
	if w.buf != nil {
		pool.Put(w.buf)
		w.buf = nil
	}
}

func (w *window) putByte(b byte) {
	w.totalPos++
	w.buf[w.pos] = b
	w.pos++
	if w.pos == w.size {
		w.pos = 0
		w.isFull = true
	}
	w.out = append(w.out, b)
}

// getByte returns the byte dist positions back from the write cursor.
// dist must have been validated with checkDistance.
func (w *window) getByte(dist uint32) byte {
	if dist <= w.pos {
		return w.buf[w.pos-dist]
	}
	return w.buf[w.size-dist+w.pos]
}

// copyMatch re-emits length bytes starting dist back. The read must
// precede each write: for dist < length the copy legitimately re-reads
// bytes produced earlier in the same match.
func (w *window) copyMatch(dist uint32, length uint32) {
	for ; length > 0; length-- {
		w.putByte(w.getByte(dist))
	}
}

// checkDistance reports whether a byte dist positions back has been
// written.
func (w *window) checkDistance(dist uint32) bool {
	return dist <= w.pos || w.isFull
}

func (w *window) isEmpty() bool {
	return w.pos == 0 && !w.isFull
}
