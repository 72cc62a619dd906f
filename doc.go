// Package lzmaviz decodes classic LZMA (.lzma) streams while measuring,
// for every decoded byte, the information cost the range coder paid to
// produce it.
//
// The decoder is a faithful Go implementation of Igor Pavlov's reference
// LZMA decoder. On top of the bit-exact decode it maintains a perplexity
// side channel: each adaptive bit contributes -log2 of its modelled
// probability, and the accumulated cost of a packet is spread uniformly
// over the bytes the packet emits. The result is a per-byte heat trace
// that shows where a compressed stream spends its bits.
//
// Basic usage:
//
//	res, err := lzmaviz.Decode(reader)
//	// res.Data     — the decoded bytes
//	// res.Heat     — bits of information per byte
//	// res.Literals — true where the byte came from a literal packet
//
// The render subpackage turns a Result into a coloured terminal view;
// the lzmaviz command wraps both.
package lzmaviz
