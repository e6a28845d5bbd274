// Package format holds the byte-level layout shared by the allocators:
// alignment rules and the little-endian words used for in-region headers
// and intrusive links.
package format

import "encoding/binary"

// WordSize is the width of every header field and link stored inside a region.
const WordSize = 8

// NilWord marks the end of an intrusive list.
const NilWord = ^uint64(0)

// PutWord writes v at b[off:off+8]. Out-of-range offsets panic.
func PutWord(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+WordSize], v)
}

// Word reads the little-endian uint64 at b[off:off+8].
func Word(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+WordSize])
}

// PutLink stores an offset link, encoding -1 as NilWord.
func PutLink(b []byte, off, next int) {
	if next < 0 {
		PutWord(b, off, NilWord)
		return
	}
	PutWord(b, off, uint64(next))
}

// Link reads an offset link written by PutLink. NilWord decodes to -1.
func Link(b []byte, off int) int {
	w := Word(b, off)
	if w == NilWord {
		return -1
	}
	return int(w)
}
