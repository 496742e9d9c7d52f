// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

// moveToFront implements the move-to-front transform and the second-stage
// run-length encoding (RLE2) that bzip2 layers on top of it. The alphabet
// is first shrunk to just the byte values present in the block (recorded
// by the preceding BWT stage as hasByte), so MTF ranks never exceed the
// number of distinct bytes actually seen.
//
// MTF ranks of zero are not emitted directly: runs of consecutive zero
// ranks are coded in bijective base-2 using two symbols, RUNA (a 0 bit)
// and RUNB (a 1 bit), least-significant bit first. A zero-run of length L
// is encoded from the bits of L+1 with its leading 1 bit dropped, which
// keeps the encoding bijective (no two run lengths share a code) and
// favours short runs.
type moveToFront struct{}

const (
	runA = 0
	runB = 1
)

// encode runs MTF+RLE2 over buf (the BWT output, excluding the origin
// row's implicit wrap), returning the resulting symbol stream, the size of
// the symbol alphabet in play (RUNA, RUNB, one symbol per nonzero MTF
// rank, and the end-of-block marker: the distinct byte count plus two),
// and the frequency of each symbol.
func (moveToFront) encode(buf []byte, hasByte [256]bool) (syms []uint16, numSyms int, freqs [maxNumSyms]uint32) {
	var names [256]uint8
	var numNames uint16
	for b, present := range hasByte {
		if present {
			names[b] = uint8(numNames)
			numNames++
		}
	}

	eob := numNames + 1
	out := make([]uint16, 0, len(buf)/3+2)

	emitRun := func(zeroCount int) {
		code := zeroCount + 1
		for code != 1 {
			bit := code & 1
			code >>= 1
			if bit == 0 {
				out = append(out, runA)
				freqs[runA]++
			} else {
				out = append(out, runB)
				freqs[runB]++
			}
		}
	}

	recency := make([]uint8, numNames)
	for i := range recency {
		recency[i] = uint8(i)
	}

	zeroCount := 0
	for _, b := range buf {
		name := names[b]
		primary := recency[0]

		if name == primary {
			zeroCount++
			continue
		}
		if zeroCount != 0 {
			emitRun(zeroCount)
			zeroCount = 0
		}

		n0 := primary
		recency[0] = name
		for i := 1; i < len(recency); i++ {
			n1 := recency[i]
			recency[i] = n0
			n0 = n1
			if name == n0 {
				out = append(out, uint16(i+1))
				freqs[i+1]++
				break
			}
		}
	}

	if zeroCount != 0 {
		emitRun(zeroCount)
	}

	out = append(out, eob)
	freqs[eob] = 1

	return out, int(numNames) + 2, freqs
}
