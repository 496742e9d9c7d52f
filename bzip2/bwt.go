// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import "github.com/jgbyrne/banzai/bzip2/internal/sais"

// burrowsWheelerTransform computes the cyclic Burrows-Wheeler Transform of
// a single block. Unlike the textual BWT, bzip2 treats the block as a
// cyclic string: rotation i is the block read starting at offset i and
// wrapping around to the start, rather than a suffix padded with an
// end-of-string sentinel.
type burrowsWheelerTransform struct{}

// encode returns the BWT of buf along with the origin pointer (the row,
// among the sorted cyclic rotations, that reproduces buf when read off
// starting at that row) and the set of byte values present in buf.
func (burrowsWheelerTransform) encode(buf []byte) (bwt []byte, ptr int, hasByte [256]bool) {
	res := sais.ComputeBWT(buf)
	return res.BWT, res.Ptr, res.HasByte
}
