// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"math/rand"
	"testing"
)

func TestNumTablesFor(t *testing.T) {
	var vectors = []struct {
		numSyms int
		want    int
	}{
		{3, 2}, {199, 2}, {200, 3}, {599, 3},
		{600, 4}, {1199, 4}, {1200, 5}, {2399, 5},
		{2400, 6}, {10000, 6},
	}
	for _, v := range vectors {
		if got := numTablesFor(v.numSyms); got != v.want {
			t.Errorf("numTablesFor(%d) = %d, want %d", v.numSyms, got, v.want)
		}
	}
}

func TestCanonicalCodesPrefixFree(t *testing.T) {
	lengths := []byte{2, 2, 3, 3, 3, 4, 4}
	codes := canonicalCodes(lengths)

	for i := range lengths {
		for j := range lengths {
			if i == j {
				continue
			}
			if codewordIsPrefixOf(codes[i], lengths[i], codes[j], lengths[j]) {
				t.Errorf("code for symbol %d (len %d) is a prefix of symbol %d (len %d)", i, lengths[i], j, lengths[j])
			}
		}
	}
}

func codewordIsPrefixOf(aCode uint32, aLen byte, bCode uint32, bLen byte) bool {
	if aLen >= bLen {
		return false
	}
	return bCode>>(bLen-aLen) == aCode
}

func TestLengthLimitedLengthsRespectsMax(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	freqs := make([]uint32, 50)
	// A heavily skewed distribution is the case most likely to blow past
	// the 17-bit cap without the rescaling retry.
	for i := range freqs {
		if i == 0 {
			freqs[i] = 1_000_000
		} else {
			freqs[i] = uint32(1 + rng.Intn(3))
		}
	}

	lengths, err := lengthLimitedLengths(freqs)
	if err != nil {
		t.Fatalf("lengthLimitedLengths: %v", err)
	}
	var maxLen byte
	for _, l := range lengths {
		if l == 0 {
			t.Fatalf("symbol assigned zero code length")
		}
		if l > maxLen {
			maxLen = l
		}
	}
	if maxLen > maxCodeLen {
		t.Errorf("max code length %d exceeds limit %d", maxLen, maxCodeLen)
	}
}

func TestHuffmanCoderBuild(t *testing.T) {
	var xform moveToFront
	input := make([]byte, 5000)
	rng := rand.New(rand.NewSource(2))
	for i := range input {
		input[i] = byte(rng.Intn(200))
	}
	var hasByte [256]bool
	for _, b := range input {
		hasByte[b] = true
	}
	syms, numSyms, freqs := xform.encode(input, hasByte)

	var coder huffmanCoder
	tables, selectors, err := coder.build(syms, numSyms, freqs)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	wantSelectors := (len(syms) + segmentSize - 1) / segmentSize
	if len(selectors) != wantSelectors {
		t.Errorf("selector count mismatch: got %d, want %d", len(selectors), wantSelectors)
	}

	for ti, tbl := range tables {
		var maxLen byte
		for _, l := range tbl.lengths {
			if l > maxLen {
				maxLen = l
			}
		}
		if maxLen > maxCodeLen {
			t.Errorf("table %d: max length %d exceeds limit", ti, maxLen)
		}
	}

	for _, s := range selectors {
		if int(s) >= len(tables) {
			t.Errorf("selector %d out of range for %d tables", s, len(tables))
		}
	}
}
