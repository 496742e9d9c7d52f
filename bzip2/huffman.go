// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import "container/heap"

// huffmanTable is one of a block's 2-6 canonical Huffman code tables: a
// per-symbol code length (used to pick the cheapest table for a segment
// during refinement, and to serialise the table itself) and the matching
// canonical codeword.
type huffmanTable struct {
	lengths []byte
	codes   []uint32
}

// huffmanCoder builds and serialises a block's multi-table Huffman
// encoding of its MTF+RLE2 symbol stream. bzip2 splits the stream into
// fixed 50-symbol segments and assigns each segment to whichever of 2-6
// alternative code tables would encode it most cheaply, refining the
// assignment over a handful of passes; this adapts the coding to local
// shifts in the symbol distribution within a single block.
type huffmanCoder struct{}

const segmentSize = numBlockSyms

// numTablesFor chooses how many alternative code tables to build, as a
// function of the MTF alphabet size.
func numTablesFor(numSyms int) int {
	switch {
	case numSyms >= 2400:
		return maxNumTrees
	case numSyms >= 1200:
		return 5
	case numSyms >= 600:
		return 4
	case numSyms >= 200:
		return 3
	default:
		return minNumTrees
	}
}

// build runs the four-pass refinement loop and returns the resulting
// tables along with the per-segment table selectors chosen on the final
// pass.
func (huffmanCoder) build(syms []uint16, numSyms int, freqs [maxNumSyms]uint32) (tables []huffmanTable, selectors []byte, err error) {
	if numSyms < 3 {
		return nil, nil, Error("block has fewer than 3 distinct MTF symbols")
	}
	numTables := numTablesFor(numSyms)

	tables = initialTables(freqs[:numSyms], numTables)

	numSegs := (len(syms) + segmentSize - 1) / segmentSize
	selectors = make([]byte, 0, numSegs)

	var tabFreqs [maxNumTrees][maxNumSyms]uint32
	for pass := 0; pass < 4; pass++ {
		for i := range tabFreqs[:numTables] {
			tabFreqs[i] = [maxNumSyms]uint32{}
		}
		final := pass == 3

		for start := 0; start < len(syms); start += segmentSize {
			end := start + segmentSize
			if end > len(syms) {
				end = len(syms)
			}
			seg := syms[start:end]

			best := 0
			bestCost := segmentCost(tables[0].lengths, seg)
			for t := 1; t < numTables; t++ {
				cost := segmentCost(tables[t].lengths, seg)
				if cost < bestCost {
					bestCost, best = cost, t
				}
			}
			for _, s := range seg {
				tabFreqs[best][s]++
			}
			if final {
				selectors = append(selectors, byte(best))
			}
		}

		for t := 0; t < numTables; t++ {
			lengths, buildErr := lengthLimitedLengths(tabFreqs[t][:numSyms])
			if buildErr != nil {
				return nil, nil, buildErr
			}
			tables[t].lengths = lengths
		}
	}

	for t := range tables {
		tables[t].codes = canonicalCodes(tables[t].lengths)
	}

	return tables, selectors, nil
}

func segmentCost(lengths []byte, seg []uint16) uint32 {
	var cost uint32
	for _, s := range seg {
		cost += uint32(lengths[s])
	}
	return cost
}

// initialTables partitions [0, numSyms) into numTables contiguous spans
// whose summed frequency is roughly total/numTables each, shrinking odd
// internal spans by one symbol at their right edge to offset a systematic
// greediness bias in the partition walk. Lengths are seeded to 15 inside
// a table's span and 0 outside, purely to drive the first refinement
// pass's cost comparison.
func initialTables(freqs []uint32, numTables int) []huffmanTable {
	numSyms := len(freqs)
	tables := make([]huffmanTable, numTables)
	for t := range tables {
		tables[t].lengths = make([]byte, numSyms)
	}

	var remaining uint32
	for _, f := range freqs {
		remaining += f
	}

	gs := 0
	for part := numTables; part >= 1; part-- {
		target := remaining / uint32(part)
		ge := gs - 1
		var acc uint32
		for acc < target && ge < numSyms-1 {
			ge++
			acc += freqs[ge]
		}
		if ge > gs && part != numTables && part != 1 && (numTables-part)%2 == 1 {
			acc -= freqs[ge]
			ge--
		}

		idx := numTables - part
		for s := gs; s <= ge; s++ {
			tables[idx].lengths[s] = 15
		}

		gs = ge + 1
		remaining -= acc
	}
	return tables
}

// huffNode is an entry in the length-limited construction's priority
// queue: either a leaf (sym >= 0) or an internal node combining two
// children.
type huffNode struct {
	freq  uint32
	depth uint32
	sym   int
	left  *huffNode
	right *huffNode
}

type nodeHeap []*huffNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].depth < h[j].depth
}
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*huffNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// lengthLimitedLengths builds a Huffman tree over freqs (indexed by
// symbol) via a (frequency, subtree_depth)-keyed min-heap, retrying with
// progressively coarser quantisation if the resulting maximum code length
// exceeds the 17-bit format limit.
func lengthLimitedLengths(freqs []uint32) ([]byte, error) {
	numSyms := len(freqs)
	for scaling := uint32(1); scaling <= 1<<20; scaling *= 2 {
		h := make(nodeHeap, numSyms)
		for sym, f := range freqs {
			h[sym] = &huffNode{freq: f/scaling + 1, sym: sym}
		}
		heap.Init(&h)

		for h.Len() > 1 {
			a := heap.Pop(&h).(*huffNode)
			b := heap.Pop(&h).(*huffNode)
			depth := a.depth
			if b.depth > depth {
				depth = b.depth
			}
			heap.Push(&h, &huffNode{
				freq:  a.freq + b.freq,
				depth: depth + 1,
				sym:   -1,
				left:  a,
				right: b,
			})
		}

		lengths := make([]byte, numSyms)
		maxLen := 0
		var walk func(n *huffNode, depth int)
		walk = func(n *huffNode, depth int) {
			if n.sym >= 0 {
				lengths[n.sym] = byte(depth)
				if depth > maxLen {
					maxLen = depth
				}
				return
			}
			walk(n.left, depth+1)
			walk(n.right, depth+1)
		}
		if numSyms == 1 {
			lengths[0] = 1
		} else {
			walk(h[0], 0)
		}

		if maxLen <= maxCodeLen {
			return lengths, nil
		}
	}
	return nil, Error("huffman: unable to limit code length to the format maximum")
}

// canonicalCodes assigns the unique bzip2-canonical codeword to each
// symbol given its code length: symbols are ordered by length ascending
// then symbol index ascending, starting from code 0 and incrementing by
// one within a length, shifting left by one per unit increase in length.
func canonicalCodes(lengths []byte) []uint32 {
	numSyms := len(lengths)
	// Lengths never exceed maxCodeLen, so a counting sort avoids an
	// O(n log n) sort.Slice on the hot path.
	var buckets [maxCodeLen + 1][]int
	for sym, l := range lengths {
		buckets[l] = append(buckets[l], sym)
	}

	codes := make([]uint32, numSyms)
	code := uint32(0)
	prevLen := byte(0)
	first := true
	for l := byte(1); l <= maxCodeLen; l++ {
		for _, sym := range buckets[l] {
			if first {
				prevLen = l
				first = false
			} else if l > prevLen {
				code <<= l - prevLen
				prevLen = l
			}
			codes[sym] = code
			code++
		}
	}
	return codes
}

// encodeSelectorList MTF-encodes the per-segment table selectors: a
// running list starts as [0, 1, ..., numTables-1]; each selector is coded
// as its current index in the list (that many 1 bits, then a terminating
// 0), after which it is bumped to the front of the list.
func encodeSelectorList(bw *bitWriter, selectors []byte, numTables int) error {
	list := make([]byte, numTables)
	for i := range list {
		list[i] = byte(i)
	}
	for _, s := range selectors {
		r := 0
		for list[r] != s {
			r++
		}
		for i := 0; i < r; i++ {
			if err := bw.writeBits(1, 1); err != nil {
				return err
			}
		}
		if err := bw.writeBits(0, 1); err != nil {
			return err
		}
		copy(list[1:r+1], list[0:r])
		list[0] = s
	}
	return nil
}

// encodeTableLengths writes one table's code lengths as a 5-bit starting
// value followed by a unary delta per subsequent symbol: 0 for no change,
// repeated 10 to increment, repeated 11 to decrement, each run closed by
// a terminating 0.
func encodeTableLengths(bw *bitWriter, lengths []byte) error {
	cur := int(lengths[0])
	if err := bw.writeBits(uint32(cur), 5); err != nil {
		return err
	}
	for _, l := range lengths[1:] {
		target := int(l)
		for cur < target {
			if err := bw.writeBits(0b10, 2); err != nil {
				return err
			}
			cur++
		}
		for cur > target {
			if err := bw.writeBits(0b11, 2); err != nil {
				return err
			}
			cur--
		}
		if err := bw.writeBits(0, 1); err != nil {
			return err
		}
	}
	return nil
}

// encodeBody emits the block's Huffman-coded symbol stream: the table
// for each 50-symbol segment is chosen by its selector, and every symbol
// is written as its table's canonical codeword.
func encodeBody(bw *bitWriter, syms []uint16, tables []huffmanTable, selectors []byte) error {
	for i, s := range syms {
		t := &tables[selectors[i/segmentSize]]
		if err := bw.writeBitsU32(t.codes[s], uint(t.lengths[s])); err != nil {
			return err
		}
	}
	return nil
}
