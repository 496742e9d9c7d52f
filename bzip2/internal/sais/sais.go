// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package sais computes the cyclic Burrows-Wheeler Transform of a byte
// slice using Suffix Array by Induced Sorting (SA-IS), adapted for
// wrap-around (cyclic) suffix sorting the way bzip2 requires.
//
// The suffix array lives in a single []int32 buffer the length of the
// doubled input (twice the block length). Slots hold three kinds of value: a non-negative
// finalised suffix index, a bit-complemented (bitwise NOT) index marking a
// slot that still needs to be revisited during induction, and the
// sentinel math.MaxInt32 marking an empty slot. This mirrors the in-band
// sign-flag trick of the reference SA-IS implementations, which lets the
// induction passes share one array instead of a parallel status bitmap.
package sais

import (
	"math"
	"sort"
)

// Word is the alphabet type SA-IS sorts over: raw input bytes at the top
// level, and reduced lexical names (always small non-negative integers)
// one level down. Both instantiations share the same induction code.
type Word interface {
	~uint8 | ~int32
}

// buckets tracks, for each symbol in sigma (the sorted list of symbols
// present in data), how many times it occurs and a cursor used as either
// the head or tail pointer into that symbol's region of the suffix array.
type buckets[W Word] struct {
	sigma []W
	sizes []uint32
	bptrs []uint32
}

func (b *buckets[W]) setPtrsToBucketHeads() {
	var acc uint32
	for _, w := range b.sigma {
		b.bptrs[w] = acc
		acc += b.sizes[w]
	}
}

func (b *buckets[W]) setPtrsToBucketTails() {
	var acc uint32
	for _, w := range b.sigma {
		acc += b.sizes[w]
		b.bptrs[w] = acc - 1
	}
}

func (b *buckets[W]) layout(data []W) {
	for _, c := range data {
		b.sizes[c]++
		if b.sizes[c] == 1 {
			b.sigma = append(b.sigma, c)
		}
	}
	sort.Slice(b.sigma, func(i, j int) bool { return b.sigma[i] < b.sigma[j] })
}

func buildBuckets[W Word](data []W, sigmaSize int) *buckets[W] {
	b := &buckets[W]{
		sigma: make([]W, 0, sigmaSize),
		sizes: make([]uint32, sigmaSize),
		bptrs: make([]uint32, sigmaSize),
	}
	b.layout(data)
	return b
}

func (b *buckets[W]) rebuild(data []W, sigmaSize int) {
	if cap(b.sigma) < sigmaSize {
		b.sigma = make([]W, 0, sigmaSize)
	} else {
		b.sigma = b.sigma[:0]
	}
	b.sizes = make([]uint32, sigmaSize)
	b.bptrs = make([]uint32, sigmaSize)
	b.layout(data)
}

func tailPush[W Word](sa []int32, b *buckets[W], w W, i int32) {
	bp := &b.bptrs[w]
	sa[*bp] = i
	*bp-- // wraps on the final insertion; the slot is never read again
}

func headPush[W Word](sa []int32, b *buckets[W], w W, i int32) {
	bp := &b.bptrs[w]
	sa[*bp] = i
	*bp++
}

// insertLMSSubstrings walks data right-to-left classifying each position
// as S-type or L-type by the standard rule (S-type if data[i] < data[i+1],
// or equal and the next position is S-type; position n-1 is a phantom
// S-type sentinel), tail-pushing every LMS position (an S-type position
// whose predecessor is L-type) into its character's bucket. If onByte is
// non-nil it is invoked once per position visited, used by the top-level
// caller to build the block's presence map in the same pass.
func insertLMSSubstrings[W Word](data []W, sa []int32, b *buckets[W], onByte func(W)) (lmsCount int32) {
	n := int32(len(data))
	b.setPtrsToBucketTails()

	iSub := n
	isS := false // position n-1 is the phantom sentinel, classified S below
	wSub := data[n-1]
	if onByte != nil {
		onByte(wSub)
	}
	isS = true

	for p := n - 2; p >= 0; p-- {
		w := data[p]
		if onByte != nil {
			onByte(w)
		}
		iSub--
		if isS {
			if w > wSub {
				tailPush(sa, b, wSub, iSub)
				lmsCount++
				isS = false
			}
		} else {
			if w < wSub {
				isS = true
			}
		}
		wSub = w
	}
	return lmsCount
}

// inducedSortFwd induces L-type positions from whatever is already
// sorted in sa, scanning left to right. If wipe is true, finalised slots
// are zeroed (used mid-algorithm, before the position is needed again);
// otherwise they are left bit-complemented for the backward pass to
// un-flip.
func inducedSortFwd[W Word](data []W, sa []int32, b *buckets[W], wipe bool) {
	n := int32(len(sa))
	b.setPtrsToBucketHeads()

	iSup, iSup2 := n-1, n-2
	pushIdx := iSup
	if data[iSup2] < data[iSup] {
		pushIdx = ^iSup
	}
	headPush(sa, b, data[iSup], pushIdx)

	for p := int32(0); p < n; p++ {
		i := sa[p]
		switch {
		case i > 0:
			iSup, iSup2 := i-1, i-2
			pushIdx := iSup
			if iSup2 < 0 || data[iSup2] < data[iSup] {
				pushIdx = ^iSup
			}
			headPush(sa, b, data[iSup], pushIdx)
			if wipe {
				sa[p] = 0
			} else {
				sa[p] = ^sa[p]
			}
		case i < 0:
			sa[p] = ^sa[p]
		}
	}
}

// inducedSortBck induces S-type positions from the result of
// inducedSortFwd, scanning right to left.
func inducedSortBck[W Word](data []W, sa []int32, b *buckets[W], wipe, unflip bool) {
	n := int32(len(data))
	b.setPtrsToBucketTails()

	for p := n - 1; p >= 0; p-- {
		i := sa[p]
		switch {
		case i > 0:
			iSup, iSup2 := i-1, i-2
			pushIdx := iSup
			if iSup2 < 0 || data[iSup2] > data[iSup] {
				pushIdx = ^iSup
			}
			tailPush(sa, b, data[iSup], pushIdx)
			if wipe {
				sa[p] = 0
			}
		case i < 0:
			if unflip {
				sa[p] = ^sa[p]
			}
		}
	}
}

// encodeReduced compacts the (now sorted, bit-complemented) LMS suffixes
// at sa[0:lmsCount], computes each LMS substring's length into a scratch
// lookup slot, assigns lexical names by comparing adjacent substrings,
// and writes the resulting reduced string (one name per LMS suffix, in
// original left-to-right order) into the tail of sa.
func encodeReduced[W Word](data []W, sa []int32) (lmsCount, newSigmaSize int) {
	n := int32(len(data))
	lookupIndex := func(lmsCount int32, lmsIdx int32) int32 {
		return lmsCount + (lmsIdx >> 1)
	}

	var count int32
	for p := int32(0); p < n; p++ {
		if sa[p] < ^int32(0) {
			sa[count] = ^sa[p]
			count++
		}
		if p >= count {
			sa[p] = math.MaxInt32
		}
	}

	// Determine LMS substring lengths via a right-to-left walk, writing
	// each length into the lookup slot derived from its position.
	iSub := n
	isS := false
	wSub := data[n-1]
	isS = true
	unseen := count
	lastLMS := iSub - 1

	for p := n - 2; p >= 0 && unseen > 0; p-- {
		w := data[p]
		iSub--
		if isS {
			if w > wSub {
				sa[lookupIndex(count, iSub)] = (1 + lastLMS) - iSub
				lastLMS = iSub
				unseen--
				isS = false
			}
		} else {
			if w < wSub {
				isS = true
			}
		}
		wSub = w
	}

	// Assign lexical names to the sorted LMS substrings, in place.
	var rword int32
	var prevLMS, prevLen int32 = 0, 0
	for i := int32(0); i < count; i++ {
		curLMS := sa[i]
		lookup := lookupIndex(count, curLMS)
		curLen := sa[lookup]

		eq := false
		if prevLMS != 0 && prevLen == curLen && prevLen+curLen < n {
			eq = substringsEqual(data, prevLMS, curLMS, curLen)
		}
		if !eq {
			if prevLMS != 0 {
				rword++
			}
			prevLMS, prevLen = curLMS, curLen
		}
		sa[lookup] = rword
	}

	// Compact the lexical names into the tail of sa, forming the reduced
	// string for the recursive subproblem.
	writePtr := n - 1
	for p := n - 1; p >= count; p-- {
		if sa[p] != math.MaxInt32 {
			sa[writePtr] = sa[p]
			writePtr--
		}
	}

	return int(count), int(rword) + 1
}

func substringsEqual[W Word](data []W, a, b, length int32) bool {
	for k := int32(0); k < length; k++ {
		if data[a+k] != data[b+k] {
			return false
		}
	}
	return true
}

// decodeReduced overwrites the solved reduced suffix array (a permutation
// of [0, lmsCount) stored at sa[0:lmsCount]) with the corresponding
// original LMS indices, restoring sorted order.
func decodeReduced[W Word](data []W, sa []int32, lmsCount int32) {
	n := int32(len(data))

	writePtr := n - 1
	iSub := n
	isS := false
	wSub := data[n-1]
	isS = true

	for p := n - 2; p >= 0; p-- {
		w := data[p]
		iSub--
		if isS {
			if w > wSub {
				sa[writePtr] = iSub
				writePtr--
				isS = false
			}
		} else {
			if w < wSub {
				isS = true
			}
		}
		wSub = w
	}

	for p := int32(0); p < lmsCount; p++ {
		sa[p] = sa[n-lmsCount+sa[p]]
	}
	for p := lmsCount; p < n; p++ {
		sa[p] = 0
	}
}

// split carves the tail n elements off sa to serve as the reduced
// problem's data (reusing the same backing array, matching the original
// algorithm's in-place subdivision). The reduced problem's own suffix
// array must have the same length as its data (every induction pass
// sizes its scan off len(sa)), so rsa is truncated to the leading n
// elements of whatever remains; n <= lms_count <= len(sa)/2 guarantees
// that region never overlaps rdata.
func split(sa []int32, n int32) (rsa, rdata []int32) {
	l := int32(len(sa))
	rdata = sa[l-n : l]
	rsa = sa[:n]
	for i := range rsa {
		rsa[i] = 0
	}
	return rsa, rdata
}

// saisReduced solves the reduced subproblem produced by encodeReduced.
// The reduced alphabet is always a set of small non-negative lexical
// names, so this instantiates the shared induction code at W=int32.
func saisReduced(sigmaSize int, data []int32, sa []int32, b *buckets[int32]) {
	n := int32(len(data))
	if n <= 1 {
		return
	}

	lmsCount := insertLMSSubstrings(data, sa, b, nil)
	if lmsCount <= 1 {
		inducedSortFwd(data, sa, b, false)
		inducedSortBck(data, sa, b, false, true)
		return
	}

	inducedSortFwd(data, sa, b, true)
	inducedSortBck(data, sa, b, true, false)

	lmsCount2, newSigmaSize := encodeReduced(data, sa)

	if newSigmaSize != lmsCount2 {
		rsa, rdata := split(sa, int32(lmsCount2))
		rb := buildBuckets(rdata, newSigmaSize)
		saisReduced(newSigmaSize, rdata, rsa, rb)
	} else {
		for p := 0; p < lmsCount2; p++ {
			wRank := sa[n-int32(lmsCount2)+int32(p)]
			sa[wRank] = int32(p)
		}
	}

	decodeReduced(data, sa, int32(lmsCount2))

	b.rebuild(data, sigmaSize)
	b.setPtrsToBucketTails()
	for p := int32(lmsCount2) - 1; p >= 0; p-- {
		lmsIdx := sa[p]
		sa[p] = 0
		tailPush(sa, b, data[lmsIdx], lmsIdx)
	}

	inducedSortFwd(data, sa, b, false)
	inducedSortBck(data, sa, b, false, true)
}

// Result holds the output of ComputeBWT.
type Result struct {
	BWT     []byte
	Ptr     int
	HasByte [256]bool
}

// ComputeBWT computes the bzip2-style cyclic Burrows-Wheeler Transform of
// input: the input is conceptually a cyclic string (wrap-around
// rotations), implemented by running SA-IS over data∥data and reading off
// the BWT column from the half belonging to the original copy.
func ComputeBWT(input []byte) Result {
	var res Result
	n := int32(len(input))

	switch n {
	case 0:
		res.Ptr = -1
		return res
	case 1:
		res.BWT = append([]byte(nil), input...)
		res.HasByte[input[0]] = true
		res.Ptr = 0
		return res
	}

	// n < 2^30 is guaranteed by the 900KB block cap; this keeps the
	// doubled length and all sign-flip arithmetic within int32 range.
	if n >= (math.MaxInt32/4)-1 {
		res.Ptr = -1
		return res
	}

	bufN := 2 * n
	data := make([]byte, bufN)
	copy(data, input)
	copy(data[n:], input)

	sa := make([]int32, bufN)
	b := buildBuckets(data, 256)

	lmsCount := insertLMSSubstrings(data, sa, b, func(w byte) { res.HasByte[w] = true })

	if lmsCount > 1 {
		inducedSortFwd(data, sa, b, true)
		inducedSortBck(data, sa, b, true, false)

		lmsCount2, newSigmaSize := encodeReduced(data, sa)

		if newSigmaSize != lmsCount2 {
			rsa, rdata := split(sa, int32(lmsCount2))
			rb := buildBuckets(rdata, newSigmaSize)
			saisReduced(newSigmaSize, rdata, rsa, rb)
		} else {
			for p := 0; p < lmsCount2; p++ {
				wRank := sa[bufN-int32(lmsCount2)+int32(p)]
				sa[wRank] = int32(p)
			}
		}

		decodeReduced(data, sa, int32(lmsCount2))

		b.setPtrsToBucketTails()
		for p := int32(lmsCount2) - 1; p >= 0; p-- {
			lmsIdx := sa[p]
			sa[p] = 0
			tailPush(sa, b, data[lmsIdx], lmsIdx)
		}
	}

	// Induce L-type suffixes from the sorted LMS suffixes, recording the
	// BWT character (or the 256 sentinel at the wrap-around origin) as we
	// go, complemented so the backward pass can tell it apart from a
	// pending index.
	b.setPtrsToBucketHeads()
	iSup, iSup2 := bufN-1, bufN-2
	pushIdx := iSup
	if data[iSup2] < data[iSup] {
		pushIdx = ^iSup
	}
	headPush(sa, b, data[iSup], pushIdx)

	for p := int32(0); p < bufN; p++ {
		i := sa[p]
		if i > 0 {
			iSup, iSup2 := i-1, i-2
			if i < n {
				sa[p] = ^int32(data[iSup])
			} else {
				sa[p] = ^int32(256)
			}
			pushIdx := iSup
			if iSup2 < 0 || data[iSup2] < data[iSup] {
				pushIdx = ^iSup
			}
			headPush(sa, b, data[iSup], pushIdx)
		} else if i < 0 {
			sa[p] = ^sa[p]
		}
	}

	// Induce S-type suffixes from the L-type suffixes just produced.
	b.setPtrsToBucketTails()
	startSuffix := int32(-1)

	for p := bufN - 1; p >= 0; p-- {
		i := sa[p]
		switch {
		case i > 0:
			iSup, iSup2 := i-1, i-2
			if i < n {
				sa[p] = int32(data[iSup])
			} else {
				sa[p] = 256
			}
			var pushIdx int32
			switch {
			case iSup2 < 0:
				pushIdx = 0
			case data[iSup2] > data[iSup]:
				if iSup < n {
					pushIdx = ^int32(data[iSup2])
				} else {
					pushIdx = ^int32(256)
				}
			default:
				pushIdx = iSup
			}
			tailPush(sa, b, data[iSup], pushIdx)
		case i < 0:
			sa[p] = ^sa[p]
		default:
			startSuffix = p
		}
	}

	out := make([]byte, n)
	startPtr := -1
	j := int32(0)
	for p := int32(0); p < bufN; p++ {
		if p == startSuffix {
			out[j] = input[n-1]
			startPtr = int(j)
			j++
			continue
		}
		if w := sa[p]; w < 256 {
			out[j] = byte(w)
			j++
		}
	}

	res.BWT = out
	res.Ptr = startPtr
	return res
}
