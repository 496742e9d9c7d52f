// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import "io"

// Writer holds the per-stream state threaded through block compression: the
// bit sink, the running stream checksum, and the four block-local
// transform stages (RLE1, BWT, MTF+RLE2, Huffman) reused (but never carrying state) across blocks.
type Writer struct {
	bw        *bitWriter
	level     int
	wroteHdr  bool
	streamCRC uint32

	rle  runLengthEncoding
	bwt  burrowsWheelerTransform
	mtf  moveToFront
	huff huffmanCoder
}

func newWriter(sink io.Writer, level int) *Writer {
	zw := &Writer{level: level, bw: new(bitWriter)}
	zw.bw.init(sink)
	return zw
}

// Encode reads r to exhaustion, compressing it into a bzip2 stream written
// to w at the given level (1..9, selecting a block size of
// 100_000*level-1 bytes), and returns the number of raw bytes consumed.
// An empty input produces a valid minimal stream (header plus footer) and
// returns consumed = 0.
func Encode(r io.Reader, w io.Writer, level int) (consumed int64, err error) {
	if level < BestSpeed || level > BestCompression {
		return 0, Error("invalid compression level")
	}

	zw := newWriter(w, level)
	zw.rle.init(r)

	for {
		rleBuf, blkCRC, n, ferr := zw.rle.nextBlock(level)
		if ferr != nil {
			return consumed, ferr
		}
		if len(rleBuf) == 0 {
			break
		}
		consumed += int64(n)

		if err = zw.writeStreamHeader(); err != nil {
			return consumed, err
		}
		if err = zw.compressBlock(rleBuf, blkCRC); err != nil {
			return consumed, err
		}
	}

	if err = zw.writeStreamHeader(); err != nil {
		return consumed, err
	}
	if err = zw.writeStreamFooter(); err != nil {
		return consumed, err
	}
	if err = zw.bw.close(); err != nil {
		return consumed, err
	}
	return consumed, nil
}

func (zw *Writer) writeStreamHeader() error {
	if zw.wroteHdr {
		return nil
	}
	if err := zw.bw.writeBytes([]byte(streamMagic)); err != nil {
		return err
	}
	if err := zw.bw.writeByte('0' + byte(zw.level)); err != nil {
		return err
	}
	zw.wroteHdr = true
	return nil
}

func (zw *Writer) writeStreamFooter() error {
	if err := writeMagic48(zw.bw, endMagic); err != nil {
		return err
	}
	return zw.bw.writeBitsU32(zw.streamCRC, 32)
}

// compressBlock runs a single RLE1-encoded block through BWT, MTF+RLE2,
// and multi-table Huffman coding, and frames the result per the per-block
// layout. A panic carrying a plain error value is recovered and returned
// as a regular error; a runtime error (such as an out-of-range index) or a
// non-error panic value is re-raised.
func (zw *Writer) compressBlock(buf []byte, blkCRC uint32) (err error) {
	defer errRecover(&err)

	bwtOut, ptr, hasByte := zw.bwt.encode(buf)
	syms, numSyms, freqs := zw.mtf.encode(bwtOut, hasByte)
	tables, selectors, err := zw.huff.build(syms, numSyms, freqs)
	if err != nil {
		return err
	}

	if err := writeMagic48(zw.bw, blkMagic); err != nil {
		return err
	}
	if err := zw.bw.writeBitsU32(blkCRC, 32); err != nil {
		return err
	}
	if err := zw.bw.writeBits(0, 1); err != nil { // randomised bit, always unset
		return err
	}
	if err := zw.bw.writeBitsU32(uint32(ptr), 24); err != nil {
		return err
	}
	if err := writeSymbolMap(zw.bw, hasByte); err != nil {
		return err
	}

	if err := zw.bw.writeBits(uint32(len(tables)), 3); err != nil {
		return err
	}
	if err := zw.bw.writeBitsU32(uint32(len(selectors)), 15); err != nil {
		return err
	}
	if err := encodeSelectorList(zw.bw, selectors, len(tables)); err != nil {
		return err
	}
	for _, tbl := range tables {
		if err := encodeTableLengths(zw.bw, tbl.lengths); err != nil {
			return err
		}
	}
	if err := encodeBody(zw.bw, syms, tables, selectors); err != nil {
		return err
	}

	zw.streamCRC = (zw.streamCRC<<1 | zw.streamCRC>>31) ^ blkCRC
	return nil
}

// writeMagic48 emits a 48-bit big-endian magic number as two 24-bit
// writes, since the bit sink's bulk path tops out at 32 bits.
func writeMagic48(bw *bitWriter, magic uint64) error {
	if err := bw.writeBitsU32(uint32(magic>>24), 24); err != nil {
		return err
	}
	return bw.writeBitsU32(uint32(magic&0xFFFFFF), 24)
}

// writeSymbolMap emits the two-level presence bitmap: a 16-bit header
// where bit a marks whether any byte in [16a, 16a+15] occurs in the
// block, followed by one 16-bit word (ascending byte order within the
// group) per marked sector.
func writeSymbolMap(bw *bitWriter, hasByte [256]bool) error {
	var used [16]bool
	for a := 0; a < 16; a++ {
		for b := 0; b < 16; b++ {
			if hasByte[16*a+b] {
				used[a] = true
				break
			}
		}
	}
	for a := 0; a < 16; a++ {
		bit := uint32(0)
		if used[a] {
			bit = 1
		}
		if err := bw.writeBits(bit, 1); err != nil {
			return err
		}
	}
	for a := 0; a < 16; a++ {
		if !used[a] {
			continue
		}
		for b := 0; b < 16; b++ {
			bit := uint32(0)
			if hasByte[16*a+b] {
				bit = 1
			}
			if err := bw.writeBits(bit, 1); err != nil {
				return err
			}
		}
	}
	return nil
}
