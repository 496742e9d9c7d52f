// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeEmptyInput(t *testing.T) {
	var out bytes.Buffer
	n, err := Encode(strings.NewReader(""), &out, 9)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n != 0 {
		t.Errorf("consumed = %d, want 0", n)
	}

	want := []byte{
		'B', 'Z', 'h', '9',
		0x17, 0x72, 0x45, 0x38, 0x50, 0x90,
		0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("output mismatch:\ngot  % x\nwant % x", out.Bytes(), want)
	}
}

func TestEncodeInvalidLevel(t *testing.T) {
	var out bytes.Buffer
	if _, err := Encode(strings.NewReader("x"), &out, 0); err == nil {
		t.Error("expected error for level 0")
	}
	if _, err := Encode(strings.NewReader("x"), &out, 10); err == nil {
		t.Error("expected error for level 10")
	}
}

func TestEncodeSingleByte(t *testing.T) {
	var out bytes.Buffer
	n, err := Encode(strings.NewReader("x"), &out, 1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n != 1 {
		t.Errorf("consumed = %d, want 1", n)
	}

	got := out.Bytes()
	wantHdr := []byte{'B', 'Z', 'h', '1'}
	if !bytes.HasPrefix(got, wantHdr) {
		t.Fatalf("stream header mismatch: got % x", got[:4])
	}

	blkMagicBytes := []byte{0x31, 0x41, 0x59, 0x26, 0x53, 0x59}
	if !bytes.Equal(got[4:10], blkMagicBytes) {
		t.Errorf("block magic mismatch: got % x, want % x", got[4:10], blkMagicBytes)
	}

	// The footer is bit-packed straight after the block body, so it is not
	// byte-aligned in general: the 48-bit magic and the 32-bit stream CRC
	// end the stream, followed only by the zero padding of the last byte.
	found := false
	for pad := 0; pad < 8 && !found; pad++ {
		start := len(got)*8 - pad - 80
		if start < 0 {
			break
		}
		var magic uint64
		for i := start; i < start+48; i++ {
			magic = magic<<1 | uint64(got[i/8]>>(7-i%8)&1)
		}
		found = magic == endMagic && got[len(got)-1]&(1<<pad-1) == 0
	}
	if !found {
		t.Error("stream footer magic not found in output")
	}
	if len(got) <= 14 {
		t.Errorf("expected a non-trivial single-block stream, got only %d bytes", len(got))
	}
}

func TestEncodeRepeatingInput(t *testing.T) {
	var out bytes.Buffer
	input := strings.Repeat("abcabcabcabc", 5000) // well past one 50-symbol segment
	n, err := Encode(strings.NewReader(input), &out, 1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if int(n) != len(input) {
		t.Errorf("consumed = %d, want %d", n, len(input))
	}
	if out.Len() == 0 {
		t.Error("expected non-empty output")
	}
}

func TestEncodeMultiBlockInput(t *testing.T) {
	var out bytes.Buffer
	// Level 1 caps a block at 99,999 raw bytes; this input forces at least
	// two blocks through the pipeline.
	input := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 4000)
	n, err := Encode(strings.NewReader(input), &out, 1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if int(n) != len(input) {
		t.Errorf("consumed = %d, want %d", n, len(input))
	}

	blkMagicBytes := []byte{0x31, 0x41, 0x59, 0x26, 0x53, 0x59}
	if count := bytes.Count(out.Bytes(), blkMagicBytes); count < 2 {
		t.Errorf("expected at least 2 block magics, found %d", count)
	}
}
