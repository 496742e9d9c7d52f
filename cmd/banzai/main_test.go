// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunStdoutDefault(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "greeting.txt")
	if err := os.WriteFile(inPath, []byte("hello, world"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	opts := &options{stdout: true}
	if err := run(&stdout, &stderr, opts, inPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.HasPrefix(stdout.Bytes(), []byte("BZh9")) {
		t.Errorf("missing bzip2 header, got % x", stdout.Bytes()[:min(4, stdout.Len())])
	}
	// --stdout must never remove the input.
	if _, err := os.Stat(inPath); err != nil {
		t.Errorf("input file was removed: %v", err)
	}
}

func TestRunDefaultOutputPathAndDelete(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(inPath, []byte(strings.Repeat("abc", 100)), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	opts := &options{}
	if err := run(&stdout, &stderr, opts, inPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantOut := inPath + ".bz2"
	if _, err := os.Stat(wantOut); err != nil {
		t.Fatalf("expected output %s: %v", wantOut, err)
	}
	if _, err := os.Stat(inPath); !os.IsNotExist(err) {
		t.Errorf("expected input to be deleted by default, stat err = %v", err)
	}
}

func TestRunKeepPreservesInput(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(inPath, []byte("xyz"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	opts := &options{keep: true}
	if err := run(&stdout, &stderr, opts, inPath); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(inPath); err != nil {
		t.Errorf("expected input to survive with --keep: %v", err)
	}
}

func TestRunConflictingFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opts := &options{stdout: true, output: "foo.bz2"}
	err := run(&stdout, &stderr, opts, "-")
	if err == nil {
		t.Fatal("expected an error for --stdout combined with --output")
	}
	if exitCodeFor(err) != 1 {
		t.Errorf("exit code = %d, want 1", exitCodeFor(err))
	}
}

func TestRunMissingInputIsFilesystemError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opts := &options{stdout: true}
	err := run(&stdout, &stderr, opts, filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if exitCodeFor(err) != 2 {
		t.Errorf("exit code = %d, want 2", exitCodeFor(err))
	}
}

func TestRunInfo(t *testing.T) {
	// --info must not even require the input path to exist.
	var stdout, stderr bytes.Buffer
	opts := &options{info: true}
	if err := run(&stdout, &stderr, opts, "does-not-exist"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() == 0 {
		t.Error("expected --info to print a description")
	}
	if _, err := os.Stat("does-not-exist.bz2"); !errors.Is(err, os.ErrNotExist) {
		t.Error("--info must not write a compressed file")
	}
}

func TestLevelSelectsHighestFlag(t *testing.T) {
	opts := &options{}
	opts.levels[1] = true
	opts.levels[5] = true
	if got := opts.level(); got != 5 {
		t.Errorf("level() = %d, want 5", got)
	}
}
