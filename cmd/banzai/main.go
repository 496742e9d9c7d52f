// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command banzai is a command-line front end for the bzip2 encoder. It
// owns argument parsing, file handling, and process exit codes; the
// compression work itself is delegated to the bzip2 package in exactly
// one call.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jgbyrne/banzai/bzip2"
)

const version = "1.0.0"

const infoMsg = `banzai is a libre bzip2 encoder.

It uses the SA-IS algorithm to compute the Burrows-Wheeler transform,
and chooses Huffman codeword lengths by iterative refinement over
multiple code tables, as bzip2 itself does.

It is implemented wholly in idiomatic Go.`

// exitError pins a process exit code to an underlying error so main can
// report the right code without main and run needing a shared global.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func argError(format string, a ...interface{}) error {
	return &exitError{code: 1, err: fmt.Errorf(format, a...)}
}

func fsError(err error) error  { return &exitError{code: 2, err: err} }
func outError(err error) error { return &exitError{code: 3, err: err} }

func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// ioTag marks which side of the pipe an I/O error came from, so a single
// error returned from bzip2.Encode can still be routed to the right exit
// code (2 for a source read failure, 3 for a sink write failure).
type ioTag struct {
	write bool
	err   error
}

func (t *ioTag) Error() string { return t.err.Error() }
func (t *ioTag) Unwrap() error { return t.err }

type taggedReader struct{ r io.Reader }

func (tr taggedReader) Read(p []byte) (int, error) {
	n, err := tr.r.Read(p)
	if err != nil && err != io.EOF {
		return n, &ioTag{write: false, err: err}
	}
	return n, err
}

type taggedWriter struct{ w io.Writer }

func (tw taggedWriter) Write(p []byte) (int, error) {
	n, err := tw.w.Write(p)
	if err != nil {
		return n, &ioTag{write: true, err: err}
	}
	return n, err
}

// options collects the CLI surface: a PATH or "-" for stdin, --output,
// --stdout/-c, --keep/-k, one of -1..-9, --verbose/-v, and --info.
type options struct {
	output  string
	stdout  bool
	keep    bool
	verbose bool
	info    bool
	levels  [10]bool // levels[n] set iff -n was passed
}

func (o *options) level() int {
	lvl := 0
	for n := 1; n <= 9; n++ {
		if o.levels[n] {
			lvl = n // highest -n given on the line wins
		}
	}
	if lvl == 0 {
		return bzip2.DefaultCompression
	}
	return lvl
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "banzai [flags] [file]",
		Short:         "compress a file into the bzip2 format",
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return run(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, input)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "write compressed output to PATH instead of the default")
	flags.BoolVarP(&opts.stdout, "stdout", "c", false, "write compressed output to stdout")
	flags.BoolVarP(&opts.keep, "keep", "k", false, "keep (don't delete) the input file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "report the input and level, then the number of bytes read")
	flags.BoolVar(&opts.info, "info", false, "print information about banzai and exit")

	for n := 1; n <= 9; n++ {
		name := "level-" + strconv.Itoa(n)
		flags.BoolVarP(&opts.levels[n], name, strconv.Itoa(n), false,
			fmt.Sprintf("select a block size of %d,000 bytes", n*100))
		flags.Lookup(name).Hidden = true
	}

	return cmd
}

func run(stdout, stderr io.Writer, opts *options, input string) error {
	if opts.info {
		fmt.Fprintln(stdout, infoMsg)
		return nil
	}
	if opts.stdout && opts.output != "" {
		return argError("--stdout and --output are mutually exclusive")
	}
	level := opts.level()

	var (
		src      io.Reader
		srcClose func() error
		srcPath  string
	)
	if input == "-" {
		src = os.Stdin
		srcClose = func() error { return nil }
	} else {
		f, err := os.Open(input)
		if err != nil {
			return fsError(err)
		}
		src = f
		srcClose = f.Close
		srcPath = input
	}
	defer srcClose()

	var (
		dst       io.Writer
		dstPath   string
		dstClose  func() error = func() error { return nil }
		dstRemove func()       = func() {}
	)
	switch {
	case opts.stdout:
		dst = stdout
	case opts.output != "":
		dstPath = opts.output
	default:
		if srcPath == "" {
			dst = stdout // stdin input with no explicit destination: behave like --stdout
		} else {
			dstPath = srcPath + ".bz2"
		}
	}
	if dstPath != "" {
		f, err := os.Create(dstPath)
		if err != nil {
			return fsError(err)
		}
		dst = f
		dstClose = f.Close
		dstRemove = func() { os.Remove(dstPath) }
	}

	if opts.verbose {
		name := input
		if name == "-" {
			name = "<stdin>"
		}
		fmt.Fprintf(stderr, "compressing %s at level %d\n", name, level)
	}

	consumed, encErr := bzip2.Encode(taggedReader{src}, taggedWriter{dst}, level)
	if cerr := dstClose(); encErr == nil {
		encErr = cerr
	}
	if encErr != nil {
		dstRemove()
		var tag *ioTag
		if errors.As(encErr, &tag) {
			if tag.write {
				return outError(tag.err)
			}
			return fsError(tag.err)
		}
		return outError(encErr)
	}

	if opts.verbose {
		fmt.Fprintf(stderr, "%d bytes in\n", consumed)
	}

	if srcPath != "" && dstPath != "" && !opts.keep {
		if err := os.Remove(srcPath); err != nil {
			return fsError(err)
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
