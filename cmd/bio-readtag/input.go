package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

const logTick = 10 * 1000 * 1000

// recordReader is implemented by both sam.Reader and bam.Reader.
type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

// checkInput verifies that a declared input path exists before any
// streaming begins, so the diagnostic can name the path.
func checkInput(ctx context.Context, path string) error {
	if path == "-" {
		return nil
	}
	if _, err := file.Stat(ctx, path); err != nil {
		return errors.E(err, "input file", path, "does not exist")
	}
	return nil
}

func isSAMPath(path string) bool {
	return strings.HasSuffix(path, ".sam")
}

// openInput creates a BAM or SAM reader for path ('-' means stdin, read
// as BAM).  The returned cleanup func closes the underlying file.
func openInput(ctx context.Context, path string) (recordReader, func(), error) {
	var in io.Reader
	cleanup := func() {}
	if path == "-" {
		in = os.Stdin
	} else {
		f, err := file.Open(ctx, path)
		if err != nil {
			return nil, nil, errors.E(err, "open", path)
		}
		in = f.Reader(ctx)
		cleanup = func() { f.Close(ctx) } // nolint: errcheck
	}
	if isSAMPath(path) {
		reader, err := sam.NewReader(in)
		if err != nil {
			return nil, nil, errors.E(err, path, ": failed to open SAM")
		}
		return reader, cleanup, nil
	}
	reader, err := bam.NewReader(in, 1)
	if err != nil {
		return nil, nil, errors.E(err, path, ": failed to open BAM")
	}
	return reader, cleanup, nil
}

// buildIndex writes a .bai companion for the BAM at path.
func buildIndex(path string) (err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open", path)
	}
	defer in.Close(ctx) // nolint: errcheck
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return errors.E(err, path, ": failed to open BAM")
	}
	var idx bam.Index
	for {
		rec, rerr := reader.Read()
		if rec == nil {
			if rerr != io.EOF {
				return errors.E(rerr, "read", path)
			}
			break
		}
		if aerr := idx.Add(rec, reader.LastChunk()); aerr != nil {
			return errors.E(aerr, "index", path)
		}
	}
	out, err := file.Create(ctx, path+".bai")
	if err != nil {
		return errors.E(err, "create", path+".bai")
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return bam.WriteIndex(out.Writer(ctx), &idx)
}
