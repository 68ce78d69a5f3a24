package main

import (
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/readtag/annotate"
	"v.io/x/lib/cmdline"
)

type tagFlags struct {
	output    *string
	tag       *string
	flag      *int
	index     *bool
	verbosity *int
}

func newCmdTag() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "tag",
		Short:    "Annotate records by read name from an edit set",
		ArgsName: "input qnames-tsv",
		Long: `
Stream records from input (BAM, or SAM for .sam paths; '-' means stdin),
merging per-read edits from qnames-tsv into each matched record.  Every
record is emitted exactly once, in input order.

Each edit-set line is 'name<TAB>payload'; the payload is optionally split
on an internal tab into a tag directive and a decimal flag literal.  The
tag directive is 'ID:VALUE', or a bare value when -t declares a valueless
base tag.  Flag literals and the -f flag are OR'd onto the record's
existing flags; bits are never cleared.`,
	}
	flags := tagFlags{
		output:    cmd.Flags.String("o", "", "Output BAM (or .sam) path. By default SAM is written to stdout"),
		tag:       cmd.Flags.String("t", "", "Tag TAG[:VAL] added to every selected read. Without VAL, the edit set supplies per-read values"),
		flag:      cmd.Flags.Int("f", -1, "Flag bits OR'd into every selected read"),
		index:     cmd.Flags.Bool("i", false, "Build the BAM index for the output"),
		verbosity: cmd.Flags.Int("verbosity", 0, "Print verbose logging info"),
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("tag takes input and qnames-tsv arguments, but got %v", argv)
		}
		return runTag(flags, argv[0], argv[1])
	})
	return cmd
}

// validateBaseFlag checks the -f argument: the -1 default means no base
// flag, anything else must be a 16-bit flag bit set.
func validateBaseFlag(v int) error {
	if v == -1 {
		return nil
	}
	if v < 0 || v > 0xffff {
		return fmt.Errorf("flag value %d does not fit in 16 bits", v)
	}
	return nil
}

func runTag(flags tagFlags, inPath, qnamesPath string) error {
	ctx := vcontext.Background()
	if err := checkInput(ctx, inPath); err != nil {
		return err
	}
	if err := checkInput(ctx, qnamesPath); err != nil {
		return err
	}
	if err := validateBaseFlag(*flags.flag); err != nil {
		return err
	}
	opts := annotate.Opts{Flag: *flags.flag}
	if *flags.tag != "" {
		baseTag, err := annotate.ParseTag(*flags.tag)
		if err != nil {
			return err
		}
		opts.Tag = &baseTag
	}
	if *flags.index && *flags.output == "" {
		log.Error.Printf("cannot build BAM index without -o")
	}

	edits, err := annotate.LoadEdits(qnamesPath)
	if err != nil {
		return err
	}
	if *flags.verbosity > 0 {
		log.Printf("Loaded %d read names", len(edits))
	}

	in, cleanup, err := openInput(ctx, inPath)
	if err != nil {
		return err
	}
	defer cleanup()
	header := in.Header()

	var out interface {
		Write(*sam.Record) error
	}
	outClose := func() error { return nil }
	outPath := *flags.output
	switch {
	case outPath == "":
		w, werr := sam.NewWriter(os.Stdout, header, sam.FlagDecimal)
		if werr != nil {
			return errors.E(werr, "failed to write header")
		}
		out = w
	case isSAMPath(outPath):
		f, ferr := file.Create(ctx, outPath)
		if ferr != nil {
			return errors.E(ferr, "create", outPath)
		}
		w, werr := sam.NewWriter(f.Writer(ctx), header, sam.FlagDecimal)
		if werr != nil {
			return errors.E(werr, "failed to write header to", outPath)
		}
		out = w
		outClose = func() error { return f.Close(ctx) }
	default:
		f, ferr := file.Create(ctx, outPath)
		if ferr != nil {
			return errors.E(ferr, "create", outPath)
		}
		w, werr := bam.NewWriter(f.Writer(ctx), header, 1)
		if werr != nil {
			return errors.E(werr, "failed to write header to", outPath)
		}
		out = w
		outClose = func() error {
			if cerr := w.Close(); cerr != nil {
				f.Close(ctx) // nolint: errcheck
				return cerr
			}
			return f.Close(ctx)
		}
	}

	applier := annotate.NewApplier(edits, opts)
	for {
		rec, rerr := in.Read()
		if rec == nil {
			if rerr != io.EOF {
				return errors.E(rerr, "read failed:", inPath)
			}
			break
		}
		if _, aerr := applier.Apply(rec); aerr != nil {
			return aerr
		}
		// A failed write corrupts the destination stream irrecoverably, so
		// there is no partial-success reporting.
		if werr := out.Write(rec); werr != nil {
			return errors.E(werr, "write failed:", outPath)
		}
		if *flags.verbosity > 0 && applier.Processed()%logTick == 0 {
			logTagProgress(applier)
		}
	}
	if err := outClose(); err != nil {
		return errors.E(err, "write failed:", outPath)
	}
	if *flags.verbosity > 0 {
		logTagProgress(applier)
	}
	if *flags.index && outPath != "" && !isSAMPath(outPath) {
		if err := buildIndex(outPath); err != nil {
			log.Error.Printf("failed to build BAM index: %v", err)
		}
	}
	return nil
}

func logTagProgress(applier *annotate.Applier) {
	processed, marked := applier.Processed(), applier.Marked()
	pct := int64(0)
	if processed > 0 {
		pct = 100 * marked / processed
	}
	log.Printf("Processed %d reads -- marked %d (~%d%%)", processed, marked, pct)
}
