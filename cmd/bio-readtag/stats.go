package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/readtag/interval"
	"github.com/grailbio/readtag/tagstats"
	"v.io/x/lib/cmdline"
)

// specList collects repeated -t arguments.
type specList []tagstats.Spec

func (l *specList) String() string {
	parts := make([]string, 0, len(*l))
	for _, spec := range *l {
		parts = append(parts, spec.ID.String())
	}
	return strings.Join(parts, ",")
}

func (l *specList) Set(value string) error {
	spec, err := tagstats.ParseSpec(value)
	if err != nil {
		return err
	}
	*l = append(*l, spec)
	return nil
}

type statsFlags struct {
	specs        specList
	tagFile      *string
	split        *bool
	bedPath      *string
	requiredFlag *int
	excludedFlag *int
	mapQ         *int
	output       *string
	sorted       *bool
	verbosity    *int
}

func newCmdStats() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "stats",
		Short:    "Aggregate tag presence/value statistics over a record stream",
		ArgsName: "input",
		Long: `
Count, per declared search tag, how many admitted records carry it.
Admission is a conjunction of flag and mapping-quality conditions; -L
additionally restricts counting to records overlapping a BED interval
union.  With -split, occurrences are also counted per distinct matched
tag value.  The report is a TSV table with a synthetic totals row.`,
	}
	flags := statsFlags{
		tagFile:      cmd.Flags.String("tag-file", "", "File declaring one search tag TAG[:PATTERN] per line"),
		split:        cmd.Flags.Bool("split", false, "Also count occurrences per distinct matched tag value"),
		bedPath:      cmd.Flags.String("L", "", "Only count records overlapping the BED file's interval union"),
		requiredFlag: cmd.Flags.Int("f", 0, "Only count records with all of these flag bits set"),
		excludedFlag: cmd.Flags.Int("F", 0, "Skip records with any of these flag bits set"),
		mapQ:         cmd.Flags.Int("q", 0, "Skip records with mapping quality below this value"),
		output:       cmd.Flags.String("o", "", "Output TSV path. By default the report is written to stdout"),
		sorted:       cmd.Flags.Bool("sort", false, "Order report rows by count descending"),
		verbosity:    cmd.Flags.Int("verbosity", 0, "Print verbose logging info"),
	}
	cmd.Flags.Var(&flags.specs, "t", "Search tag TAG[:PATTERN]. May be repeated")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("stats takes one input argument, but got %v", argv)
		}
		return runStats(flags, argv[0])
	})
	return cmd
}

func runStats(flags statsFlags, inPath string) error {
	ctx := vcontext.Background()
	if err := checkInput(ctx, inPath); err != nil {
		return err
	}
	if *flags.requiredFlag > 0xffff || *flags.requiredFlag < 0 {
		return fmt.Errorf("-f value %d does not fit in 16 bits", *flags.requiredFlag)
	}
	if *flags.excludedFlag > 0xffff || *flags.excludedFlag < 0 {
		return fmt.Errorf("-F value %d does not fit in 16 bits", *flags.excludedFlag)
	}
	if *flags.mapQ > 0xff || *flags.mapQ < 0 {
		return fmt.Errorf("-q value %d does not fit in 8 bits", *flags.mapQ)
	}
	specs := []tagstats.Spec(flags.specs)
	if *flags.tagFile != "" {
		fileSpecs, err := tagstats.ReadSpecsFromPath(*flags.tagFile)
		if err != nil {
			return err
		}
		specs = append(specs, fileSpecs...)
	}

	var regions *interval.Union
	if *flags.bedPath != "" {
		u, err := interval.NewUnionFromPath(*flags.bedPath)
		if err != nil {
			return err
		}
		regions = &u
	}
	filter := tagstats.Filter{
		RequiredFlags: sam.Flags(*flags.requiredFlag),
		ExcludedFlags: sam.Flags(*flags.excludedFlag),
		MinMapQ:       byte(*flags.mapQ),
	}

	in, cleanup, err := openInput(ctx, inPath)
	if err != nil {
		return err
	}
	defer cleanup()

	stats := tagstats.NewStats(specs, *flags.split)
	processed := int64(0)
	for {
		rec, rerr := in.Read()
		if rec == nil {
			if rerr != io.EOF {
				return errors.E(rerr, "read failed:", inPath)
			}
			break
		}
		processed++
		if *flags.verbosity > 0 && processed%logTick == 0 {
			log.Printf("Processed %d reads -- counted %d", processed, stats.Total())
		}
		if regions != nil && !regions.OverlapsRecord(rec) {
			continue
		}
		if !filter.Admit(rec) {
			continue
		}
		stats.Add(rec)
	}
	if *flags.verbosity > 0 {
		log.Printf("Processed %d reads -- counted %d", processed, stats.Total())
	}

	if *flags.output == "" {
		return stats.WriteReport(os.Stdout, *flags.sorted)
	}
	out, err := file.Create(ctx, *flags.output)
	if err != nil {
		return errors.E(err, "create", *flags.output)
	}
	if err := stats.WriteReport(out.Writer(ctx), *flags.sorted); err != nil {
		out.Close(ctx) // nolint: errcheck
		return errors.E(err, "write failed:", *flags.output)
	}
	return out.Close(ctx)
}
