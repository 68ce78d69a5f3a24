package annotate

import (
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
)

// Opts configures an Applier.
type Opts struct {
	// Tag is an optional base tag applied to every matched record.  A
	// signal-only base tag (no value) selects default-tag mode: each
	// matched record's tag payload supplies the value for that record
	// only.
	Tag *Tag
	// Flag holds bits OR'd into every matched record's flags.  Negative
	// means no base flag.
	Flag int
}

// Applier merges edit directives into a record stream.  Records whose name
// is absent from the edit set pass through untouched; matched records
// receive the base tag/flag plus whatever their directive adds.  Not safe
// for concurrent use.
type Applier struct {
	edits       Edits
	baseTag     *Tag
	baseFlag    int
	defaultMode bool
	// tags is the per-record accumulator.  In default-tag mode slot 0 is
	// the base tag, revalued per record.
	tags      []Tag
	processed int64
	marked    int64
}

// NewApplier returns an Applier over the given edit set.  The default-tag
// versus independent-tag strategy is decided here, once, from whether the
// base tag carries a value.
func NewApplier(edits Edits, opts Opts) *Applier {
	a := &Applier{
		edits:    edits,
		baseTag:  opts.Tag,
		baseFlag: opts.Flag,
	}
	if opts.Flag < 0 {
		a.baseFlag = -1
	}
	if opts.Tag != nil {
		a.tags = append(a.tags, *opts.Tag)
		a.defaultMode = opts.Tag.SignalOnly()
	}
	return a
}

// Apply merges rec's edit directive, if any, into rec.  It reports whether
// the record matched the edit set.  The record is usable (and must still
// be emitted) even when an error is returned; errors mark unclassifiable
// directives and abort the run at the caller's level.
func (a *Applier) Apply(rec *sam.Record) (bool, error) {
	a.processed++
	directive, ok := a.edits[rec.Name]
	if !ok {
		return false, nil
	}
	a.marked++
	defer a.resetTags()

	flag := a.baseFlag
	if directive != "" {
		tagPayload := directive
		if i := strings.IndexByte(directive, '\t'); i >= 0 {
			f, err := strconv.ParseUint(directive[i+1:], 10, 16)
			if err != nil {
				return true, errors.E(err, "read", rec.Name, ": malformed flag literal", directive[i+1:])
			}
			if flag < 0 {
				flag = int(f)
			} else {
				flag |= int(f)
			}
			tagPayload = directive[:i]
		}
		if tagPayload != "" {
			if a.defaultMode {
				a.tags[0].Value = ParseValue(tagPayload)
			} else {
				t, err := ParseTag(tagPayload)
				if err != nil {
					return true, errors.E(err, "read", rec.Name)
				}
				a.tags = append(a.tags, t)
			}
		}
	}
	if flag >= 0 {
		// Additive only; existing flag bits are never cleared.
		rec.Flags |= sam.Flags(flag)
	}
	if len(a.tags) == 0 && flag < 0 {
		log.Error.Printf("no tags or flags for read %s", rec.Name)
	}
	for _, t := range a.tags {
		if err := t.Apply(rec); err != nil {
			return true, err
		}
	}
	return true, nil
}

// resetTags re-initializes the per-record accumulator: back to exactly the
// base tag slot when one was supplied, empty otherwise.
func (a *Applier) resetTags() {
	if a.baseTag != nil {
		a.tags = a.tags[:1]
		a.tags[0] = *a.baseTag
	} else {
		a.tags = a.tags[:0]
	}
}

// Processed returns the number of records seen so far.
func (a *Applier) Processed() int64 { return a.processed }

// Marked returns the number of records that matched the edit set.
func (a *Applier) Marked() int64 { return a.marked }
