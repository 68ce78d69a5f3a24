package tagstats

import (
	"github.com/grailbio/hts/sam"
)

// Stats counts, per declared search spec, how many admitted records carry
// the tag, with optional per-value splitting.  Created empty, mutated once
// per admitted record, rendered at stream end; never reused across runs.
// Not safe for concurrent use.
type Stats struct {
	specs []Spec
	split bool
	// counts holds one entry per declared spec.
	counts map[specKey]int64
	// valueCounts holds value-specialized entries discovered in split
	// mode, keyed by (identifier, matched value).
	valueCounts map[specKey]int64
	total       int64
}

// NewStats returns an empty aggregator over the declared specs.  With
// split enabled, occurrences are additionally counted per distinct
// matched tag value.
func NewStats(specs []Spec, split bool) *Stats {
	s := &Stats{
		specs:  specs,
		split:  split,
		counts: make(map[specKey]int64, len(specs)),
	}
	if split {
		s.valueCounts = make(map[specKey]int64)
	}
	return s
}

// Add aggregates one admitted record.  The total is incremented
// unconditionally, whether or not any tag matched.
func (s *Stats) Add(rec *sam.Record) {
	s.total++
	for i := range s.specs {
		spec := &s.specs[i]
		aux := rec.AuxFields.Get(spec.ID)
		if aux == nil {
			continue
		}
		if spec.Pattern != nil {
			text, ok := auxText(aux)
			if !ok || !spec.Pattern.MatchString(text) {
				continue
			}
			s.counts[spec.key()]++
			if s.split {
				s.valueCounts[specKey{id: spec.ID, value: text}]++
			}
			continue
		}
		s.counts[spec.key()]++
		if s.split {
			if text, ok := auxText(aux); ok {
				s.valueCounts[specKey{id: spec.ID, value: text}]++
			}
		}
	}
}

// Total returns the number of admitted records.
func (s *Stats) Total() int64 { return s.total }

// Count returns the occurrence count for one declared spec.
func (s *Stats) Count(spec *Spec) int64 { return s.counts[spec.key()] }

// fraction returns count/total, or 0 for an empty stream.
func (s *Stats) fraction(count int64) float64 {
	if s.total == 0 {
		return 0
	}
	return float64(count) / float64(s.total)
}
