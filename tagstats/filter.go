package tagstats

import (
	"github.com/grailbio/hts/sam"
)

// Filter is a conjunction of independent record admission conditions.
// The zero Filter admits every record.
type Filter struct {
	// RequiredFlags admits only records with all of these flag bits set.
	RequiredFlags sam.Flags
	// ExcludedFlags rejects records with any of these flag bits set.
	ExcludedFlags sam.Flags
	// MinMapQ rejects records with mapping quality below this value.
	MinMapQ byte
}

// Admit reports whether rec passes every condition.
func (f Filter) Admit(rec *sam.Record) bool {
	if rec.Flags&f.RequiredFlags != f.RequiredFlags {
		return false
	}
	if rec.Flags&f.ExcludedFlags != 0 {
		return false
	}
	return rec.MapQ >= f.MinMapQ
}
