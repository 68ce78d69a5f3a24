package tagstats

import (
	"io"
	"sort"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/sam"
)

type reportRow struct {
	id    sam.Tag
	value string // empty for un-specialized rows, rendered as "*"
	count int64
}

// WriteReport renders the aggregated counts as a TSV table: a header row,
// a synthetic "*  *  total  1" row, then one row per declared tag and, in
// split mode, one row per discovered value.  Unsorted output lists the
// un-specialized rows (in declaration order) before the value-specialized
// rows (in mapping order).  Sorted output interleaves all rows by count
// descending; ties keep no guaranteed relative order.
func (s *Stats) WriteReport(w io.Writer, sorted bool) error {
	rows := make([]reportRow, 0, len(s.specs)+len(s.valueCounts))
	for i := range s.specs {
		spec := &s.specs[i]
		rows = append(rows, reportRow{id: spec.ID, value: spec.Value, count: s.counts[spec.key()]})
	}
	for key, count := range s.valueCounts {
		rows = append(rows, reportRow{id: key.id, value: key.value, count: count})
	}
	if sorted {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].count > rows[j].count })
	}

	tsvw := tsv.NewWriter(w)
	tsvw.WriteString("tag")
	tsvw.WriteString("value")
	tsvw.WriteString("count")
	tsvw.WriteString("fraction")
	if err := tsvw.EndLine(); err != nil {
		return err
	}
	tsvw.WriteString("*")
	tsvw.WriteString("*")
	tsvw.WriteInt64(s.total)
	tsvw.WriteFloat64(1, 'g', -1)
	if err := tsvw.EndLine(); err != nil {
		return err
	}
	for _, row := range rows {
		tsvw.WriteString(row.id.String())
		if row.value == "" {
			tsvw.WriteString("*")
		} else {
			tsvw.WriteString(row.value)
		}
		tsvw.WriteInt64(row.count)
		tsvw.WriteFloat64(s.fraction(row.count), 'g', -1)
		if err := tsvw.EndLine(); err != nil {
			return err
		}
	}
	return tsvw.Flush()
}
