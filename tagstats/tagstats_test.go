package tagstats

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordWithAux(t *testing.T, name string, auxs ...sam.Aux) *sam.Record {
	rec := &sam.Record{Name: name}
	rec.AuxFields = append(rec.AuxFields, auxs...)
	return rec
}

func newAux(t *testing.T, name string, val interface{}) sam.Aux {
	aux, err := sam.NewAux(sam.NewTag(name), val)
	require.NoError(t, err)
	return aux
}

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec("CB")
	require.NoError(t, err)
	assert.Equal(t, sam.Tag{'C', 'B'}, spec.ID)
	assert.Nil(t, spec.Pattern)

	spec, err = ParseSpec("CB:^AAA")
	require.NoError(t, err)
	require.NotNil(t, spec.Pattern)
	assert.True(t, spec.Pattern.MatchString("AAAGG"))

	for _, bad := range []string{"", "C", "CB^", "CB:["} {
		_, err := ParseSpec(bad)
		assert.Error(t, err, "spec %q", bad)
	}
}

func TestReadSpecs(t *testing.T) {
	specs, err := ReadSpecs(strings.NewReader("CB:^AAA\n\nNM\n"))
	require.NoError(t, err)
	require.Equal(t, 2, len(specs))
	assert.Equal(t, sam.Tag{'C', 'B'}, specs[0].ID)
	assert.Equal(t, sam.Tag{'N', 'M'}, specs[1].ID)

	_, err = ReadSpecs(strings.NewReader("CB\nbad tag\n"))
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		filter Filter
		flags  sam.Flags
		mapQ   byte
		want   bool
	}{
		{Filter{}, 0, 0, true},
		{Filter{RequiredFlags: sam.Paired}, sam.Paired | sam.Read1, 0, true},
		{Filter{RequiredFlags: sam.Paired | sam.Read1}, sam.Paired, 0, false},
		{Filter{ExcludedFlags: sam.Duplicate}, sam.Paired, 0, true},
		{Filter{ExcludedFlags: sam.Duplicate}, sam.Paired | sam.Duplicate, 0, false},
		{Filter{MinMapQ: 30}, 0, 29, false},
		{Filter{MinMapQ: 30}, 0, 30, true},
		{Filter{RequiredFlags: sam.Paired, ExcludedFlags: sam.Unmapped, MinMapQ: 10},
			sam.Paired, 20, true},
		{Filter{RequiredFlags: sam.Paired, ExcludedFlags: sam.Unmapped, MinMapQ: 10},
			sam.Paired | sam.Unmapped, 20, false},
	}
	for i, tt := range tests {
		rec := &sam.Record{Name: "r", Flags: tt.flags, MapQ: tt.mapQ}
		assert.Equal(t, tt.want, tt.filter.Admit(rec), "case %d", i)
	}
}

func TestStatsPresence(t *testing.T) {
	spec, err := ParseSpec("NM")
	require.NoError(t, err)
	stats := NewStats([]Spec{spec}, false)

	stats.Add(recordWithAux(t, "r1", newAux(t, "NM", 5)))
	stats.Add(recordWithAux(t, "r2"))
	stats.Add(recordWithAux(t, "r3", newAux(t, "NM", 0)))

	assert.Equal(t, int64(3), stats.Total())
	assert.Equal(t, int64(2), stats.Count(&spec))
}

func TestStatsPatternSplit(t *testing.T) {
	spec, err := ParseSpec("CB:^AAA")
	require.NoError(t, err)
	stats := NewStats([]Spec{spec}, true)

	stats.Add(recordWithAux(t, "r1", newAux(t, "CB", "AAAGG")))
	stats.Add(recordWithAux(t, "r2", newAux(t, "CB", "AAAGG")))
	stats.Add(recordWithAux(t, "r3", newAux(t, "CB", "CCTT")))

	assert.Equal(t, int64(3), stats.Total())
	assert.Equal(t, int64(2), stats.Count(&spec))
	assert.Equal(t, int64(2), stats.valueCounts[specKey{id: spec.ID, value: "AAAGG"}])
	// The non-matching value is unmatched, not zero-valued: no entry at all.
	_, found := stats.valueCounts[specKey{id: spec.ID, value: "CCTT"}]
	assert.False(t, found)
}

func TestStatsSplitStringifiesNativeTypes(t *testing.T) {
	nm, err := ParseSpec("NM")
	require.NoError(t, err)
	stats := NewStats([]Spec{nm}, true)

	stats.Add(recordWithAux(t, "r1", newAux(t, "NM", 5)))
	stats.Add(recordWithAux(t, "r2", newAux(t, "NM", 5)))
	stats.Add(recordWithAux(t, "r3", newAux(t, "NM", float32(2.5))))

	assert.Equal(t, int64(3), stats.Count(&nm))
	assert.Equal(t, int64(2), stats.valueCounts[specKey{id: nm.ID, value: "5"}])
	assert.Equal(t, int64(1), stats.valueCounts[specKey{id: nm.ID, value: "2.5"}])
}

func TestStatsTotalsBound(t *testing.T) {
	nm, err := ParseSpec("NM")
	require.NoError(t, err)
	cb, err := ParseSpec("CB")
	require.NoError(t, err)
	specs := []Spec{nm, cb}
	stats := NewStats(specs, false)

	stats.Add(recordWithAux(t, "r1", newAux(t, "NM", 1), newAux(t, "CB", "A")))
	stats.Add(recordWithAux(t, "r2", newAux(t, "NM", 1)))
	stats.Add(recordWithAux(t, "r3"))

	var sum int64
	for i := range specs {
		sum += stats.Count(&specs[i])
	}
	assert.True(t, sum <= stats.Total()*int64(len(specs)))
	assert.Equal(t, int64(3), stats.Total())
}

func parseReport(t *testing.T, out string) (header string, rows [][]string) {
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.True(t, len(lines) >= 2)
	for _, line := range lines[1:] {
		rows = append(rows, strings.Split(line, "\t"))
	}
	return lines[0], rows
}

func TestWriteReport(t *testing.T) {
	nm, err := ParseSpec("NM")
	require.NoError(t, err)
	stats := NewStats([]Spec{nm}, false)
	stats.Add(recordWithAux(t, "r1", newAux(t, "NM", 5)))
	stats.Add(recordWithAux(t, "r2"))

	var buf bytes.Buffer
	require.NoError(t, stats.WriteReport(&buf, false))
	header, rows := parseReport(t, buf.String())
	assert.Equal(t, "tag\tvalue\tcount\tfraction", header)
	require.Equal(t, 2, len(rows))
	assert.Equal(t, []string{"*", "*", "2", "1"}, rows[0])
	assert.Equal(t, "NM", rows[1][0])
	assert.Equal(t, "*", rows[1][1])
	assert.Equal(t, "1", rows[1][2])
	assert.Equal(t, "0.5", rows[1][3])
}

func TestWriteReportZeroTotal(t *testing.T) {
	nm, err := ParseSpec("NM")
	require.NoError(t, err)
	stats := NewStats([]Spec{nm}, false)

	var buf bytes.Buffer
	require.NoError(t, stats.WriteReport(&buf, false))
	_, rows := parseReport(t, buf.String())
	require.Equal(t, 2, len(rows))
	assert.Equal(t, []string{"*", "*", "0", "1"}, rows[0])
	// No division fault; the fraction renders as 0.
	assert.Equal(t, "0", rows[1][3])
}

func TestWriteReportSorted(t *testing.T) {
	cb, err := ParseSpec("CB:^AAA")
	require.NoError(t, err)
	nm, err := ParseSpec("NM")
	require.NoError(t, err)
	stats := NewStats([]Spec{nm, cb}, true)

	stats.Add(recordWithAux(t, "r1", newAux(t, "CB", "AAAGG")))
	stats.Add(recordWithAux(t, "r2", newAux(t, "CB", "AAAGG"), newAux(t, "NM", 3)))
	stats.Add(recordWithAux(t, "r3", newAux(t, "CB", "AAACC")))

	var buf bytes.Buffer
	require.NoError(t, stats.WriteReport(&buf, true))
	_, rows := parseReport(t, buf.String())
	require.Equal(t, 6, len(rows))
	assert.Equal(t, []string{"*", "*", "3", "1"}, rows[0])
	counts := make([]int64, 0, len(rows)-1)
	for _, row := range rows[1:] {
		count, err := strconv.ParseInt(row[2], 10, 64)
		require.NoError(t, err)
		counts = append(counts, count)
	}
	for i := 1; i < len(counts); i++ {
		assert.True(t, counts[i-1] >= counts[i], "rows must be sorted by count descending")
	}
	assert.Equal(t, "CB", rows[1][0], "highest count row first")
	assert.Equal(t, "3", rows[1][2])
}
