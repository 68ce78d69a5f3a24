package interval

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
)

// PosType is Union's coordinate type.
type PosType int32

const posTypeMax = math.MaxInt32

// Entry represents a single half-open [Start, End) interval on a contig.
// End >= Start is required.
type Entry struct {
	Contig string
	Start  PosType
	End    PosType
}

// Union is a per-contig set of sorted, strictly disjoint half-open
// intervals.  Each contig's interval set is stored as a length-2N sequence
// of endpoints, where the (0-based) start position of interval #k is in
// element [2k] and the end position is in element [2k+1].  Advantages of
// this representation over a length-N sequence of {start, end} structs
// include reuse of standard []int32 binary search algorithms, and an O(1)
// parity test for containment.
type Union struct {
	// contigMap is a contig-name-keyed map with disjoint-interval-set
	// values.  Always initialized.
	contigMap map[string][]PosType
	// lastContigEndpoints points to the disjoint-interval-set for the most
	// recently queried contig.  This is a minor performance optimization for
	// the common case of querying a position-sorted record stream.
	lastContigEndpoints []PosType
	// lastContigName is the name of the last queried contig.  If it's
	// nonempty, it must be in sync with lastContigEndpoints.
	lastContigName string
}

// searchPosType returns the index of x in a[], or the position where x
// would be inserted if x isn't in a (this could be len(a)).  It's exactly
// the same as sort.SearchInts(), except for PosType.
func searchPosType(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// NewUnion consolidates an arbitrary-order collection of entries into the
// minimal sorted disjoint form.  Entries on the same contig are sorted by
// (Start, End) and swept left to right: an entry starting strictly after
// the rightmost end seen so far closes the current run, any other entry
// extends it.  Empty entries contribute nothing.
func NewUnion(entries []Entry) (Union, error) {
	perContig := make(map[string][]Entry)
	for _, e := range entries {
		if e.Start < 0 {
			return Union{}, fmt.Errorf("interval.NewUnion: negative start coordinate %d", e.Start)
		}
		if (e.End < e.Start) || (e.End >= posTypeMax) {
			return Union{}, fmt.Errorf("interval.NewUnion: invalid coordinate pair [%d, %d)", e.Start, e.End)
		}
		perContig[e.Contig] = append(perContig[e.Contig], e)
	}
	u := initUnion()
	for contig, ents := range perContig {
		sort.Slice(ents, func(i, j int) bool {
			if ents[i].Start != ents[j].Start {
				return ents[i].Start < ents[j].Start
			}
			return ents[i].End < ents[j].End
		})
		var endpoints []PosType
		runStart := PosType(-1)
		runEnd := PosType(-1)
		for _, e := range ents {
			if e.End == e.Start {
				continue
			}
			if runEnd == -1 {
				runStart, runEnd = e.Start, e.End
				continue
			}
			if e.Start > runEnd {
				endpoints = append(endpoints, runStart, runEnd)
				runStart, runEnd = e.Start, e.End
			} else if e.End > runEnd {
				runEnd = e.End
			}
		}
		if runEnd != -1 {
			endpoints = append(endpoints, runStart, runEnd)
		}
		if endpoints != nil {
			u.contigMap[contig] = endpoints
		}
	}
	return u, nil
}

func initUnion() (u Union) {
	u.contigMap = make(map[string][]PosType)
	return
}

func (u *Union) endpoints(contig string) []PosType {
	if contig != u.lastContigName {
		u.lastContigName = contig
		u.lastContigEndpoints = u.contigMap[contig]
	}
	return u.lastContigEndpoints
}

// Contains checks whether the (0-based) interval [pos, pos+1) is contained
// within the union.
func (u *Union) Contains(contig string, pos PosType) bool {
	endpoints := u.endpoints(contig)
	if endpoints == nil {
		return false
	}
	return searchPosType(endpoints, pos+1)&1 == 1
}

// Overlaps checks whether the half-open interval [start, end) on the given
// contig intersects the union.  Empty query intervals never overlap.
func (u *Union) Overlaps(contig string, start, end PosType) bool {
	if end <= start {
		return false
	}
	endpoints := u.endpoints(contig)
	if endpoints == nil {
		return false
	}
	idx := searchPosType(endpoints, start+1)
	if idx&1 == 1 {
		return true
	}
	return (idx != len(endpoints)) && (endpoints[idx] < end)
}

// OverlapsRecord checks whether the record's reference span intersects the
// union.  Records without a mapped reference never overlap.  A placed
// record with no aligned bases is treated as covering a single position.
func (u *Union) OverlapsRecord(rec *sam.Record) bool {
	if rec.Ref == nil || rec.Pos < 0 {
		return false
	}
	start := PosType(rec.Pos)
	end := PosType(rec.End())
	if end <= start {
		end = start + 1
	}
	return u.Overlaps(rec.Ref.Name(), start, end)
}

// Contigs returns the names of all contigs with at least one interval, in
// unspecified order.
func (u *Union) Contigs() []string {
	names := make([]string, 0, len(u.contigMap))
	for name := range u.contigMap {
		names = append(names, name)
	}
	return names
}

// Entries returns the union's intervals for one contig, in sorted disjoint
// form.  It returns nil for contigs absent from the union.
func (u *Union) Entries(contig string) []Entry {
	endpoints := u.contigMap[contig]
	if endpoints == nil {
		return nil
	}
	entries := make([]Entry, 0, len(endpoints)/2)
	for i := 0; i < len(endpoints); i += 2 {
		entries = append(entries, Entry{Contig: contig, Start: endpoints[i], End: endpoints[i+1]})
	}
	return entries
}

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' '
// is treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// NewUnionFromBED loads a 3+ column BED and returns the merged union of
// its intervals.  Unlike the BED spec, input need not be position-sorted.
// A line missing any of the three required columns fails with its line
// number.
func NewUnionFromBED(reader io.Reader) (Union, error) {
	// Note that Scanner does not handle very long lines unless we specify an
	// adequate buffer size in advance.  Shouldn't matter for BED files.
	scanner := bufio.NewScanner(reader)
	var entries []Entry
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken != 3 {
			if nToken == 0 {
				continue
			}
			return Union{}, fmt.Errorf("interval.NewUnionFromBED: line %d has fewer tokens than expected", lineIdx)
		}
		parsedStart, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return Union{}, fmt.Errorf("interval.NewUnionFromBED: bad start coordinate on line %d: %v", lineIdx, err)
		}
		if parsedStart < 0 {
			return Union{}, fmt.Errorf("interval.NewUnionFromBED: negative start coordinate on line %d", lineIdx)
		}
		parsedEnd, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return Union{}, fmt.Errorf("interval.NewUnionFromBED: bad end coordinate on line %d: %v", lineIdx, err)
		}
		if (parsedEnd < parsedStart) || (parsedEnd >= posTypeMax) {
			return Union{}, fmt.Errorf("interval.NewUnionFromBED: invalid coordinate pair on line %d", lineIdx)
		}
		entries = append(entries, Entry{
			Contig: string(tokens[0]),
			Start:  PosType(parsedStart),
			End:    PosType(parsedEnd),
		})
	}
	if err := scanner.Err(); err != nil {
		return Union{}, err
	}
	return NewUnion(entries)
}

// NewUnionFromPath is a wrapper for NewUnionFromBED that takes a path
// instead of an io.Reader.  Gzipped BEDs are decompressed transparently.
func NewUnionFromPath(path string) (u Union, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return Union{}, errors.E(err, "interval.NewUnionFromPath:", path)
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return Union{}, err
		}
	}
	return NewUnionFromBED(reader)
}
