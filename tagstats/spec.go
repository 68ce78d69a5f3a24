// Package tagstats aggregates presence and value statistics of alignment
// record aux tags over a filtered record stream.
package tagstats

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
)

// Spec declares one tag to search for.  Value and Pattern are mutually
// exclusive: Value marks a value-specialized spec (a plain literal used
// for equality and grouping), Pattern restricts counting to records whose
// tag value contains a regexp match.  Spec identity deliberately excludes
// the pattern (see key) so a spec and its discovered value-variants form a
// consistent key space.
type Spec struct {
	ID      sam.Tag
	Value   string
	Pattern *regexp.Regexp
}

// specKey is a Spec's identity for counting: identifier and literal value
// only.
type specKey struct {
	id    sam.Tag
	value string
}

func (s *Spec) key() specKey { return specKey{id: s.ID, value: s.Value} }

// ParseSpec parses an "ID" or "ID:PATTERN" search-tag argument.  The ID
// must be exactly two characters; with a pattern, the colon must sit at
// position 2.  The pattern is compiled as a regular expression and matched
// unanchored.
func ParseSpec(s string) (Spec, error) {
	if len(s) < 2 || len(s) == 3 || (len(s) > 3 && s[2] != ':') {
		return Spec{}, fmt.Errorf("invalid search tag %q (required TAG or TAG:PATTERN)", s)
	}
	spec := Spec{ID: sam.Tag{s[0], s[1]}}
	if len(s) > 3 {
		pattern, err := regexp.Compile(s[3:])
		if err != nil {
			return Spec{}, errors.E(err, "invalid search tag pattern", s[3:])
		}
		spec.Pattern = pattern
	}
	return spec, nil
}

// ReadSpecs parses one search-tag spec per line, skipping blank lines.
func ReadSpecs(reader io.Reader) ([]Spec, error) {
	scanner := bufio.NewScanner(reader)
	var specs []Spec
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		spec, err := ParseSpec(line)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return specs, nil
}

// ReadSpecsFromPath is a wrapper for ReadSpecs that takes a path.
func ReadSpecsFromPath(path string) (specs []Spec, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "cannot open search tag file", path)
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return ReadSpecs(infile.Reader(ctx))
}
