package annotate

import (
	"bufio"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// Edits maps a read name to its raw edit directive.  A directive is the
// text after the first tab of an edit-set line: a tag payload, optionally
// followed by a tab and a numeric flag literal.  The empty directive means
// "flag-only or default-tag" edit.
type Edits map[string]string

const loadLogTick = 10 * 1000 * 1000

// LoadEdits reads a tab-delimited edit set, one "name<TAB>directive" line
// per read.  Lines without a tab carry an empty directive.  Repeated names
// are not reconciled; the last line wins.
func LoadEdits(path string) (Edits, error) {
	ctx := vcontext.Background()
	infile, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "cannot open edit set", path)
	}
	defer infile.Close(ctx) // nolint: errcheck
	reader := io.Reader(infile.Reader(ctx))
	sizeHint := int64(0)
	if info, serr := infile.Stat(ctx); serr == nil {
		sizeHint = info.Size()
	}
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return nil, err
		}
		sizeHint = 0 // compressed size is useless for estimating lines
	}
	edits, err := loadEdits(reader, sizeHint)
	if err != nil {
		return nil, errors.E(err, path)
	}
	return edits, nil
}

func loadEdits(reader io.Reader, byteSize int64) (Edits, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return Edits{}, nil
	}
	firstLine := scanner.Text()
	// Pre-size the map from average line length, estimated from the first
	// line, to avoid rehashing while loading large edit sets.
	sizeHint := 16
	if byteSize > 0 {
		sizeHint = int(byteSize / int64(len(firstLine)+1))
	}
	edits := make(Edits, sizeHint)
	addLine(edits, firstLine)
	for i := int64(1); scanner.Scan(); i++ {
		if i%loadLogTick == 0 && log.At(log.Debug) {
			log.Debug.Printf("Loaded %d reads", i)
		}
		addLine(edits, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return edits, nil
}

func addLine(edits Edits, line string) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return
	}
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		edits[line[:i]] = line[i+1:]
	} else {
		edits[line] = ""
	}
}
