package tagstats

import (
	"strconv"

	"github.com/grailbio/hts/sam"
)

// auxText stringifies an aux field's value per its native type: text
// passed through, integer/real formatted to text.  Untyped or malformed
// aux storage yields ok=false and is treated as absent by callers.
func auxText(aux sam.Aux) (string, bool) {
	switch aux.Type() {
	case 'A':
		if len(aux) < 3 {
			return "", false
		}
		return string(aux[2:3]), true
	case 'Z', 'H':
		s, ok := aux.Value().(string)
		return s, ok
	case 'c', 'C', 's', 'S', 'i', 'I':
		switch v := aux.Value().(type) {
		case int8:
			return strconv.FormatInt(int64(v), 10), true
		case uint8:
			return strconv.FormatUint(uint64(v), 10), true
		case int16:
			return strconv.FormatInt(int64(v), 10), true
		case uint16:
			return strconv.FormatUint(uint64(v), 10), true
		case int32:
			return strconv.FormatInt(int64(v), 10), true
		case uint32:
			return strconv.FormatUint(uint64(v), 10), true
		case int:
			return strconv.Itoa(v), true
		}
		return "", false
	case 'f':
		v, ok := aux.Value().(float32)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 32), true
	}
	return "", false
}
