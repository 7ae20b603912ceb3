package sample

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rise-and-shine/pgbulk/schema"
)

const blobSeed = 42

//nolint:gochecknoglobals // fixed namespaces for name based uuids
var (
	uuidNamespace   = uuid.NewMD5(uuid.NameSpaceOID, []byte("pgbulk"))
	mutateNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("pgbulk-test"))
)

// sequence yields the deterministic values of one column.
type sequence func() any

func newSequence(t schema.Type) sequence {
	switch t { //nolint:exhaustive // TypeUnknown never reaches here
	case schema.TypeText, schema.TypeVarchar:
		s := ""
		return func() any {
			s = nextText(s)
			return s
		}
	case schema.TypeSmallInt:
		return counter(math.MinInt16)
	case schema.TypeInteger:
		return counter(math.MinInt32)
	case schema.TypeBigInt:
		return counter(math.MinInt64)
	case schema.TypeDouble:
		f := -1.0
		return func() any {
			f++
			return f
		}
	case schema.TypeBoolean:
		b := true
		return func() any {
			b = !b
			return b
		}
	case schema.TypeDate:
		return calendar(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	case schema.TypeTimestamp, schema.TypeTimestampTZ:
		return calendar(time.Date(2000, 1, 1, 1, 1, 0, 0, time.UTC))
	case schema.TypeInterval:
		n := int64(0)
		return func() any {
			n++
			return time.Duration(n) * time.Second
		}
	case schema.TypeUUID:
		n := 0
		return func() any {
			id := uuid.NewMD5(uuidNamespace, []byte(strconv.Itoa(n)))
			n++
			return id
		}
	case schema.TypeJSON, schema.TypeJSONB:
		n := 0
		return func() any {
			n++
			return fmt.Sprintf(`{"value": %d}`, n)
		}
	default:
		r := rand.New(rand.NewSource(blobSeed)) //nolint:gosec // reproducible fixtures
		return func() any {
			b := make([]byte, 16)
			_, _ = r.Read(b)
			return b
		}
	}
}

func counter(start int64) sequence {
	n := start
	first := true
	return func() any {
		if !first {
			n++
		}
		first = false
		return n
	}
}

// calendar steps by a day, a month and a day.
func calendar(start time.Time) sequence {
	t := start
	first := true
	return func() any {
		if !first {
			t = t.AddDate(0, 0, 1).AddDate(0, 1, 0).AddDate(0, 0, 1)
		}
		first = false
		return t
	}
}

// nextText counts a, b, ..., z, aa, ab, ...
func nextText(s string) string {
	if s == "" {
		return "a"
	}
	last := s[len(s)-1]
	rest := s[:len(s)-1]
	if last < 'z' {
		return rest + string(last+1)
	}
	return nextText(rest) + "a"
}
