package numbering

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is returned by Parse for numbers outside PREFIX-YYYY-MM-SEQ.
var ErrMalformed = errors.New("numbering: malformed document number")

// Format renders PREFIX-YYYY-MM-SEQ with seq padded to at least three digits.
func Format(prefix string, date time.Time, seq int64) string {
	return fmt.Sprintf("%s%03d", Pattern(prefix, date), seq)
}

// Pattern returns the PREFIX-YYYY-MM- stem shared by every number of a period.
func Pattern(prefix string, date time.Time) string {
	return fmt.Sprintf("%s-%04d-%02d-", prefix, date.Year(), int(date.Month()))
}

// Period returns the YYYY-MM counter bucket of date.
func Period(date time.Time) string {
	return date.Format("2006-01")
}

// Parsed is the decomposed form of a document number.
type Parsed struct {
	Prefix string
	Year   int
	Month  int
	Seq    int64
}

// Parse splits a number produced by Format. The sequence suffix is read whole,
// so numbers past 999 parse correctly.
func Parse(number string) (Parsed, error) {
	parts := strings.Split(number, "-")
	if len(parts) < 4 {
		return Parsed{}, fmt.Errorf("%w: %q", ErrMalformed, number)
	}
	n := len(parts)
	prefix := strings.Join(parts[:n-3], "-")
	year, errY := strconv.Atoi(parts[n-3])
	month, errM := strconv.Atoi(parts[n-2])
	seq, errS := strconv.ParseInt(parts[n-1], 10, 64)
	if prefix == "" || errY != nil || errM != nil || errS != nil ||
		len(parts[n-3]) != 4 || month < 1 || month > 12 || seq < 1 {
		return Parsed{}, fmt.Errorf("%w: %q", ErrMalformed, number)
	}
	return Parsed{Prefix: prefix, Year: year, Month: month, Seq: seq}, nil
}

// HighestSeq scans numbers for the given prefix and period and returns the
// largest sequence found, or 0. Numbers of other periods or prefixes and
// unparseable suffixes are ignored.
func HighestSeq(numbers []string, prefix string, date time.Time) int64 {
	stem := Pattern(prefix, date)
	var highest int64
	for _, number := range numbers {
		if !strings.HasPrefix(number, stem) {
			continue
		}
		seq, err := strconv.ParseInt(strings.TrimPrefix(number, stem), 10, 64)
		if err != nil || seq < 1 {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return highest
}
