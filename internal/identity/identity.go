// Package identity derives stable external identifiers for occurrences without storage.
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/recurring-todo-api/internal/recurrence"
)

const separator = ":"

// ErrMalformed is returned when an identity cannot be decoded.
var ErrMalformed = errors.New("malformed occurrence identity")

// Identity addresses one occurrence of a series by its day offset from the anchor.
type Identity struct {
	SeriesID string
	Offset   int
}

// New builds the identity of the occurrence on date for a series anchored at anchor.
func New(seriesID string, anchor, date time.Time) Identity {
	return Identity{SeriesID: seriesID, Offset: recurrence.DaysBetween(anchor, date)}
}

// Encode renders "{seriesId}:{offset}".
func Encode(seriesID string, anchor, date time.Time) string {
	return New(seriesID, anchor, date).String()
}

func (i Identity) String() string {
	return i.SeriesID + separator + strconv.Itoa(i.Offset)
}

// Date resolves the occurrence date relative to anchor.
func (i Identity) Date(anchor time.Time) time.Time {
	return recurrence.AddDays(anchor, i.Offset)
}

// Decode parses an identity. The offset follows the last separator so series ids may
// themselves contain colons. Negative offsets are accepted since anchor edits can leave
// materialized rows before the current anchor.
func Decode(raw string) (Identity, error) {
	idx := strings.LastIndex(raw, separator)
	if idx <= 0 || idx == len(raw)-1 {
		return Identity{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	offset, err := strconv.Atoi(raw[idx+1:])
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	return Identity{SeriesID: raw[:idx], Offset: offset}, nil
}

// Compare orders identities by series id then numeric offset.
func Compare(a, b Identity) int {
	if c := strings.Compare(a.SeriesID, b.SeriesID); c != 0 {
		return c
	}
	switch {
	case a.Offset < b.Offset:
		return -1
	case a.Offset > b.Offset:
		return 1
	default:
		return 0
	}
}
