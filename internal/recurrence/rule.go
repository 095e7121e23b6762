package recurrence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency is the base cadence of a rule.
type Frequency string

// Supported frequencies.
const (
	FrequencySecondly Frequency = "SECONDLY"
	FrequencyMinutely Frequency = "MINUTELY"
	FrequencyHourly   Frequency = "HOURLY"
	FrequencyDaily    Frequency = "DAILY"
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
	FrequencyYearly   Frequency = "YEARLY"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencySecondly, FrequencyMinutely, FrequencyHourly,
		FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// subDailySeconds returns the cadence unit in seconds for sub-daily frequencies.
func (f Frequency) subDailySeconds() (int64, bool) {
	switch f {
	case FrequencySecondly:
		return 1, true
	case FrequencyMinutely:
		return 60, true
	case FrequencyHourly:
		return 3600, true
	default:
		return 0, false
	}
}

var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// WeekdayNum is a weekday with an optional signed ordinal ("2TU" = second Tuesday,
// "-1FR" = last Friday). Ordinal 0 means every such weekday in the period.
type WeekdayNum struct {
	Ordinal int
	Weekday time.Weekday
}

// ParseWeekdayNum parses RFC-5545 BYDAY notation.
func ParseWeekdayNum(raw string) (WeekdayNum, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) < 2 {
		return WeekdayNum{}, fmt.Errorf("invalid weekday %q", raw)
	}
	code := s[len(s)-2:]
	day := -1
	for i, c := range weekdayCodes {
		if c == code {
			day = i
			break
		}
	}
	if day < 0 {
		return WeekdayNum{}, fmt.Errorf("invalid weekday %q", raw)
	}
	wd := WeekdayNum{Weekday: time.Weekday(day)}
	if prefix := s[:len(s)-2]; prefix != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(prefix, "+"))
		if err != nil || n == 0 {
			return WeekdayNum{}, fmt.Errorf("invalid weekday ordinal %q", raw)
		}
		wd.Ordinal = n
	}
	return wd, nil
}

// String renders the weekday in RFC-5545 notation.
func (w WeekdayNum) String() string {
	code := weekdayCodes[int(w.Weekday)%7]
	if w.Ordinal == 0 {
		return code
	}
	return strconv.Itoa(w.Ordinal) + code
}

// MarshalText implements encoding.TextMarshaler.
func (w WeekdayNum) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WeekdayNum) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekdayNum(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Rule describes a repetition pattern anchored at AnchorDate. It is a value object:
// callers replace it as a whole rather than mutating fields in place.
type Rule struct {
	Frequency  Frequency    `json:"frequency" yaml:"frequency"`
	Interval   int          `json:"interval" yaml:"interval"`
	ByWeekDays []WeekdayNum `json:"byWeekDays,omitempty" yaml:"byWeekDays,omitempty"`
	ByMonth    []int        `json:"byMonth,omitempty" yaml:"byMonth,omitempty"`
	ByMonthDay []int        `json:"byMonthDay,omitempty" yaml:"byMonthDay,omitempty"`
	ByYearDay  []int        `json:"byYearDay,omitempty" yaml:"byYearDay,omitempty"`
	ByWeekNo   []int        `json:"byWeekNo,omitempty" yaml:"byWeekNo,omitempty"`
	ByHour     []int        `json:"byHour,omitempty" yaml:"byHour,omitempty"`
	ByMinute   []int        `json:"byMinute,omitempty" yaml:"byMinute,omitempty"`
	BySecond   []int        `json:"bySecond,omitempty" yaml:"bySecond,omitempty"`
	BySetPos   []int        `json:"bySetPos,omitempty" yaml:"bySetPos,omitempty"`
	WeekStart  *WeekdayNum  `json:"weekStart,omitempty" yaml:"weekStart,omitempty"`
	AnchorDate time.Time    `json:"anchorDate" yaml:"anchorDate"`
	Timezone   string       `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Clone returns a deep copy so callers can derive a new rule without aliasing slices.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	out := *r
	out.ByWeekDays = append([]WeekdayNum(nil), r.ByWeekDays...)
	out.ByMonth = append([]int(nil), r.ByMonth...)
	out.ByMonthDay = append([]int(nil), r.ByMonthDay...)
	out.ByYearDay = append([]int(nil), r.ByYearDay...)
	out.ByWeekNo = append([]int(nil), r.ByWeekNo...)
	out.ByHour = append([]int(nil), r.ByHour...)
	out.ByMinute = append([]int(nil), r.ByMinute...)
	out.BySecond = append([]int(nil), r.BySecond...)
	out.BySetPos = append([]int(nil), r.BySetPos...)
	if r.WeekStart != nil {
		ws := *r.WeekStart
		out.WeekStart = &ws
	}
	return &out
}

// WithAnchor returns a copy of the rule re-anchored at date.
func (r *Rule) WithAnchor(date time.Time) *Rule {
	out := r.Clone()
	if out != nil {
		out.AnchorDate = Day(date)
	}
	return out
}

func (r *Rule) weekStart() time.Weekday {
	if r.WeekStart == nil {
		return time.Monday
	}
	return r.WeekStart.Weekday
}

// Location resolves the rule's timezone, defaulting to UTC. Only callers that need
// local-day boundaries for time-of-day metadata use it.
func (r *Rule) Location() *time.Location {
	if r == nil || r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Value implements driver.Valuer storing the rule as JSON text. lib/pq would send a
// []byte as bytea, which JSONB columns reject.
func (r *Rule) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal recurrence rule: %w", err)
	}
	return string(payload), nil
}

// Scan implements sql.Scanner reading the JSON column.
func (r *Rule) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = Rule{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan recurrence rule: unsupported type %T", src)
	}
	var decoded Rule
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("unmarshal recurrence rule: %w", err)
	}
	decoded.AnchorDate = Day(decoded.AnchorDate)
	*r = decoded
	return nil
}
