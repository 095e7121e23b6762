package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// MaxInterval bounds the cadence multiplier of a rule.
const MaxInterval = 10000

// FieldError describes a single invalid rule attribute.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors aggregates every problem found in a rule.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid recurrence rule: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, format string, args ...interface{}) {
	*v = append(*v, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks r. See Validate.
func (r *Rule) Validate() error {
	return Validate(r)
}

// Validate checks a rule and reports all violations at once. A nil rule is valid
// and denotes a one-shot series.
func Validate(r *Rule) error {
	if r == nil {
		return nil
	}
	var errs ValidationErrors

	if !r.Frequency.Valid() {
		errs.add("frequency", "unsupported frequency %q", r.Frequency)
	}
	switch {
	case r.Interval < 1:
		errs.add("interval", "must be at least 1")
	case r.Interval > MaxInterval:
		errs.add("interval", "must be at most %d", MaxInterval)
	}
	if r.AnchorDate.IsZero() {
		errs.add("anchorDate", "is required")
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			errs.add("timezone", "unknown timezone %q", r.Timezone)
		}
	}

	for i, wd := range r.ByWeekDays {
		field := fmt.Sprintf("byWeekDays[%d]", i)
		if wd.Weekday < time.Sunday || wd.Weekday > time.Saturday {
			errs.add(field, "invalid weekday")
			continue
		}
		if wd.Ordinal == 0 {
			continue
		}
		switch r.Frequency {
		case FrequencyMonthly:
			if wd.Ordinal < -5 || wd.Ordinal > 5 {
				errs.add(field, "ordinal must be within ±1..5 for MONTHLY")
			}
		case FrequencyYearly:
			if wd.Ordinal < -53 || wd.Ordinal > 53 {
				errs.add(field, "ordinal must be within ±1..53 for YEARLY")
			}
		default:
			errs.add(field, "ordinal weekdays are only allowed for MONTHLY or YEARLY")
		}
	}

	checkRange(&errs, "byMonth", r.ByMonth, 1, 12, false)
	checkRange(&errs, "byMonthDay", r.ByMonthDay, 1, 31, true)
	checkRange(&errs, "byYearDay", r.ByYearDay, 1, 366, true)
	checkRange(&errs, "byWeekNo", r.ByWeekNo, 1, 53, true)
	checkRange(&errs, "byHour", r.ByHour, 0, 23, false)
	checkRange(&errs, "byMinute", r.ByMinute, 0, 59, false)
	checkRange(&errs, "bySecond", r.BySecond, 0, 59, false)
	checkRange(&errs, "bySetPos", r.BySetPos, 1, 366, true)

	if r.WeekStart != nil && r.WeekStart.Ordinal != 0 {
		errs.add("weekStart", "must not carry an ordinal")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// checkRange validates values against [lo,hi]; signed also accepts [-hi,-lo].
func checkRange(errs *ValidationErrors, field string, values []int, lo, hi int, signed bool) {
	for i, v := range values {
		ok := v >= lo && v <= hi
		if signed && v < 0 {
			ok = -v >= lo && -v <= hi
		}
		if !ok {
			if signed {
				errs.add(fmt.Sprintf("%s[%d]", field, i), "must be within ±%d..%d", lo, hi)
			} else {
				errs.add(fmt.Sprintf("%s[%d]", field, i), "must be within %d..%d", lo, hi)
			}
		}
	}
}
