package recurrence

import (
	"fmt"
	"strings"

	"github.com/teambition/rrule-go"
)

var rruleFrequencies = map[Frequency]rrule.Frequency{
	FrequencyYearly:   rrule.YEARLY,
	FrequencyMonthly:  rrule.MONTHLY,
	FrequencyWeekly:   rrule.WEEKLY,
	FrequencyDaily:    rrule.DAILY,
	FrequencyHourly:   rrule.HOURLY,
	FrequencyMinutely: rrule.MINUTELY,
	FrequencySecondly: rrule.SECONDLY,
}

var rruleWeekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ROption converts the rule into rrule-go options anchored at the rule's anchor date.
func (r *Rule) ROption() (*rrule.ROption, error) {
	if r == nil {
		return nil, fmt.Errorf("nil recurrence rule")
	}
	freq, ok := rruleFrequencies[r.Frequency]
	if !ok {
		return nil, fmt.Errorf("unsupported frequency %q", r.Frequency)
	}
	opt := &rrule.ROption{
		Freq:       freq,
		Interval:   r.Interval,
		Dtstart:    Day(r.AnchorDate),
		Bymonth:    r.ByMonth,
		Bymonthday: r.ByMonthDay,
		Byyearday:  r.ByYearDay,
		Byweekno:   r.ByWeekNo,
		Byhour:     r.ByHour,
		Byminute:   r.ByMinute,
		Bysecond:   r.BySecond,
		Bysetpos:   r.BySetPos,
		Wkst:       rruleWeekdays[r.weekStart()],
	}
	for _, wd := range r.ByWeekDays {
		day := rruleWeekdays[wd.Weekday]
		if wd.Ordinal != 0 {
			day = day.Nth(wd.Ordinal)
		}
		opt.Byweekday = append(opt.Byweekday, day)
	}
	return opt, nil
}

// RRule renders the rule as an RFC-5545 RRULE value, e.g. "FREQ=WEEKLY;BYDAY=MO,WE".
// Rules that cannot be represented render as an empty string.
func (r *Rule) RRule() string {
	opt, err := r.ROption()
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(opt.RRuleString(), "RRULE:")
}
