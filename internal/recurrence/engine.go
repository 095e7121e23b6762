package recurrence

import (
	"sort"
	"time"
)

const secondsPerDay = 86400

// Engine expands rules into calendar dates. It holds no state; the zero value is ready to use
// and safe for concurrent callers.
type Engine struct{}

// NewEngine returns an engine instance.
func NewEngine() *Engine { return &Engine{} }

// Generate implements the expansion for service consumers.
func (e *Engine) Generate(rule *Rule, start, end time.Time) []time.Time {
	return Generate(rule, start, end)
}

// Occurs reports whether the rule produces date.
func (e *Engine) Occurs(rule *Rule, date time.Time) bool {
	return Occurs(rule, date)
}

// maxStep caps the interval used for stepping. One step of maxStep days, weeks, months or
// years leaves the representable calendar, so clamping never changes the result and keeps
// the cursor arithmetic clear of overflow for rules stored without validation.
const maxStep = 1 << 22

// Generate returns the ascending, duplicate-free dates produced by rule within
// [start, end]. Nothing before the rule's anchor is ever produced. A nil rule yields nil.
func Generate(rule *Rule, start, end time.Time) []time.Time {
	if rule == nil {
		return nil
	}
	start, end = Day(start), Day(end)
	anchor := Day(rule.AnchorDate)
	lo := maxDay(start, anchor)
	if lo.After(end) {
		return nil
	}
	g := generator{rule: rule, anchor: anchor, lo: lo, hi: end, interval: rule.Interval}
	switch {
	case g.interval < 1:
		g.interval = 1
	case g.interval > maxStep:
		g.interval = maxStep
	}

	switch rule.Frequency {
	case FrequencyYearly:
		g.yearly()
	case FrequencyMonthly:
		g.monthly()
	case FrequencyWeekly:
		g.weekly()
	case FrequencyDaily:
		g.daily()
	case FrequencyHourly, FrequencyMinutely, FrequencySecondly:
		g.subDaily()
	}
	return sortUnique(g.out)
}

// Occurs reports whether rule produces date.
func Occurs(rule *Rule, date time.Time) bool {
	return len(Generate(rule, date, date)) == 1
}

type generator struct {
	rule     *Rule
	anchor   time.Time
	lo, hi   time.Time
	interval int
	out      []time.Time
}

// emit runs the limit filters and bySetPos over a window's candidates and keeps those in range.
func (g *generator) emit(candidates []time.Time) {
	kept := candidates[:0]
	for _, c := range candidates {
		if g.matches(c) {
			kept = append(kept, c)
		}
	}
	kept = sortUnique(kept)
	if len(g.rule.BySetPos) > 0 {
		kept = selectPositions(kept, g.rule.BySetPos)
	}
	for _, c := range kept {
		if !c.Before(g.lo) && !c.After(g.hi) {
			g.out = append(g.out, c)
		}
	}
}

func (g *generator) daily() {
	offset := DaysBetween(g.anchor, g.lo)
	k := ceilDiv(offset, g.interval)
	for d := AddDays(g.anchor, k*g.interval); !d.After(g.hi); d = d.AddDate(0, 0, g.interval) {
		g.emit([]time.Time{d})
	}
}

func (g *generator) subDaily() {
	unit, _ := g.rule.Frequency.subDailySeconds()
	// The clamped interval is too coarse for seconds, so the step is bounded in seconds instead.
	step := int64(secondsPerDay) * maxStep
	if interval := int64(g.rule.Interval); interval < 1 {
		step = unit
	} else if interval <= step/unit {
		step = unit * interval
	}
	for d := g.lo; !d.After(g.hi); d = d.AddDate(0, 0, 1) {
		offset := int64(DaysBetween(g.anchor, d))
		dayStart := offset * secondsPerDay
		first := ((dayStart + step - 1) / step) * step
		if first < dayStart+secondsPerDay {
			g.emit([]time.Time{d})
		}
	}
}

func (g *generator) weekly() {
	ws := g.rule.weekStart()
	anchorWeek := weekStartOf(g.anchor, ws)
	weeks := DaysBetween(anchorWeek, weekStartOf(g.lo, ws)) / 7
	k := ceilDiv(weeks, g.interval)
	for w := AddDays(anchorWeek, k*g.interval*7); !w.After(g.hi); w = w.AddDate(0, 0, 7*g.interval) {
		var candidates []time.Time
		if len(g.rule.ByWeekDays) == 0 {
			candidates = append(candidates, AddDays(w, (int(g.anchor.Weekday())-int(ws)+7)%7))
		} else {
			for _, wd := range g.rule.ByWeekDays {
				candidates = append(candidates, AddDays(w, (int(wd.Weekday)-int(ws)+7)%7))
			}
		}
		g.emit(candidates)
	}
}

func (g *generator) monthly() {
	anchorIdx := monthIndex(g.anchor)
	k := ceilDiv(monthIndex(g.lo)-anchorIdx, g.interval)
	for idx := anchorIdx + k*g.interval; ; idx += g.interval {
		year, month := idx/12, time.Month(idx%12+1)
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		if first.After(g.hi) {
			return
		}
		g.emit(g.expandMonth(year, month))
	}
}

func (g *generator) yearly() {
	// ISO week expansion can spill a few days into neighbouring years.
	k := ceilDiv(g.lo.Year()-1-g.anchor.Year(), g.interval)
	if k < 0 {
		k = 0
	}
	for year := g.anchor.Year() + k*g.interval; year <= g.hi.Year()+1; year += g.interval {
		g.emit(g.expandYear(year))
	}
}

// expandMonth lists the candidates of one month window.
func (g *generator) expandMonth(year int, month time.Month) []time.Time {
	r := g.rule
	dim := daysInMonth(year, month)
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month, dim, 0, 0, 0, 0, time.UTC)

	var byDay, byWeekday []time.Time
	for _, md := range r.ByMonthDay {
		if n := resolveSigned(md, dim); n > 0 {
			byDay = append(byDay, time.Date(year, month, n, 0, 0, 0, 0, time.UTC))
		}
	}
	byWeekday = expandWeekdays(r.ByWeekDays, first, last)

	switch {
	case len(r.ByMonthDay) > 0 && len(r.ByWeekDays) > 0:
		return intersect(byDay, byWeekday)
	case len(r.ByMonthDay) > 0:
		return byDay
	case len(r.ByWeekDays) > 0:
		return byWeekday
	}
	if day := g.anchor.Day(); day <= dim {
		return []time.Time{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
	}
	return nil
}

// expandYear lists the candidates of one year window. byYearDay takes precedence over
// byWeekNo, which takes precedence over month based expansion.
func (g *generator) expandYear(year int) []time.Time {
	r := g.rule
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	dec31 := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	var out []time.Time

	switch {
	case len(r.ByYearDay) > 0:
		size := daysInYear(year)
		for _, yd := range r.ByYearDay {
			if n := resolveSigned(yd, size); n > 0 {
				out = append(out, AddDays(jan1, n-1))
			}
		}
	case len(r.ByWeekNo) > 0:
		weeks := isoWeeksInYear(year)
		for _, wn := range r.ByWeekNo {
			n := resolveSigned(wn, weeks)
			if n == 0 {
				continue
			}
			monday := isoWeekMonday(year, n)
			if len(r.ByWeekDays) == 0 {
				out = append(out, AddDays(monday, (int(g.anchor.Weekday())+6)%7))
				continue
			}
			for _, wd := range r.ByWeekDays {
				out = append(out, AddDays(monday, (int(wd.Weekday)+6)%7))
			}
		}
	case len(r.ByWeekDays) > 0 && len(r.ByMonth) == 0 && len(r.ByMonthDay) == 0:
		out = expandWeekdays(r.ByWeekDays, jan1, dec31)
	default:
		months := r.ByMonth
		if len(months) == 0 {
			months = []int{int(g.anchor.Month())}
		}
		for _, m := range months {
			out = append(out, g.expandMonth(year, time.Month(m))...)
		}
	}
	return out
}

// matches applies every present BY* constraint as a limit.
func (g *generator) matches(d time.Time) bool {
	r := g.rule
	if len(r.ByMonth) > 0 && !containsInt(r.ByMonth, int(d.Month())) {
		return false
	}
	if len(r.ByMonthDay) > 0 && !matchesSigned(r.ByMonthDay, d.Day(), daysInMonth(d.Year(), d.Month())) {
		return false
	}
	if len(r.ByYearDay) > 0 && !matchesSigned(r.ByYearDay, d.YearDay(), daysInYear(d.Year())) {
		return false
	}
	if len(r.ByWeekNo) > 0 {
		isoYear, week := d.ISOWeek()
		if !matchesSigned(r.ByWeekNo, week, isoWeeksInYear(isoYear)) {
			return false
		}
	}
	if len(r.ByWeekDays) > 0 {
		found := false
		for _, wd := range r.ByWeekDays {
			if wd.Weekday == d.Weekday() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// expandWeekdays resolves weekday symbols inside [from, to]; ordinal 0 keeps every match.
func expandWeekdays(days []WeekdayNum, from, to time.Time) []time.Time {
	var out []time.Time
	for _, wd := range days {
		if wd.Ordinal == 0 {
			out = append(out, weekdaysIn(from, to, wd.Weekday)...)
			continue
		}
		if d, ok := nthWeekday(from, to, wd.Weekday, wd.Ordinal); ok {
			out = append(out, d)
		}
	}
	return out
}

func selectPositions(sorted []time.Time, positions []int) []time.Time {
	var out []time.Time
	for _, p := range positions {
		if idx := resolveSigned(p, len(sorted)); idx > 0 {
			out = append(out, sorted[idx-1])
		}
	}
	return sortUnique(out)
}

func matchesSigned(values []int, position, size int) bool {
	for _, v := range values {
		if resolveSigned(v, size) == position {
			return true
		}
	}
	return false
}

func intersect(a, b []time.Time) []time.Time {
	set := make(map[time.Time]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	var out []time.Time
	for _, t := range a {
		if _, ok := set[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func sortUnique(dates []time.Time) []time.Time {
	if len(dates) < 2 {
		return dates
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := dates[:1]
	for _, d := range dates[1:] {
		if !d.Equal(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return out
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// ceilDiv divides rounding toward positive infinity, clamping negatives to zero.
func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// Between expands the rule over [start, end].
func (r *Rule) Between(start, end time.Time) []time.Time {
	return Generate(r, start, end)
}
