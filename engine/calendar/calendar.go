// Package calendar implements the bijection between wall-clock datetimes and
// working-time units (WTU) described in spec §4.1 (component C1), plus the
// lag arithmetic used by the CP Model Builder and the Local Repair Engine.
//
// A WTU is an integer where ScaleFactor units equal one working hour.
// Working days run Monday-Friday, WorkStartHour:00 to WorkEndHour:00 local
// time; the project start date anchors unit 0 at WorkStartHour:00 on that
// date. All datetimes handled here are local-naive (no timezone), per
// spec §9's "single local-naive datetime domain".
package calendar

import "time"

// Calendar converts between WTU and datetime for one project.
type Calendar struct {
	projectStart  time.Time // truncated to midnight of the start date
	workStartHour int
	workEndHour   int
	scaleFactor   int
}

// New returns a Calendar anchored at projectStart (any time of day; only the
// date is used) with the given working-hour window and scale factor.
func New(projectStart time.Time, workStartHour, workEndHour, scaleFactor int) *Calendar {
	return &Calendar{
		projectStart:  dateOnly(projectStart),
		workStartHour: workStartHour,
		workEndHour:   workEndHour,
		scaleFactor:   scaleFactor,
	}
}

// WorkHoursPerDay is the number of working hours in a day.
func (c *Calendar) WorkHoursPerDay() int { return c.workEndHour - c.workStartHour }

// UnitsPerDay is the number of WTU in one working day.
func (c *Calendar) UnitsPerDay() int { return c.WorkHoursPerDay() * c.scaleFactor }

// ProjectStart returns the anchor date (at midnight).
func (c *Calendar) ProjectStart() time.Time { return c.projectStart }

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsWorkingDay reports whether t falls on a weekday (Mon-Fri).
func IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (c *Calendar) workStartOf(date time.Time) time.Time {
	d := dateOnly(date)
	return d.Add(time.Duration(c.workStartHour) * time.Hour)
}

func (c *Calendar) workEndOf(date time.Time) time.Time {
	d := dateOnly(date)
	return d.Add(time.Duration(c.workEndHour) * time.Hour)
}

// workingDaysBetween counts working days in the half-open range (start, end],
// i.e. how many times a day-by-day walk from start to end lands on a
// working day. This is the exact inverse of the day-advance loop WTUToDatetime
// uses, which guarantees the calendar bijection invariant.
func workingDaysBetween(start, end time.Time) int {
	cur := dateOnly(start)
	target := dateOnly(end)
	count := 0
	for cur.Before(target) {
		cur = cur.AddDate(0, 0, 1)
		if IsWorkingDay(cur) {
			count++
		}
	}
	return count
}

// WTUToDatetime interprets u = d*UnitsPerDay + r; advances the calendar by d
// working days (skipping weekends) from project start, then adds r/scale
// hours past WorkStartHour. The result always falls in
// [WorkStartHour, WorkEndHour) on a Mon-Fri.
func (c *Calendar) WTUToDatetime(u int) time.Time {
	unitsPerDay := c.UnitsPerDay()
	days := u / unitsPerDay
	rem := u % unitsPerDay
	if rem < 0 {
		// keep d/r both non-negative for negative u (shouldn't occur in
		// practice, but integer division with negative operands would
		// otherwise produce an out-of-range remainder)
		rem += unitsPerDay
		days--
	}
	cur := c.projectStart
	counted := 0
	for counted < days {
		cur = cur.AddDate(0, 0, 1)
		if IsWorkingDay(cur) {
			counted++
		}
	}
	offset := time.Duration(c.workStartHour)*time.Hour + time.Duration(rem)*time.Hour/time.Duration(c.scaleFactor)
	return cur.Add(offset)
}

// clampForConversion implements datetime_to_wtu's clamp rule literally: a
// weekend or before-open instant moves forward to the next working open;
// an after-close instant clamps back to that same day's close.
func (c *Calendar) clampForConversion(t time.Time) time.Time {
	if !IsWorkingDay(t) {
		next := dateOnly(t)
		for !IsWorkingDay(next) {
			next = next.AddDate(0, 0, 1)
		}
		return c.workStartOf(next)
	}
	start := c.workStartOf(t)
	end := c.workEndOf(t)
	if t.Before(start) {
		return start
	}
	if t.After(end) {
		return end
	}
	return t
}

// DatetimeToWTU converts t to its WTU, clamping per the rule above.
func (c *Calendar) DatetimeToWTU(t time.Time) int {
	clamped := c.clampForConversion(t)
	days := workingDaysBetween(c.projectStart, clamped)
	start := c.workStartOf(clamped)
	hourOffset := clamped.Sub(start)
	units := days*c.UnitsPerDay() + int(hourOffset*time.Duration(c.scaleFactor)/time.Hour)
	if units < 0 {
		units = 0
	}
	return units
}

// NextWorkingInstant returns the earliest working instant >= t: t unchanged
// if it already falls within a working window, otherwise the next working
// day's open. Unlike clampForConversion, an after-close instant also moves
// forward (to the next day), never backward to the same day's close — this
// is the "next_working" helper the cascade and free-slot finder use.
func (c *Calendar) NextWorkingInstant(t time.Time) time.Time {
	if IsWorkingDay(t) {
		start := c.workStartOf(t)
		end := c.workEndOf(t)
		if !t.Before(start) && t.Before(end) {
			return t
		}
		if t.Before(start) {
			return start
		}
		// at or after close: advance to next working day
	}
	next := dateOnly(t).AddDate(0, 0, 1)
	for !IsWorkingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return c.workStartOf(next)
}

// AddLag converts endWTU to a datetime, adds lagHours of calendar (wall
// clock) time, then forward-clamps to the next working instant, returning
// the result as a WTU. Lag traverses calendar time, not working time: a
// 24-hour lag starting Friday at close lands at Monday's open. An endWTU
// on a day boundary is read as the previous working day's close.
func (c *Calendar) AddLag(endWTU int, lagHours float64) int {
	dt := c.WTUToDatetime(endWTU)
	if endWTU > 0 && endWTU%c.UnitsPerDay() == 0 {
		dt = c.workEndOf(c.WTUToDatetime(endWTU - 1))
	}
	shifted := dt.Add(time.Duration(lagHours * float64(time.Hour)))
	working := c.NextWorkingInstant(shifted)
	return c.DatetimeToWTU(working)
}

// AvgUnitsPerCalendarHour is the fallback linear-bound rate used by the CP
// Model Builder (§4.3): scale_factor * work_hours_per_day / 24.
func (c *Calendar) AvgUnitsPerCalendarHour() float64 {
	return float64(c.scaleFactor) * float64(c.WorkHoursPerDay()) / 24.0
}

// Horizon returns horizonDays * UnitsPerDay, the CP model's finite horizon H.
func (c *Calendar) Horizon(horizonDays int) int {
	return horizonDays * c.UnitsPerDay()
}
