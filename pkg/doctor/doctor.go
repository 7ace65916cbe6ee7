// Package doctor models a doctor's identity and duty preferences.
package doctor

import "github.com/covermd/dutyplanner/pkg/calendar"

// Preferences holds one doctor's duty preferences for a single month.
type Preferences struct {
	Exceptions            map[int]bool
	RequestedDays         map[int]bool
	PreferredWeekdays     map[calendar.Weekday]bool
	PreferredPositions    map[int]bool
	MaximumAcceptedDuties int
}

// NewPreferences builds a Preferences from slices (as decoded from the
// input document), converting them into sets for O(1) membership checks.
func NewPreferences(exceptions, requestedDays []int, preferredWeekdays []calendar.Weekday, preferredPositions []int, maxDuties int) Preferences {
	p := Preferences{
		Exceptions:            toSet(exceptions),
		RequestedDays:         toSet(requestedDays),
		PreferredWeekdays:     map[calendar.Weekday]bool{},
		PreferredPositions:    toSet(preferredPositions),
		MaximumAcceptedDuties: maxDuties,
	}
	for _, wd := range preferredWeekdays {
		p.PreferredWeekdays[wd] = true
	}
	return p
}

func toSet(nums []int) map[int]bool {
	s := make(map[int]bool, len(nums))
	for _, n := range nums {
		s[n] = true
	}
	return s
}

// RequestedDaysSorted returns the requested days as a sorted slice, useful
// wherever a deterministic iteration order matters.
func (p Preferences) RequestedDaysSorted() []int {
	return sortedKeys(p.RequestedDays)
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// NoWeekendDuties reports whether the doctor's weekday preferences exclude
// Friday, Saturday and Sunday entirely — used by the ThursdayIsOrdinary
// strain modifier.
func (p Preferences) NoWeekendDuties() bool {
	return !p.PreferredWeekdays[calendar.Friday] && !p.PreferredWeekdays[calendar.Saturday] && !p.PreferredWeekdays[calendar.Sunday]
}

// Doctor is one scheduling participant: stable identity plus mutable
// per-month preferences and neighbouring-month context.
type Doctor struct {
	PK              int
	Name            string
	LastMonthDuties map[int]bool
	NextMonthDuties map[int]bool
	Preferences     Preferences
}

// New builds a Doctor. lastMonthDuties and nextMonthDuties are day numbers
// in the adjacent months' own numbering.
func New(pk int, name string, lastMonthDuties, nextMonthDuties []int, prefs Preferences) *Doctor {
	return &Doctor{
		PK:              pk,
		Name:            name,
		LastMonthDuties: toSet(lastMonthDuties),
		NextMonthDuties: toSet(nextMonthDuties),
		Preferences:     prefs,
	}
}

// ClampMaxDuties enforces the invariant from spec.md §3: maximum-accepted-
// duties never exceeds floor(daysInMonth/2).
func (d *Doctor) ClampMaxDuties(daysInMonth int) {
	limit := daysInMonth / 2
	if d.Preferences.MaximumAcceptedDuties > limit {
		d.Preferences.MaximumAcceptedDuties = limit
	}
}

// HasException reports whether day is in the doctor's exceptions.
func (d *Doctor) HasException(day int) bool {
	return d.Preferences.Exceptions[day]
}

// RequestsDay reports whether the doctor demands to be scheduled on day.
func (d *Doctor) RequestsDay(day int) bool {
	return d.Preferences.RequestedDays[day]
}

// AcceptsWeekday reports whether the doctor is willing to work this weekday.
func (d *Doctor) AcceptsWeekday(wd calendar.Weekday) bool {
	return d.Preferences.PreferredWeekdays[wd]
}

// AcceptsPosition reports whether the doctor is willing to fill this
// position.
func (d *Doctor) AcceptsPosition(position int) bool {
	return d.Preferences.PreferredPositions[position]
}

// String renders a short, readable identifier for error messages.
func (d *Doctor) String() string {
	return d.Name
}
