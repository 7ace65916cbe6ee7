// Package preflight runs the fixed pipeline of validators that must pass
// before a DutySchedule can be attempted (spec.md §4.5). Each validator
// collects every violation it finds rather than failing on the first;
// the pipeline stops at the first validator that reports any.
package preflight

import (
	"fmt"
	"sort"

	"github.com/covermd/dutyplanner/pkg/availability"
	"github.com/covermd/dutyplanner/pkg/doctor"
	"github.com/covermd/dutyplanner/pkg/duty"
)

// Validator checks one precondition for duty assignment and returns the
// list of violations it found (empty if none).
type Validator interface {
	Validate(doctors []*doctor.Doctor, schedule *duty.DutySchedule) []string
}

// Run executes the fixed validator pipeline in order, stopping at the
// first validator that reports errors.
func Run(doctors []*doctor.Doctor, schedule *duty.DutySchedule) []string {
	pipeline := []Validator{
		PositionCountValidator{},
		DoctorCountValidator{},
		PreferencesCoherenceValidator{},
		RequestedDaysConflictsValidator{},
		DailyDoctorAvailabilityValidator{},
		BidailyDoctorAvailabilityValidator{},
	}

	for _, v := range pipeline {
		if errs := v.Validate(doctors, schedule); len(errs) > 0 {
			return errs
		}
	}
	return nil
}

// PositionCountValidator guards the cheap preconditions that every other
// validator assumes: at least one duty position per day, and a calendar
// that actually has days to fill.
type PositionCountValidator struct{}

func (PositionCountValidator) Validate(doctors []*doctor.Doctor, schedule *duty.DutySchedule) []string {
	var errs []string
	if schedule.Positions < 1 {
		errs = append(errs, fmt.Sprintf("doctors_per_duty must be at least 1, got %d", schedule.Positions))
	}
	if schedule.NumDays() < 1 {
		errs = append(errs, "schedule has no days to fill")
	}
	return errs
}

// DoctorCountValidator requires at least twice as many doctors as
// positions, since the algorithm can never assign the same doctor to
// adjacent days.
type DoctorCountValidator struct{}

func (DoctorCountValidator) Validate(doctors []*doctor.Doctor, schedule *duty.DutySchedule) []string {
	minimum := schedule.Positions * 2
	if len(doctors) < minimum {
		return []string{fmt.Sprintf("not enough doctors to fill all positions; minimum required: %d, actual: %d", minimum, len(doctors))}
	}
	return nil
}

// PreferencesCoherenceValidator checks each doctor's preferences are
// internally consistent, independent of every other doctor.
type PreferencesCoherenceValidator struct{}

func (PreferencesCoherenceValidator) Validate(doctors []*doctor.Doctor, schedule *duty.DutySchedule) []string {
	var errs []string
	for _, d := range doctors {
		errs = append(errs, noConsecutiveRequestedDays(d)...)
		errs = append(errs, noRequestedDayExceptionOverlap(d)...)
		errs = append(errs, enoughDutiesAccepted(d)...)
	}
	return errs
}

func noConsecutiveRequestedDays(d *doctor.Doctor) []string {
	days := d.Preferences.RequestedDaysSorted()
	var doubles []string
	for _, day := range days {
		if d.Preferences.RequestedDays[day+1] {
			doubles = append(doubles, fmt.Sprintf("%d and %d", day, day+1))
		}
	}
	if len(doubles) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%s would be assigned double duties on the following days: %s", d, joinStrings(doubles))}
}

func noRequestedDayExceptionOverlap(d *doctor.Doctor) []string {
	var conflicts []int
	for _, day := range d.Preferences.RequestedDaysSorted() {
		if d.HasException(day) {
			conflicts = append(conflicts, day)
		}
	}
	if len(conflicts) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%s both requests and excludes day(s): %s", d, joinInts(conflicts))}
}

func enoughDutiesAccepted(d *doctor.Doctor) []string {
	requested := len(d.Preferences.RequestedDays)
	if requested > d.Preferences.MaximumAcceptedDuties {
		return []string{fmt.Sprintf("%s requests duties on %d days, but would accept only %d", d, requested, d.Preferences.MaximumAcceptedDuties)}
	}
	return nil
}

// RequestedDaysConflictsValidator checks that every requested day can be
// satisfied without over-subscribing positions, simulating the
// allocation spec.md §4.5 describes (ascending by preferred-position
// count, seeded with already-user-filled positions).
type RequestedDaysConflictsValidator struct{}

func (RequestedDaysConflictsValidator) Validate(doctors []*doctor.Doctor, schedule *duty.DutySchedule) []string {
	var errs []string

	requestersByDay := map[int][]*doctor.Doctor{}
	for _, d := range doctors {
		for _, day := range d.Preferences.RequestedDaysSorted() {
			requestersByDay[day] = append(requestersByDay[day], d)
		}
	}

	days := make([]int, 0, len(requestersByDay))
	for day := range requestersByDay {
		days = append(days, day)
	}
	sort.Ints(days)

	for _, day := range days {
		requesters := requestersByDay[day]
		row, err := schedule.Row(day)
		if err != nil {
			continue
		}

		free := row.FreePositions()
		if len(free) == 0 {
			errs = append(errs, fmt.Sprintf("day %d is already fully filled by user but was requested by %s", day, namesOf(requesters)))
			continue
		}

		sorted := append([]*doctor.Doctor(nil), requesters...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return len(sorted[i].Preferences.PreferredPositions) < len(sorted[j].Preferences.PreferredPositions)
		})

		initial := schedule.Positions - len(free)
		union := map[int]bool{}

		for k, d := range sorted {
			for p := range d.Preferences.PreferredPositions {
				if free[p] {
					union[p] = true
				}
			}
			if len(union) < (k+1)+initial {
				errs = append(errs, fmt.Sprintf("duty on day %d was requested by %s but not enough positions are available", day, d))
				break
			}
		}
	}

	return errs
}

// DailyDoctorAvailabilityValidator requires stages 1-3 to have already
// passed (enforced by pipeline order). It builds the availability
// projection and checks no position on any day is left with zero
// candidates, and every day's combined candidate pool covers every
// position.
type DailyDoctorAvailabilityValidator struct{}

func (DailyDoctorAvailabilityValidator) Validate(doctors []*doctor.Doctor, schedule *duty.DutySchedule) []string {
	var errs []string
	avail := availability.Project(doctors, schedule)

	for day := 1; day <= schedule.NumDays(); day++ {
		row := avail.Row(day)
		for position := 1; position <= avail.Positions; position++ {
			if len(row.Candidates[position-1]) == 0 {
				errs = append(errs, fmt.Sprintf("no doctors available for duty on day %d, position %d", day, position))
			}
		}
		allPositions := make([]int, avail.Positions)
		for p := range allPositions {
			allPositions[p] = p + 1
		}
		if len(row.DoctorsForPositions(allPositions...)) < avail.Positions {
			errs = append(errs, fmt.Sprintf("day %d does not have enough available doctors to cover every position", day))
		}
	}
	return errs
}

// BidailyDoctorAvailabilityValidator checks every consecutive day pair:
// for every non-empty subset of positions, the union of candidates
// across both days must be at least twice the subset size (since a
// doctor cannot work both days). Violations whose position-set is a
// subset of an already-reported one for the same day-pair are skipped.
type BidailyDoctorAvailabilityValidator struct{}

func (BidailyDoctorAvailabilityValidator) Validate(doctors []*doctor.Doctor, schedule *duty.DutySchedule) []string {
	var errs []string
	avail := availability.Project(doctors, schedule)

	for day := 1; day < schedule.NumDays(); day++ {
		errs = append(errs, checkDayPair(avail, day, day+1)...)
	}
	return errs
}

func checkDayPair(avail *availability.Schedule, day1, day2 int) []string {
	row1 := avail.Row(day1)
	row2 := avail.Row(day2)

	positions := make([]int, avail.Positions)
	for p := range positions {
		positions[p] = p + 1
	}

	subsets := allNonEmptySubsets(positions)
	sort.Slice(subsets, func(i, j int) bool { return len(subsets[i]) > len(subsets[j]) })

	var reported [][]int
	var errs []string

	for _, subset := range subsets {
		if isSubsetOfAny(subset, reported) {
			continue
		}
		union := row1.DoctorsForPositions(subset...)
		union = append(union, row2.DoctorsForPositions(subset...)...)
		unique := map[interface{}]bool{}
		for _, d := range union {
			unique[d] = true
		}
		required := 2 * len(subset)
		if len(unique) < required {
			errs = append(errs, fmt.Sprintf("days %d-%d: positions %v need %d doctors between them, only %d available", day1, day2, subset, required, len(unique)))
			reported = append(reported, subset)
		}
	}

	return errs
}

func allNonEmptySubsets(items []int) [][]int {
	var subsets [][]int
	n := len(items)
	for mask := 1; mask < (1 << n); mask++ {
		var subset []int
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				subset = append(subset, items[i])
			}
		}
		subsets = append(subsets, subset)
	}
	return subsets
}

func isSubsetOfAny(subset []int, supersets [][]int) bool {
	for _, s := range supersets {
		if isSubset(subset, s) {
			return true
		}
	}
	return false
}

func isSubset(a, b []int) bool {
	set := map[int]bool{}
	for _, v := range b {
		set[v] = true
	}
	for _, v := range a {
		if !set[v] {
			return false
		}
	}
	return true
}

func joinStrings(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func joinInts(items []int) string {
	strs := make([]string, len(items))
	for i, v := range items {
		strs[i] = fmt.Sprintf("%d", v)
	}
	return joinStrings(strs)
}

func namesOf(doctors []*doctor.Doctor) string {
	names := make([]string, len(doctors))
	for i, d := range doctors {
		names[i] = d.String()
	}
	return joinStrings(names)
}
