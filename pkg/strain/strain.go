// Package strain computes the scheduling cost of binding a doctor to a
// day in a partial DutySchedule (spec.md §4.4). The evaluator is
// stateless per call but caches month-wide averages at construction.
package strain

import (
	"math"

	"github.com/covermd/dutyplanner/pkg/calendar"
	"github.com/covermd/dutyplanner/pkg/doctor"
	"github.com/covermd/dutyplanner/pkg/duty"
)

const (
	pointsJoinFridayWithSunday    = -60
	pointsDontStealSundays        = 100
	pointsAvoidSaturdayAfterThu   = 30
	pointsThursdayIsOrdinary      = 10
	pointsNewWeekend              = 200
	pointsRemainingDutiesPerPoint = -10
	pointsTwoDaysApart            = 30
	pointsThreeDaysApart          = 20
	pointsFourDaysApart           = 10
)

// intervalStrain maps a day distance to its strain contribution, per
// spec.md §4.4's interval-strain table. Distance 1 never occurs because
// AvailabilityProjector already excludes adjacent-day duty for the same
// doctor.
func intervalStrain(distance int) int {
	switch distance {
	case 2:
		return pointsTwoDaysApart
	case 3:
		return pointsThreeDaysApart
	case 4:
		return pointsFourDaysApart
	default:
		return 0
	}
}

// Evaluator computes total strain for a (day, doctor) pair against a
// partial schedule. It caches the two month-wide averages used by the
// RemainingDuties modifier.
type Evaluator struct {
	previousMonthLength int
	currentMonthLength  int
	averageDuties       float64
	averageMaxDuties    float64
}

// NewEvaluator builds an Evaluator for one month's worth of scheduling.
// allDoctors is the full doctor roster (not just those still eligible) —
// the averages it computes are fixed for the entire search.
func NewEvaluator(year, month, positions int, allDoctors []*doctor.Doctor) *Evaluator {
	n := calendar.DaysInMonth(year, month)
	e := &Evaluator{
		previousMonthLength: calendar.PreviousMonthLength(year, month),
		currentMonthLength:  n,
	}
	if len(allDoctors) > 0 {
		e.averageDuties = float64(n*positions) / float64(len(allDoctors))
		total := 0
		for _, d := range allDoctors {
			total += d.Preferences.MaximumAcceptedDuties
		}
		e.averageMaxDuties = float64(total) / float64(len(allDoctors))
	}
	return e
}

// Strain returns the total strain of binding doctor d to day within
// schedule: the day's base strain plus every applicable modifier.
func (e *Evaluator) Strain(day calendar.Day, d *doctor.Doctor, schedule *duty.DutySchedule) int {
	total := day.StrainPoints
	total += e.joinFridayWithSunday(day, d, schedule)
	total += e.dontStealSundays(day, d, schedule)
	total += e.avoidSaturdayAfterThursday(day, d, schedule)
	total += e.thursdayIsOrdinary(day, d)
	total += e.newWeekend(day, d, schedule)
	total += e.remainingDuties(d, schedule)
	total += e.previousMonthInterval(day, d)
	total += e.nextMonthInterval(day, d)
	total += e.closeDuties(day, d, schedule)
	return total
}

func rowHasDuty(schedule *duty.DutySchedule, dayNumber int, d *doctor.Doctor) bool {
	row, err := schedule.Row(dayNumber)
	if err != nil {
		return false
	}
	return row.HasDuty(d)
}

func (e *Evaluator) joinFridayWithSunday(day calendar.Day, d *doctor.Doctor, schedule *duty.DutySchedule) int {
	if day.Weekday != calendar.Sunday || day.Number <= 2 {
		return 0
	}
	if rowHasDuty(schedule, day.Number-2, d) {
		return pointsJoinFridayWithSunday
	}
	return 0
}

func (e *Evaluator) dontStealSundays(day calendar.Day, d *doctor.Doctor, schedule *duty.DutySchedule) int {
	if day.Weekday != calendar.Sunday || day.Number <= 2 {
		return 0
	}
	if !rowHasDuty(schedule, day.Number-2, d) {
		return pointsDontStealSundays
	}
	return 0
}

func (e *Evaluator) avoidSaturdayAfterThursday(day calendar.Day, d *doctor.Doctor, schedule *duty.DutySchedule) int {
	if day.Weekday != calendar.Saturday || day.Number <= 2 {
		return 0
	}
	if rowHasDuty(schedule, day.Number-2, d) {
		return pointsAvoidSaturdayAfterThu
	}
	return 0
}

func (e *Evaluator) thursdayIsOrdinary(day calendar.Day, d *doctor.Doctor) int {
	if day.Weekday == calendar.Thursday && d.Preferences.NoWeekendDuties() {
		return pointsThursdayIsOrdinary
	}
	return 0
}

// newWeekend applies NewWeekend * (1 + number of distinct weekend weeks
// already worked) when this weekend-week hasn't been worked yet.
func (e *Evaluator) newWeekend(day calendar.Day, d *doctor.Doctor, schedule *duty.DutySchedule) int {
	if !calendar.IsWeekend(day.Weekday) {
		return 0
	}
	weeksOnDuty := map[int]bool{}
	for dayNumber := 1; dayNumber <= schedule.NumDays(); dayNumber++ {
		row, _ := schedule.Row(dayNumber)
		if row.HasDuty(d) && calendar.IsWeekend(row.Day.Weekday) {
			weeksOnDuty[row.Day.WeekOfMonth] = true
		}
	}
	if weeksOnDuty[day.WeekOfMonth] {
		return 0
	}
	return pointsNewWeekend * (len(weeksOnDuty) + 1)
}

// remainingDuties pulls the search toward doctors who are furthest below
// their cap relative to the month's average, per spec.md §4.4.
func (e *Evaluator) remainingDuties(d *doctor.Doctor, schedule *duty.DutySchedule) int {
	dutiesCount := len(schedule.DutiesForDoctor(d))
	if dutiesCount == 0 {
		return 20 * pointsRemainingDutiesPerPoint
	}

	maxDuties := d.Preferences.MaximumAcceptedDuties
	var capResult float64
	if float64(maxDuties) < e.averageMaxDuties {
		capResult = e.averageDuties
	} else {
		capResult = e.averageDuties * float64(maxDuties) / e.averageMaxDuties
	}
	dutyCap := int(math.Ceil(capResult))

	remaining := maxDuties - dutiesCount
	return (remaining - dutyCap) * pointsRemainingDutiesPerPoint
}

// previousMonthInterval penalizes a duty near the month boundary whose
// distance from a previous-month duty falls in the interval-strain table.
func (e *Evaluator) previousMonthInterval(day calendar.Day, d *doctor.Doctor) int {
	if day.Number >= 5 {
		return 0
	}
	result := 0
	for i := 0; i < 5-day.Number; i++ {
		if d.LastMonthDuties[e.previousMonthLength-i] {
			result += intervalStrain(day.Number + i)
		}
	}
	return result
}

// nextMonthInterval is the mirror of previousMonthInterval for the tail
// of the month.
func (e *Evaluator) nextMonthInterval(day calendar.Day, d *doctor.Doctor) int {
	if day.Number <= e.currentMonthLength-4 {
		return 0
	}
	result := 0
	reversed := e.currentMonthLength - day.Number
	for i := 1; i < 5-reversed; i++ {
		if d.NextMonthDuties[i] {
			result += intervalStrain(reversed + i)
		}
	}
	return result
}

// closeDuties sums interval strain for every existing duty within
// distance 2-4 of day, in either direction.
func (e *Evaluator) closeDuties(day calendar.Day, d *doctor.Doctor, schedule *duty.DutySchedule) int {
	result := 0
	for _, offset := range []int{-4, -3, -2, 2, 3, 4} {
		dayNumber := day.Number + offset
		if dayNumber < 1 || dayNumber > schedule.NumDays() {
			continue
		}
		if rowHasDuty(schedule, dayNumber, d) {
			distance := offset
			if distance < 0 {
				distance = -distance
			}
			result += intervalStrain(distance)
		}
	}
	return result
}
