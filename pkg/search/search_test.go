package search

import (
	"math/rand"
	"testing"

	"github.com/covermd/dutyplanner/pkg/calendar"
	"github.com/covermd/dutyplanner/pkg/doctor"
	"github.com/covermd/dutyplanner/pkg/duty"
	"github.com/covermd/dutyplanner/pkg/strain"
)

func allWeekdays() []calendar.Weekday {
	return []calendar.Weekday{
		calendar.Monday, calendar.Tuesday, calendar.Wednesday, calendar.Thursday,
		calendar.Friday, calendar.Saturday, calendar.Sunday,
	}
}

func buildRoster(n int, positions []int, maxDuties int) []*doctor.Doctor {
	doctors := make([]*doctor.Doctor, n)
	for i := 0; i < n; i++ {
		p := doctor.NewPreferences(nil, nil, allWeekdays(), positions, maxDuties)
		doctors[i] = doctor.New(i+1, "Dr. X", nil, nil, p)
	}
	return doctors
}

func TestRunFillsSmallSchedule(t *testing.T) {
	s := duty.New(2025, 2, 1, calendar.DefaultHolidaySource()) // Feb 2025: 28 days
	doctors := buildRoster(10, []int{1}, 10)

	e := strain.NewEvaluator(2025, 2, 1, doctors)
	rng := rand.New(rand.NewSource(1))

	Run(s, doctors, e, rng)

	if !s.IsFilled() {
		t.Errorf("expected a fully filled schedule with ample doctors, %d rows unfilled", s.NotFilledRowsCount())
	}
}

func TestRunReportsStepAndExpansionCounts(t *testing.T) {
	s := duty.New(2025, 2, 1, calendar.DefaultHolidaySource())
	doctors := buildRoster(10, []int{1}, 10)

	e := strain.NewEvaluator(2025, 2, 1, doctors)
	rng := rand.New(rand.NewSource(1))

	result := Run(s, doctors, e, rng)

	if result.Steps == 0 {
		t.Error("expected a nonzero step count for a schedule requiring search")
	}
	if result.Expansions == 0 || result.Expansions > result.Steps {
		t.Errorf("expected 0 < expansions (%d) <= steps (%d)", result.Expansions, result.Steps)
	}
	if result.WideningRestarts < 0 {
		t.Errorf("widening restarts must never be negative, got %d", result.WideningRestarts)
	}
}

func TestRunPreservesAlreadySetByUserCells(t *testing.T) {
	s := duty.New(2025, 2, 1, calendar.DefaultHolidaySource())
	doctors := buildRoster(10, []int{1}, 10)

	su := true
	c, _ := s.Get(5, 1)
	c.Update(doctors[3], nil, nil, &su)

	e := strain.NewEvaluator(2025, 2, 1, doctors)
	rng := rand.New(rand.NewSource(2))
	Run(s, doctors, e, rng)

	after, _ := s.Get(5, 1)
	if after.Doctor != doctors[3] {
		t.Error("search must not overwrite a pre-committed cell")
	}
}

func TestUniqueDoctorTuplesExcludesRepeats(t *testing.T) {
	d1 := doctor.New(1, "A", nil, nil, doctor.Preferences{})
	d2 := doctor.New(2, "B", nil, nil, doctor.Preferences{})

	perPosition := [][]scoredDoctor{
		{{d: d1, strain: 1}, {d: d2, strain: 2}},
		{{d: d1, strain: 1}, {d: d2, strain: 2}},
	}
	tuples := uniqueDoctorTuples(perPosition)
	for _, tuple := range tuples {
		if tuple[0].d == tuple[1].d {
			t.Errorf("tuple has repeated doctor: %v", tuple)
		}
	}
	if len(tuples) != 2 {
		t.Errorf("len(tuples) = %d, want 2", len(tuples))
	}
}
