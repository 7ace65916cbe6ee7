package assign

import (
	"math/rand"
	"testing"

	"github.com/covermd/dutyplanner/pkg/calendar"
	"github.com/covermd/dutyplanner/pkg/doctor"
	"github.com/covermd/dutyplanner/pkg/duty"
)

func TestAssignCommitsRequestedDay(t *testing.T) {
	s := duty.New(2025, 1, 2, calendar.DefaultHolidaySource())
	p := doctor.NewPreferences(nil, []int{10}, nil, []int{1}, 10)
	d := doctor.New(1, "Dr. A", nil, nil, p)

	rng := rand.New(rand.NewSource(1))
	if err := Assign([]*doctor.Doctor{d}, s, rng); err != nil {
		t.Fatalf("Assign error: %v", err)
	}

	cell, _ := s.Get(10, 1)
	if cell.Doctor != d {
		t.Error("expected requested day to be committed to the requesting doctor's preferred position")
	}
	if cell.SetByUser {
		t.Error("requested-duty assignment should not be marked set_by_user")
	}
}

func TestAssignDistinctPositionsForMultipleRequesters(t *testing.T) {
	s := duty.New(2025, 1, 2, calendar.DefaultHolidaySource())
	p1 := doctor.NewPreferences(nil, []int{15}, nil, []int{1, 2}, 10)
	p2 := doctor.NewPreferences(nil, []int{15}, nil, []int{1, 2}, 10)
	d1 := doctor.New(1, "Dr. A", nil, nil, p1)
	d2 := doctor.New(2, "Dr. B", nil, nil, p2)

	rng := rand.New(rand.NewSource(42))
	if err := Assign([]*doctor.Doctor{d1, d2}, s, rng); err != nil {
		t.Fatalf("Assign error: %v", err)
	}

	c1, _ := s.Get(15, 1)
	c2, _ := s.Get(15, 2)
	if c1.Doctor == nil || c2.Doctor == nil {
		t.Fatal("both positions should be committed")
	}
	if c1.Doctor == c2.Doctor {
		t.Error("the same doctor must not occupy two positions on the same day")
	}
}

func TestAssignIsDeterministicForFixedSeed(t *testing.T) {
	build := func(seed int64) *duty.DutySchedule {
		s := duty.New(2025, 1, 3, calendar.DefaultHolidaySource())
		p1 := doctor.NewPreferences(nil, []int{8}, nil, []int{1, 2, 3}, 10)
		p2 := doctor.NewPreferences(nil, []int{8}, nil, []int{1, 2, 3}, 10)
		p3 := doctor.NewPreferences(nil, []int{8}, nil, []int{1, 2, 3}, 10)
		d1 := doctor.New(1, "Dr. A", nil, nil, p1)
		d2 := doctor.New(2, "Dr. B", nil, nil, p2)
		d3 := doctor.New(3, "Dr. C", nil, nil, p3)
		rng := rand.New(rand.NewSource(seed))
		_ = Assign([]*doctor.Doctor{d1, d2, d3}, s, rng)
		return s
	}

	a := build(7)
	b := build(7)

	for position := 1; position <= 3; position++ {
		ca, _ := a.Get(8, position)
		cb, _ := b.Get(8, position)
		if (ca.Doctor == nil) != (cb.Doctor == nil) {
			t.Fatalf("position %d: mismatched assignment presence across identical-seed runs", position)
		}
		if ca.Doctor != nil && ca.Doctor.PK != cb.Doctor.PK {
			t.Errorf("position %d: doctor pk %d vs %d across identical-seed runs", position, ca.Doctor.PK, cb.Doctor.PK)
		}
	}
}

func TestUniqueProductExcludesRepeatedEntries(t *testing.T) {
	tuples := uniqueProduct([][]int{{1, 2}, {1, 2}})
	for _, tuple := range tuples {
		if tuple[0] == tuple[1] {
			t.Errorf("tuple %v has repeated entries", tuple)
		}
	}
	if len(tuples) != 2 {
		t.Errorf("len(tuples) = %d, want 2 ((1,2) and (2,1))", len(tuples))
	}
}

func TestUniqueProductEmptySet(t *testing.T) {
	tuples := uniqueProduct(nil)
	if len(tuples) != 1 || len(tuples[0]) != 0 {
		t.Errorf("expected a single empty tuple, got %v", tuples)
	}
}
