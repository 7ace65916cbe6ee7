package duty

import (
	"testing"

	"github.com/covermd/dutyplanner/pkg/calendar"
	"github.com/covermd/dutyplanner/pkg/doctor"
)

func TestNewScheduleShape(t *testing.T) {
	s := New(2025, 1, 3, calendar.DefaultHolidaySource())
	if s.NumDays() != 31 {
		t.Fatalf("NumDays() = %d, want 31", s.NumDays())
	}
	if len(s.Cells()) != 31*3 {
		t.Fatalf("len(Cells()) = %d, want %d", len(s.Cells()), 31*3)
	}
	if s.IsFilled() {
		t.Error("fresh schedule should not be filled")
	}
	if s.NotFilledRowsCount() != 31 {
		t.Errorf("NotFilledRowsCount() = %d, want 31", s.NotFilledRowsCount())
	}
}

func TestGetOutOfRange(t *testing.T) {
	s := New(2025, 1, 2, calendar.DefaultHolidaySource())
	if _, err := s.Get(0, 1); err == nil {
		t.Error("expected error for day 0")
	}
	if _, err := s.Get(32, 1); err == nil {
		t.Error("expected error for day 32")
	}
	if _, err := s.Get(1, 3); err == nil {
		t.Error("expected error for position 3 with only 2 positions")
	}
	if _, err := s.Get(1, 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCellUpdatePartial(t *testing.T) {
	s := New(2025, 1, 1, calendar.DefaultHolidaySource())
	c, _ := s.Get(1, 1)
	d := doctor.New(1, "Dr. A", nil, nil, doctor.Preferences{})

	sp := 150
	su := true
	c.Update(d, nil, &sp, &su)

	if c.Doctor != d {
		t.Error("doctor not set")
	}
	if c.StrainPoints != 150 {
		t.Errorf("StrainPoints = %d, want 150", c.StrainPoints)
	}
	if !c.SetByUser {
		t.Error("SetByUser should be true")
	}
	if c.PK != nil {
		t.Error("PK should remain nil when not provided")
	}

	// A second update that omits strainPoints must not reset it to zero.
	d2 := doctor.New(2, "Dr. B", nil, nil, doctor.Preferences{})
	c.Update(d2, nil, nil, nil)
	if c.StrainPoints != 150 {
		t.Errorf("StrainPoints changed on partial update: got %d, want 150", c.StrainPoints)
	}
	if c.Doctor != d2 {
		t.Error("doctor should have been reassigned")
	}
}

func TestRowFreePositionsAndHasDuty(t *testing.T) {
	s := New(2025, 1, 3, calendar.DefaultHolidaySource())
	row, _ := s.Row(1)
	d := doctor.New(1, "Dr. A", nil, nil, doctor.Preferences{})

	c, _ := s.Get(1, 2)
	c.Update(d, nil, nil, nil)

	free := row.FreePositions()
	if free[2] {
		t.Error("position 2 should no longer be free")
	}
	if !free[1] || !free[3] {
		t.Error("positions 1 and 3 should still be free")
	}
	if !row.HasDuty(d) {
		t.Error("expected HasDuty true for doctor holding position 2")
	}
	if len(row.SetDuties()) != 1 {
		t.Errorf("SetDuties() len = %d, want 1", len(row.SetDuties()))
	}
}

func TestDutiesForDoctor(t *testing.T) {
	s := New(2025, 1, 2, calendar.DefaultHolidaySource())
	d := doctor.New(1, "Dr. A", nil, nil, doctor.Preferences{})

	c1, _ := s.Get(5, 1)
	c1.Update(d, nil, nil, nil)
	c2, _ := s.Get(20, 2)
	c2.Update(d, nil, nil, nil)

	duties := s.DutiesForDoctor(d)
	if len(duties) != 2 {
		t.Fatalf("len(duties) = %d, want 2", len(duties))
	}
	if duties[0].Day.Number != 5 || duties[1].Day.Number != 20 {
		t.Error("duties not returned in day order")
	}
}

func TestCopyIsDetached(t *testing.T) {
	s := New(2025, 1, 1, calendar.DefaultHolidaySource())
	d := doctor.New(1, "Dr. A", nil, nil, doctor.Preferences{})
	c, _ := s.Get(1, 1)
	c.Update(d, nil, nil, nil)

	clone := s.Copy()
	cloneCell, _ := clone.Get(1, 1)
	if cloneCell.Doctor != d {
		t.Fatal("clone should carry over existing assignment")
	}

	// Mutating the original must not affect the clone.
	d2 := doctor.New(2, "Dr. B", nil, nil, doctor.Preferences{})
	c.Update(d2, nil, nil, nil)
	if cloneCell.Doctor != d {
		t.Error("clone was mutated by a change to the original")
	}
}

func TestMergePreservesSetByUser(t *testing.T) {
	base := New(2025, 1, 1, calendar.DefaultHolidaySource())
	fill := New(2025, 1, 1, calendar.DefaultHolidaySource())

	dUser := doctor.New(1, "Dr. User", nil, nil, doctor.Preferences{})
	dFill := doctor.New(2, "Dr. Fill", nil, nil, doctor.Preferences{})

	su := true
	baseCell, _ := base.Get(1, 1)
	baseCell.Update(dUser, nil, nil, &su)

	fillCell, _ := fill.Get(1, 1)
	fillCell.Update(dFill, nil, nil, nil)

	if err := base.Merge(fill); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	merged, _ := base.Get(1, 1)
	if merged.Doctor != dUser {
		t.Error("merge must not overwrite a set_by_user cell")
	}
}

func TestMergeFillsEmptyCells(t *testing.T) {
	base := New(2025, 1, 2, calendar.DefaultHolidaySource())
	fill := New(2025, 1, 2, calendar.DefaultHolidaySource())

	d := doctor.New(1, "Dr. A", nil, nil, doctor.Preferences{})
	fillCell, _ := fill.Get(1, 2)
	fillCell.Update(d, nil, nil, nil)

	if err := base.Merge(fill); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	merged, _ := base.Get(1, 2)
	if merged.Doctor != d {
		t.Error("merge should fill an empty cell from the donor schedule")
	}
}

func TestIsFilledAndNotFilledRowsCount(t *testing.T) {
	s := New(2025, 1, 1, calendar.DefaultHolidaySource())
	d := doctor.New(1, "Dr. A", nil, nil, doctor.Preferences{})
	for day := 1; day <= s.NumDays(); day++ {
		c, _ := s.Get(day, 1)
		c.Update(d, nil, nil, nil)
	}
	if !s.IsFilled() {
		t.Error("expected schedule to be filled")
	}
	if s.NotFilledRowsCount() != 0 {
		t.Errorf("NotFilledRowsCount() = %d, want 0", s.NotFilledRowsCount())
	}
}
