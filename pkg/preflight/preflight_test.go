package preflight

import (
	"strings"
	"testing"

	"github.com/covermd/dutyplanner/pkg/calendar"
	"github.com/covermd/dutyplanner/pkg/doctor"
	"github.com/covermd/dutyplanner/pkg/duty"
)

func allWeekdays() []calendar.Weekday {
	return []calendar.Weekday{
		calendar.Monday, calendar.Tuesday, calendar.Wednesday, calendar.Thursday,
		calendar.Friday, calendar.Saturday, calendar.Sunday,
	}
}

func buildRoster(n int, positions []int) []*doctor.Doctor {
	doctors := make([]*doctor.Doctor, n)
	for i := 0; i < n; i++ {
		p := doctor.NewPreferences(nil, nil, allWeekdays(), positions, 15)
		doctors[i] = doctor.New(i+1, "Dr. "+string(rune('A'+i)), nil, nil, p)
	}
	return doctors
}

func TestPositionCountValidatorRejectsZeroPositions(t *testing.T) {
	s := duty.New(2025, 1, 0, calendar.DefaultHolidaySource())
	errs := PositionCountValidator{}.Validate(nil, s)
	if len(errs) == 0 {
		t.Fatal("expected an error for zero duty positions")
	}
}

func TestPositionCountValidatorAcceptsValidSchedule(t *testing.T) {
	s := duty.New(2025, 1, 2, calendar.DefaultHolidaySource())
	errs := PositionCountValidator{}.Validate(nil, s)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestDoctorCountValidatorRejectsTooFewDoctors(t *testing.T) {
	s := duty.New(2025, 1, 2, calendar.DefaultHolidaySource())
	doctors := buildRoster(3, []int{1, 2})
	errs := DoctorCountValidator{}.Validate(doctors, s)
	if len(errs) == 0 {
		t.Fatal("expected an error for 3 doctors and 2 positions (minimum 4)")
	}
}

func TestDoctorCountValidatorAcceptsEnoughDoctors(t *testing.T) {
	s := duty.New(2025, 1, 2, calendar.DefaultHolidaySource())
	doctors := buildRoster(4, []int{1, 2})
	errs := DoctorCountValidator{}.Validate(doctors, s)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestPreferencesCoherenceValidatorFlagsConsecutiveRequests(t *testing.T) {
	p := doctor.NewPreferences(nil, []int{5, 6}, allWeekdays(), []int{1}, 15)
	d := doctor.New(1, "Dr. A", nil, nil, p)
	s := duty.New(2025, 1, 1, calendar.DefaultHolidaySource())

	errs := PreferencesCoherenceValidator{}.Validate([]*doctor.Doctor{d}, s)
	if len(errs) == 0 || !strings.Contains(errs[0], "5 and 6") {
		t.Fatalf("expected consecutive-days error mentioning 5 and 6, got %v", errs)
	}
}

func TestPreferencesCoherenceValidatorFlagsExceptionOverlap(t *testing.T) {
	p := doctor.NewPreferences([]int{9}, []int{9}, allWeekdays(), []int{1}, 15)
	d := doctor.New(1, "Dr. A", nil, nil, p)
	s := duty.New(2025, 1, 1, calendar.DefaultHolidaySource())

	errs := PreferencesCoherenceValidator{}.Validate([]*doctor.Doctor{d}, s)
	if len(errs) == 0 {
		t.Fatal("expected an overlap error")
	}
}

func TestPreferencesCoherenceValidatorFlagsTooManyRequests(t *testing.T) {
	p := doctor.NewPreferences(nil, []int{2, 5, 8}, allWeekdays(), []int{1}, 2)
	d := doctor.New(1, "Dr. A", nil, nil, p)
	s := duty.New(2025, 1, 1, calendar.DefaultHolidaySource())

	errs := PreferencesCoherenceValidator{}.Validate([]*doctor.Doctor{d}, s)
	if len(errs) == 0 {
		t.Fatal("expected too-many-requests error")
	}
}

func TestRequestedDaysConflictsValidatorDetectsShortage(t *testing.T) {
	s := duty.New(2025, 1, 1, calendar.DefaultHolidaySource())
	p1 := doctor.NewPreferences(nil, []int{10}, allWeekdays(), []int{1}, 15)
	p2 := doctor.NewPreferences(nil, []int{10}, allWeekdays(), []int{1}, 15)
	d1 := doctor.New(1, "Dr. A", nil, nil, p1)
	d2 := doctor.New(2, "Dr. B", nil, nil, p2)

	errs := RequestedDaysConflictsValidator{}.Validate([]*doctor.Doctor{d1, d2}, s)
	if len(errs) == 0 {
		t.Fatal("expected a not-enough-positions error when two doctors request the same single position")
	}
}

func TestRequestedDaysConflictsValidatorAcceptsDistinctPositions(t *testing.T) {
	s := duty.New(2025, 1, 1, calendar.DefaultHolidaySource())
	p1 := doctor.NewPreferences(nil, []int{10}, allWeekdays(), []int{1}, 15)
	p2 := doctor.NewPreferences(nil, []int{10}, allWeekdays(), []int{2}, 15)
	d1 := doctor.New(1, "Dr. A", nil, nil, p1)
	d2 := doctor.New(2, "Dr. B", nil, nil, p2)

	s2 := duty.New(2025, 1, 2, calendar.DefaultHolidaySource())
	_ = s
	errs := RequestedDaysConflictsValidator{}.Validate([]*doctor.Doctor{d1, d2}, s2)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestDailyDoctorAvailabilityValidatorDetectsEmptyCandidates(t *testing.T) {
	s := duty.New(2025, 1, 2, calendar.DefaultHolidaySource())
	// Only position-1 doctors exist; position 2 will have zero candidates
	// on every day.
	doctors := buildRoster(6, []int{1})

	errs := DailyDoctorAvailabilityValidator{}.Validate(doctors, s)
	if len(errs) == 0 {
		t.Fatal("expected errors for a position nobody accepts")
	}
}

func TestBidailyDoctorAvailabilityValidatorPassesWithEnoughDoctors(t *testing.T) {
	s := duty.New(2025, 1, 1, calendar.DefaultHolidaySource())
	doctors := buildRoster(6, []int{1})

	errs := BidailyDoctorAvailabilityValidator{}.Validate(doctors, s)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors with ample doctors: %v", errs)
	}
}

func TestRunStopsAtFirstFailingValidator(t *testing.T) {
	s := duty.New(2025, 1, 2, calendar.DefaultHolidaySource())
	doctors := buildRoster(2, []int{1, 2}) // fails DoctorCountValidator (needs >= 4)

	errs := Run(doctors, s)
	if len(errs) == 0 {
		t.Fatal("expected errors from the pipeline")
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "not enough doctors") {
		t.Errorf("expected only the DoctorCountValidator error, got %v", errs)
	}
}
