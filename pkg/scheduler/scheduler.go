// Package scheduler orchestrates one scheduling run: validators, the
// requested-duty assignment pass, and the search core, wired together
// behind a pure function of (input, seed) (spec.md §4.8, §5).
package scheduler

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/covermd/dutyplanner/pkg/assign"
	"github.com/covermd/dutyplanner/pkg/calendar"
	"github.com/covermd/dutyplanner/pkg/doctor"
	"github.com/covermd/dutyplanner/pkg/duty"
	"github.com/covermd/dutyplanner/pkg/preflight"
	"github.com/covermd/dutyplanner/pkg/search"
	"github.com/covermd/dutyplanner/pkg/strain"
)

// DoctorPreferences mirrors the wire shape of one doctor's preferences.
type DoctorPreferences struct {
	Exceptions            []int `json:"exceptions"`
	RequestedDays         []int `json:"requested_days"`
	PreferredWeekdays     []int `json:"preferred_weekdays"`
	PreferredPositions    []int `json:"preferred_positions"`
	MaximumAcceptedDuties int   `json:"maximum_accepted_duties"`
}

// DoctorInput mirrors the wire shape of one roster entry.
type DoctorInput struct {
	PK              int               `json:"pk" validate:"required"`
	Name            string            `json:"name" validate:"required"`
	Preferences     DoctorPreferences `json:"preferences"`
	LastMonthDuties []int             `json:"last_month_duties"`
	NextMonthDuties []int             `json:"next_month_duties"`
}

// DutyInput mirrors one pre-existing cell, present when the caller seeds
// the schedule with already-committed duties.
type DutyInput struct {
	PK           *int `json:"pk"`
	Day          int  `json:"day"`
	Position     int  `json:"position"`
	DoctorPK     *int `json:"doctor_pk"`
	StrainPoints int  `json:"strain_points"`
	SetByUser    bool `json:"set_by_user"`
}

// Input is the scheduling run's wire-level request document.
type Input struct {
	Year           int           `json:"year" validate:"required,gte=2022,lte=2032"`
	Month          int           `json:"month" validate:"required,gte=1,lte=12"`
	DoctorsPerDuty int           `json:"doctors_per_duty" validate:"required,gte=1"`
	Doctors        []DoctorInput `json:"doctors" validate:"required,min=1,dive"`
	Duties         []DutyInput   `json:"duties" validate:"dive"`
}

// DutyOutput mirrors one serialized cell.
type DutyOutput struct {
	PK           *int `json:"pk"`
	Day          int  `json:"day"`
	Position     int  `json:"position"`
	DoctorPK     *int `json:"doctor_pk"`
	StrainPoints int  `json:"strain_points"`
	SetByUser    bool `json:"set_by_user"`
}

// Output is the scheduling run's wire-level response document. The
// Search* fields are internal telemetry (spec.md §4.7's step/expansion/
// widening-restart counters), not part of the wire contract.
type Output struct {
	WereAnyDutiesSet bool         `json:"were_any_duties_set"`
	WereAllDutiesSet bool         `json:"were_all_duties_set"`
	Errors           []string     `json:"errors"`
	Duties           []DutyOutput `json:"duties"`

	SearchSteps            int `json:"-"`
	SearchExpansions       int `json:"-"`
	SearchWideningRestarts int `json:"-"`
}

// Service runs scheduling requests. It holds no state between calls —
// every dependency (RNG, holiday source) is either injected or
// constructed fresh per call, so Run is a pure function of its
// arguments.
type Service struct {
	Holidays calendar.HolidaySource
}

// NewService builds a Service using the process-wide default holiday
// table.
func NewService() *Service {
	return &Service{Holidays: calendar.DefaultHolidaySource()}
}

// Run executes one full scheduling attempt: validate, assign requested
// duties, search for the rest. seed makes the run reproducible. ctx is
// accepted for cancellation/tracing propagation only — no I/O happens
// inside the algorithm itself, so Run never checks ctx.Done() mid-search
// (spec.md §4.8, §5: Run stays a pure function of (input, seed)).
func (s *Service) Run(ctx context.Context, input Input, seed int64) (Output, error) {
	_ = ctx

	if err := calendar.ValidateMonth(input.Month); err != nil {
		return Output{}, err
	}

	schedule := duty.New(input.Year, input.Month, input.DoctorsPerDuty, s.Holidays)

	n := schedule.NumDays()
	doctors := buildDoctors(input.Doctors, n)

	if err := seedExistingDuties(schedule, input.Duties, doctors); err != nil {
		return Output{}, err
	}

	if errs := preflight.Run(doctors, schedule); len(errs) > 0 {
		return Output{
			WereAnyDutiesSet: false,
			WereAllDutiesSet: false,
			Errors:           errs,
			Duties:           serializeDuties(schedule),
		}, nil
	}

	rng := rand.New(rand.NewSource(seed))

	if err := assign.Assign(doctors, schedule, rng); err != nil {
		return Output{}, err
	}

	evaluator := strain.NewEvaluator(input.Year, input.Month, input.DoctorsPerDuty, doctors)
	searchResult := search.Run(schedule, doctors, evaluator, rng)

	return Output{
		WereAnyDutiesSet:       len(schedule.Cells()) > 0 && hasAnyCommittedCell(schedule),
		WereAllDutiesSet:       schedule.IsFilled(),
		Errors:                 nil,
		Duties:                 serializeDuties(schedule),
		SearchSteps:            searchResult.Steps,
		SearchExpansions:       searchResult.Expansions,
		SearchWideningRestarts: searchResult.WideningRestarts,
	}, nil
}

// ValidateOnly runs the preflight pipeline (spec.md §4.5) without
// assigning or searching, for the HTTP API's validation-only verb.
func (s *Service) ValidateOnly(input Input) []string {
	if err := calendar.ValidateMonth(input.Month); err != nil {
		return []string{err.Error()}
	}

	schedule := duty.New(input.Year, input.Month, input.DoctorsPerDuty, s.Holidays)
	doctors := buildDoctors(input.Doctors, schedule.NumDays())

	if err := seedExistingDuties(schedule, input.Duties, doctors); err != nil {
		return []string{err.Error()}
	}

	return preflight.Run(doctors, schedule)
}

func hasAnyCommittedCell(schedule *duty.DutySchedule) bool {
	for _, c := range schedule.Cells() {
		if c.Doctor != nil {
			return true
		}
	}
	return false
}

func seedExistingDuties(schedule *duty.DutySchedule, duties []DutyInput, doctors []*doctor.Doctor) error {
	byPK := make(map[int]*doctor.Doctor, len(doctors))
	for _, d := range doctors {
		byPK[d.PK] = d
	}

	for _, di := range duties {
		if di.DoctorPK == nil {
			continue
		}
		cell, err := schedule.Get(di.Day, di.Position)
		if err != nil {
			return fmt.Errorf("scheduler: seed duty out of range: %w", err)
		}
		d, ok := byPK[*di.DoctorPK]
		if !ok {
			return fmt.Errorf("scheduler: seed duty references unknown doctor_pk %d", *di.DoctorPK)
		}
		setByUser := di.SetByUser
		strainPoints := di.StrainPoints
		pk := di.PK
		cell.Update(d, pk, &strainPoints, &setByUser)
	}
	return nil
}

func buildDoctors(inputs []DoctorInput, daysInMonth int) []*doctor.Doctor {
	doctors := make([]*doctor.Doctor, len(inputs))
	for i, di := range inputs {
		weekdays := make([]calendar.Weekday, len(di.Preferences.PreferredWeekdays))
		for j, wd := range di.Preferences.PreferredWeekdays {
			weekdays[j] = calendar.Weekday(wd)
		}
		prefs := doctor.NewPreferences(
			di.Preferences.Exceptions,
			di.Preferences.RequestedDays,
			weekdays,
			di.Preferences.PreferredPositions,
			di.Preferences.MaximumAcceptedDuties,
		)
		d := doctor.New(di.PK, di.Name, di.LastMonthDuties, di.NextMonthDuties, prefs)
		d.ClampMaxDuties(daysInMonth)
		doctors[i] = d
	}
	return doctors
}

func serializeDuties(schedule *duty.DutySchedule) []DutyOutput {
	cells := schedule.Cells()
	out := make([]DutyOutput, len(cells))
	for i, c := range cells {
		var doctorPK *int
		if c.Doctor != nil {
			pk := c.Doctor.PK
			doctorPK = &pk
		}
		out[i] = DutyOutput{
			PK:           c.PK,
			Day:          c.Day.Number,
			Position:     c.Position,
			DoctorPK:     doctorPK,
			StrainPoints: c.StrainPoints,
			SetByUser:    c.SetByUser,
		}
	}
	return out
}
