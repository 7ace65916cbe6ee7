// Package assign commits requested duties before search begins
// (spec.md §4.6): every doctor who demanded a specific day is bound to
// one of their preferred, still-free positions on that day.
package assign

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/covermd/dutyplanner/pkg/doctor"
	"github.com/covermd/dutyplanner/pkg/duty"
)

// Assign commits requested duties using rng for tie-breaking, so the
// whole run stays reproducible from a single seed. Days are processed in
// ascending order so the rng draw sequence never depends on map
// iteration order.
func Assign(doctors []*doctor.Doctor, schedule *duty.DutySchedule, rng *rand.Rand) error {
	perDay := possiblePositionsPerDay(doctors, schedule)

	days := make([]int, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Ints(days)

	for _, day := range days {
		perDoctor := perDay[day]
		requesters := make([]*doctor.Doctor, 0, len(perDoctor))
		for d := range perDoctor {
			requesters = append(requesters, d)
		}
		// Stable source order: iterate the roster, not the map, so tuple
		// enumeration is deterministic given the same rng draw.
		ordered := orderByRoster(doctors, requesters)

		positionSets := make([][]int, len(ordered))
		for i, d := range ordered {
			positionSets[i] = perDay[day][d]
		}

		tuples := uniqueProduct(positionSets)
		if len(tuples) == 0 {
			// Precondition validators should have already caught this.
			return fmt.Errorf("assign: no valid position assignment for day %d", day)
		}

		chosen := tuples[rng.Intn(len(tuples))]
		for i, d := range ordered {
			cell, err := schedule.Get(day, chosen[i])
			if err != nil {
				return err
			}
			cell.Update(d, nil, nil, nil)
		}
	}

	return nil
}

func orderByRoster(roster []*doctor.Doctor, subset []*doctor.Doctor) []*doctor.Doctor {
	in := map[*doctor.Doctor]bool{}
	for _, d := range subset {
		in[d] = true
	}
	out := make([]*doctor.Doctor, 0, len(subset))
	for _, d := range roster {
		if in[d] {
			out = append(out, d)
		}
	}
	return out
}

// possiblePositionsPerDay computes, for each day with at least one
// requesting doctor, the map of requester -> possible positions
// (preferred positions intersected with that day's free positions).
func possiblePositionsPerDay(doctors []*doctor.Doctor, schedule *duty.DutySchedule) map[int]map[*doctor.Doctor][]int {
	result := map[int]map[*doctor.Doctor][]int{}

	for _, d := range doctors {
		for _, day := range d.Preferences.RequestedDaysSorted() {
			row, err := schedule.Row(day)
			if err != nil {
				continue
			}
			free := row.FreePositions()

			var possible []int
			for position := 1; position <= schedule.Positions; position++ {
				if d.Preferences.PreferredPositions[position] && free[position] {
					possible = append(possible, position)
				}
			}

			if result[day] == nil {
				result[day] = map[*doctor.Doctor][]int{}
			}
			result[day][d] = possible
		}
	}

	return result
}

// uniqueProduct is the Cartesian product of sets, restricted to tuples
// whose entries are pairwise distinct (spec.md §4.6's "unique product").
func uniqueProduct(sets [][]int) [][]int {
	if len(sets) == 0 {
		return [][]int{{}}
	}

	rest := uniqueProduct(sets[1:])
	var out [][]int
	for _, v := range sets[0] {
		for _, tail := range rest {
			if containsInt(tail, v) {
				continue
			}
			tuple := append([]int{v}, tail...)
			out = append(out, tuple)
		}
	}
	return out
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
