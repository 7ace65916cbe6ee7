// Package search implements the best-first frontier search that fills
// the remaining, unrequested duty cells (spec.md §4.7). Nodes are
// immutable once constructed and stored in a monotonically growing
// arena; a node's parent is referenced by integer index so the search
// tree never needs garbage-collected back-pointers.
package search

import (
	"math/rand"
	"sort"

	"github.com/covermd/dutyplanner/pkg/availability"
	"github.com/covermd/dutyplanner/pkg/doctor"
	"github.com/covermd/dutyplanner/pkg/duty"
	"github.com/covermd/dutyplanner/pkg/strain"
)

const maxSteps = 1000

const noParent = -1

// node is one step of the search tree: the (day, positions->doctors)
// tuple it commits, plus a link to its parent. A node with parent ==
// noParent is the empty root.
type node struct {
	dayNumber  int
	positions  []int // parallel to doctors
	doctors    []*doctor.Doctor
	stepStrain int
	parent     int

	totalStrain int
	daysSet     int
}

// arena owns every node ever created during one search run.
type arena struct {
	nodes []node
}

func newArena() *arena {
	a := &arena{}
	a.nodes = append(a.nodes, node{parent: noParent, dayNumber: 0})
	return a
}

const rootIndex = 0

func (a *arena) push(parent int, dayNumber int, positions []int, doctors []*doctor.Doctor, stepStrain int) int {
	n := node{
		dayNumber:  dayNumber,
		positions:  positions,
		doctors:    doctors,
		stepStrain: stepStrain,
		parent:     parent,
	}
	if parent == noParent {
		n.totalStrain = stepStrain
		n.daysSet = 1
	} else {
		p := a.nodes[parent]
		n.totalStrain = stepStrain + p.totalStrain
		n.daysSet = p.daysSet + 1
	}
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

// Result is the outcome of a search run over one base schedule. Steps,
// Expansions and WideningRestarts are the counters spec.md §4.7 calls out
// for telemetry: total frontier pops, node expansions performed, and
// depth-widening restarts triggered.
type Result struct {
	Steps            int
	Expansions       int
	WideningRestarts int
}

// Run fills as many of base's unset rows as the search can manage,
// merging the best-found partial assignment directly into base. doctors
// is the full eligible roster (already past requested-duty assignment);
// evaluator supplies per-(day,doctor) strain.
func Run(base *duty.DutySchedule, doctors []*doctor.Doctor, evaluator *strain.Evaluator, rng *rand.Rand) Result {
	notFilled := base.NotFilledRowsCount()
	if notFilled == 0 {
		return Result{}
	}

	depth := 2
	totalSteps := 0
	totalExpansions := 0
	wideningRestarts := 0

	for {
		a := newArena()
		frontier := []int{rootIndex}
		bestIdx := rootIndex

		restart := false
		attemptSteps := 0

		for len(frontier) > 0 {
			attemptSteps++
			totalSteps++

			idx := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]

			if isBetterNode(a, idx, bestIdx) {
				bestIdx = idx
			}

			if a.nodes[idx].daysSet == notFilled {
				bestIdx = idx
				break
			}

			children := expand(a, idx, base, doctors, evaluator, depth, rng)
			totalExpansions++
			frontier = pushChildren(frontier, children)

			if totalSteps > maxSteps {
				break
			}
			if attemptSteps > 2*base.NumDays() && depth*base.Positions < len(doctors) {
				depth++
				restart = true
				wideningRestarts++
				break
			}
		}

		if !restart || totalSteps > maxSteps {
			mergeBest(base, a, bestIdx)
			return Result{Steps: totalSteps, Expansions: totalExpansions, WideningRestarts: wideningRestarts}
		}
	}
}

// isBetterNode applies the lexicographic key (days_set desc, total_strain
// asc).
func isBetterNode(a *arena, candidate, current int) bool {
	c := a.nodes[candidate]
	b := a.nodes[current]
	if c.daysSet != b.daysSet {
		return c.daysSet > b.daysSet
	}
	return c.totalStrain < b.totalStrain
}

// pushChildren implements the frontier discipline from spec.md §4.7.1
// step 10: children are shuffled, then stable-sorted by strain ascending;
// the first (lowest-strain) child goes to the end of the frontier (next
// pop), the rest go to the front.
func pushChildren(frontier []int, children []int) []int {
	if len(children) == 0 {
		return frontier
	}
	if len(children) == 1 {
		return append(frontier, children[0])
	}
	return append(append([]int{}, children[1:]...), append(frontier, children[0])...)
}

// mergeBest reconstructs the schedule encoded by the node at bestIdx and
// merges it into base (only unset cells are overwritten, per
// DutySchedule.Merge).
func mergeBest(base *duty.DutySchedule, a *arena, bestIdx int) {
	overlay := base.Copy()
	// The overlay starts as a copy of base, so the cells it shares with
	// base are already set there and Merge leaves them alone; walking the
	// parent chain superimposes each ancestor's bindings on its empty cells.
	idx := bestIdx
	for idx != rootIndex {
		n := a.nodes[idx]
		row, err := overlay.Row(n.dayNumber)
		if err == nil {
			for i, position := range n.positions {
				if cell := row.Cell(position); cell != nil && cell.Doctor == nil {
					cell.Update(n.doctors[i], nil, nil, nil)
				}
			}
		}
		idx = n.parent
	}
	_ = base.Merge(overlay)
}

// materialize builds the partial schedule a node encodes: a clone of
// base with every ancestor's bindings superimposed.
func materialize(a *arena, idx int, base *duty.DutySchedule) *duty.DutySchedule {
	s := base.Copy()
	for idx != rootIndex {
		n := a.nodes[idx]
		row, err := s.Row(n.dayNumber)
		if err == nil {
			for i, position := range n.positions {
				if cell := row.Cell(position); cell != nil {
					cell.Update(n.doctors[i], nil, nil, nil)
				}
			}
		}
		idx = n.parent
	}
	return s
}

type scoredDoctor struct {
	d      *doctor.Doctor
	strain int
}

// expand performs node expansion per spec.md §4.7.1 and returns the
// arena indices of every surviving child.
func expand(a *arena, idx int, base *duty.DutySchedule, doctors []*doctor.Doctor, evaluator *strain.Evaluator, depth int, rng *rand.Rand) []int {
	partial := materialize(a, idx, base)
	avail := availability.Project(doctors, partial)

	day := pickDay(avail, partial)
	if day == 0 {
		return nil
	}

	row, _ := partial.Row(day)
	dayInfo := row.Day
	availRow := avail.Row(day)

	allPositions := make([]int, avail.Positions)
	for p := range allPositions {
		allPositions[p] = p + 1
	}
	union := availRow.DoctorsForPositions(allPositions...)

	strainOf := map[*doctor.Doctor]int{}
	for _, d := range union {
		strainOf[d] = evaluator.Strain(dayInfo, d, partial)
	}

	free := row.FreePositions()
	freePositions := sortedFreePositions(free)

	candidatesPerPosition := make([][]scoredDoctor, len(freePositions))
	for i, position := range freePositions {
		cands := append([]*doctor.Doctor(nil), availRow.Candidates[position-1]...)
		sort.SliceStable(cands, func(i, j int) bool { return strainOf[cands[i]] < strainOf[cands[j]] })

		width := depth * avail.Positions
		if width < len(cands) {
			cands = cands[:width]
		}

		scored := make([]scoredDoctor, len(cands))
		for j, d := range cands {
			scored[j] = scoredDoctor{d: d, strain: strainOf[d]}
		}
		candidatesPerPosition[i] = scored
	}

	tuples := uniqueDoctorTuples(candidatesPerPosition)
	tuples = filterConflicting(tuples, avail, day, avail.Positions)

	children := make([]int, 0, len(tuples))
	for _, tuple := range tuples {
		stepStrain := 0
		docs := make([]*doctor.Doctor, len(tuple))
		for i, sd := range tuple {
			docs[i] = sd.d
			stepStrain += sd.strain
		}
		idx := a.push(idx, day, freePositions, docs, stepStrain)
		children = append(children, idx)
	}

	rng.Shuffle(len(children), func(i, j int) { children[i], children[j] = children[j], children[i] })
	sort.SliceStable(children, func(i, j int) bool {
		return a.nodes[children[i]].stepStrain < a.nodes[children[j]].stepStrain
	})

	return children
}

// pickDay chooses the unset day with the smallest
// average_doctors_per_free_position (fail-fast variable ordering).
func pickDay(avail *availability.Schedule, schedule *duty.DutySchedule) int {
	best := 0
	bestAvg := -1.0
	for day := 1; day <= schedule.NumDays(); day++ {
		row, _ := schedule.Row(day)
		if len(row.FreePositions()) == 0 {
			continue
		}
		avg := avail.Row(day).AverageDoctorsPerFreePosition()
		if best == 0 || avg < bestAvg {
			best = day
			bestAvg = avg
		}
	}
	return best
}

func sortedFreePositions(free map[int]bool) []int {
	out := make([]int, 0, len(free))
	for p := range free {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// uniqueDoctorTuples enumerates the Cartesian product across positions'
// candidate lists, keeping only tuples whose doctors are pairwise
// distinct.
func uniqueDoctorTuples(perPosition [][]scoredDoctor) [][]scoredDoctor {
	if len(perPosition) == 0 {
		return [][]scoredDoctor{{}}
	}

	rest := uniqueDoctorTuples(perPosition[1:])
	var out [][]scoredDoctor
	for _, sd := range perPosition[0] {
		for _, tail := range rest {
			if containsDoctor(tail, sd.d) {
				continue
			}
			tuple := append([]scoredDoctor{sd}, tail...)
			out = append(out, tuple)
		}
	}
	return out
}

func containsDoctor(tuple []scoredDoctor, d *doctor.Doctor) bool {
	for _, sd := range tuple {
		if sd.d == d {
			return true
		}
	}
	return false
}

// filterConflicting drops any tuple that would make a neighbouring day
// unsolvable: a tuple T conflicts with neighbour d' if the number of
// candidates left for d' once T's doctors are removed falls below P.
// Both neighbours are checked in a single pass over one materialized
// exclusion set per side — the source iterates an iterator twice here
// (once per neighbour) which silently drops the second filter when both
// neighbours exist; this folds both checks so neither is skipped.
func filterConflicting(tuples [][]scoredDoctor, avail *availability.Schedule, day, positions int) [][]scoredDoctor {
	n := len(avail.Rows)

	var prevUnion, nextUnion []*doctor.Doctor
	allPositions := make([]int, positions)
	for p := range allPositions {
		allPositions[p] = p + 1
	}
	if day > 1 {
		prevUnion = avail.Row(day - 1).DoctorsForPositions(allPositions...)
	}
	if day < n {
		nextUnion = avail.Row(day + 1).DoctorsForPositions(allPositions...)
	}

	var out [][]scoredDoctor
	for _, tuple := range tuples {
		if conflicts(tuple, prevUnion, positions) || conflicts(tuple, nextUnion, positions) {
			continue
		}
		out = append(out, tuple)
	}
	return out
}

func conflicts(tuple []scoredDoctor, neighbourUnion []*doctor.Doctor, positions int) bool {
	if neighbourUnion == nil {
		return false
	}
	excluded := map[*doctor.Doctor]bool{}
	for _, sd := range tuple {
		excluded[sd.d] = true
	}
	remaining := 0
	for _, d := range neighbourUnion {
		if !excluded[d] {
			remaining++
		}
	}
	return remaining < positions
}
