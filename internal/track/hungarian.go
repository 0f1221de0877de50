package track

import "math"

// hungarianLnf stands in for infinity in the padded cost matrix.
const hungarianLnf = 1e18

// hungarianAssign solves the square assignment problem for a dim x dim cost
// matrix using Kuhn-Munkres with potentials (the Jonker-Volgenant shortest
// augmenting path variant). It returns assignment[i] = column assigned to
// row i. Costs at or above hungarianLnf are never selected when a cheaper
// alternative exists, but — unlike a rectangular solver — every row and
// column in a square matrix is assigned; callers filter out entries whose
// realized cost marks a forbidden pair (the assigner checks invalidMatch).
//
// Adapted from the two-pass ByteTrack associator's Go counterpart
// (itself a Kuhn-Munkres implementation with 1-indexed internal arrays for
// cleaner index arithmetic); generalized here from a rectangular cost
// matrix wrapper to operate directly on the pre-padded square matrix the
// two-pass assigner builds, since both passes already need the dummy
// rows/cols to carry meaning (forced costs) rather than being trimmed away.
func hungarianAssign(cost [][]float64) []int {
	dim := len(cost)
	if dim == 0 {
		return nil
	}

	const inf = math.MaxFloat64 / 2

	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 && p[j] <= dim {
			rowAssign[p[j]-1] = j - 1
		}
	}
	return rowAssign
}
