// internal/lobby/grid.go
package lobby

import "math/rand"

// Grid is a row-major arrangement of a player's numbers.
type Grid [][]int

func (g Grid) isSquare() bool {
	if len(g) != GridSize {
		return false
	}
	for _, row := range g {
		if len(row) != GridSize {
			return false
		}
	}
	return true
}

// Flatten returns the cells in row-major order.
func (g Grid) Flatten() []int {
	flat := make([]int, 0, GridSize*GridSize)
	for _, row := range g {
		flat = append(flat, row...)
	}
	return flat
}

// ValidateGrid checks shape, distinctness and range, in that order.
func ValidateGrid(g Grid, maxNumber int) error {
	if !g.isSquare() {
		return newError(KindValidation, "grid must be %dx%d", GridSize, GridSize)
	}
	flat := g.Flatten()
	seen := make(map[int]bool, len(flat))
	for _, n := range flat {
		seen[n] = true
	}
	if len(seen) != len(flat) {
		return newError(KindValidation, "grid must contain %d unique numbers", GridSize*GridSize)
	}
	for _, n := range flat {
		if n < 1 || n > maxNumber {
			return newError(KindValidation, "numbers must be between 1 and %d", maxNumber)
		}
	}
	return nil
}

// RandomGrid samples GridSize*GridSize distinct values from [1, maxNumber] without replacement.
func RandomGrid(maxNumber int) Grid {
	perm := rand.Perm(maxNumber)
	g := make(Grid, GridSize)
	for r := range g {
		g[r] = make([]int, GridSize)
		for c := range g[r] {
			g[r][c] = perm[r*GridSize+c] + 1
		}
	}
	return g
}

// shuffledPool is the default draw order: every valid number once, randomly ordered.
func shuffledPool(maxNumber int) []int {
	pool := make([]int, maxNumber)
	for i, v := range rand.Perm(maxNumber) {
		pool[i] = v + 1
	}
	return pool
}
