// internal/lobby/patterns.go
package lobby

// Pattern names one of the eight winning lines of a 3x3 grid.
type Pattern string

const (
	PatternRow0         Pattern = "row_0"
	PatternRow1         Pattern = "row_1"
	PatternRow2         Pattern = "row_2"
	PatternCol0         Pattern = "col_0"
	PatternCol1         Pattern = "col_1"
	PatternCol2         Pattern = "col_2"
	PatternDiagonalMain Pattern = "diagonal_main"
	PatternDiagonalAnti Pattern = "diagonal_anti"
)

type cell struct{ row, col int }

// winningLines is checked in order; the first full line wins.
var winningLines = []struct {
	pattern Pattern
	cells   [GridSize]cell
}{
	{PatternRow0, [GridSize]cell{{0, 0}, {0, 1}, {0, 2}}},
	{PatternRow1, [GridSize]cell{{1, 0}, {1, 1}, {1, 2}}},
	{PatternRow2, [GridSize]cell{{2, 0}, {2, 1}, {2, 2}}},
	{PatternCol0, [GridSize]cell{{0, 0}, {1, 0}, {2, 0}}},
	{PatternCol1, [GridSize]cell{{0, 1}, {1, 1}, {2, 1}}},
	{PatternCol2, [GridSize]cell{{0, 2}, {1, 2}, {2, 2}}},
	{PatternDiagonalMain, [GridSize]cell{{0, 0}, {1, 1}, {2, 2}}},
	{PatternDiagonalAnti, [GridSize]cell{{0, 2}, {1, 1}, {2, 0}}},
}

// WinningPattern returns the first line of grid whose every cell is in marked.
// A grid that is not 3x3 never wins.
func WinningPattern(grid Grid, marked map[int]bool) (Pattern, bool) {
	if !grid.isSquare() {
		return "", false
	}
	for _, line := range winningLines {
		full := true
		for _, c := range line.cells {
			if !marked[grid[c.row][c.col]] {
				full = false
				break
			}
		}
		if full {
			return line.pattern, true
		}
	}
	return "", false
}
