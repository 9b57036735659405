package engine

// CountTotalDestinations counts the destinations in the grid
func CountTotalDestinations(grid [][]Cell) int {
	return CountCellType(grid, Destination)
}

// CountCellType counts the total number of cells of a specific type in the grid
func CountCellType(grid [][]Cell, cellType CellType) int {
	count := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell.Type == cellType {
				count++
			}
		}
	}
	return count
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// RoadDistances returns the number of forward moves needed to reach every
// road cell from the given position. Obstacles block the road.
func RoadDistances(state *GameState, from Position) map[Position]int {
	distances := map[Position]int{from: 0}
	queue := []Position{from}
	headings := []Heading{North, East, South, West}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, h := range headings {
			next := current.Add(h)
			if _, seen := distances[next]; seen || !state.CanDriveTo(next) {
				continue
			}
			distances[next] = distances[current] + 1
			queue = append(queue, next)
		}
	}

	return distances
}

// FindNearestUnvisitedDestination finds the closest destination not yet
// reached, by road, and returns its position and distance
func FindNearestUnvisitedDestination(state *GameState) (Position, int, bool) {
	distances := RoadDistances(state, state.VanPos)
	minDistance := UnreachableDistance
	var nearestPos Position
	found := false

	for row := range state.Grid {
		for x, cell := range state.Grid[row] {
			if cell.Type != Destination || cell.Visited {
				continue
			}
			pos := Position{X: x, Y: len(state.Grid) - 1 - row}
			distance, ok := distances[pos]
			if ok && distance < minDistance {
				minDistance = distance
				nearestPos = pos
				found = true
			}
		}
	}

	if !found {
		return Position{}, -1, false
	}
	return nearestPos, minDistance, true
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
