package manager

import (
	"snake-rl/game/entity"
	"snake-rl/game/types"
)

type CollisionManager struct {
	grid types.Grid
}

func NewCollisionManager(grid types.Grid) *CollisionManager {
	return &CollisionManager{
		grid: grid,
	}
}

// CheckCollision reports whether the snake's current head ends the episode:
// either it left the grid or it overlaps another body cell.
func (cm *CollisionManager) CheckCollision(snake *entity.Snake) bool {
	if cm.isWallCollision(snake.GetHead()) {
		return true
	}
	return snake.HitsItself()
}

// isWallCollision checks if a position lies outside the grid
func (cm *CollisionManager) isWallCollision(pos types.Point) bool {
	return !cm.grid.Contains(pos)
}

// IsDanger reports whether moving into pos would be fatal: off-grid or on the body.
func (cm *CollisionManager) IsDanger(pos types.Point, snake *entity.Snake) bool {
	if cm.isWallCollision(pos) {
		return true
	}
	return snake.Contains(pos)
}

// Dangers checks the four neighbours of the head. The reverse of the heading
// is not examined and is always reported dangerous.
func (cm *CollisionManager) Dangers(snake *entity.Snake) [types.NumDirections]bool {
	var dangers [types.NumDirections]bool
	forced := snake.Direction.Opposite()
	head := snake.GetHead()

	for _, dir := range types.Directions {
		if dir == forced {
			dangers[dir] = true
			continue
		}
		dangers[dir] = cm.IsDanger(head.Add(dir.Delta(cm.grid.CellSize)), snake)
	}

	return dangers
}

// IsFoodCollision checks if a position collides with food
func (cm *CollisionManager) IsFoodCollision(pos types.Point, food types.Point) bool {
	return pos == food
}

// ValidateSpawnPosition checks if a position is valid for placing food
func (cm *CollisionManager) ValidateSpawnPosition(pos types.Point, snake *entity.Snake) bool {
	if cm.isWallCollision(pos) {
		return false
	}
	return !snake.Contains(pos)
}
