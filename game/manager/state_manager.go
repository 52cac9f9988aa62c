package manager

import (
	"snake-rl/game/entity"
	"snake-rl/game/types"
)

// StateManager turns the raw board into the observation handed to the agent.
type StateManager struct {
	grid         types.Grid
	collisionMgr *CollisionManager
}

func NewStateManager(grid types.Grid, collisionMgr *CollisionManager) *StateManager {
	return &StateManager{
		grid:         grid,
		collisionMgr: collisionMgr,
	}
}

// Observe computes the food category and danger signals for the current board.
func (sm *StateManager) Observe(snake *entity.Snake, food types.Point) types.Observation {
	return types.Observation{
		Food:    types.FoodDirectionOf(snake.GetHead(), food),
		Heading: snake.Direction,
		Danger:  sm.collisionMgr.Dangers(snake),
	}
}
