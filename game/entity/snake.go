package entity

import (
	"snake-rl/game/types"

	"golang.org/x/exp/slices"
)

// Snake is an ordered, head-first list of contiguous cells plus a heading.
type Snake struct {
	Body      []types.Point
	Direction types.Direction
}

// NewSnake copies body (head first) into a new snake moving in dir.
func NewSnake(body []types.Point, dir types.Direction) *Snake {
	return &Snake{
		Body:      slices.Clone(body),
		Direction: dir,
	}
}

// GetHead returns the first cell of the body.
func (s *Snake) GetHead() types.Point {
	return s.Body[0]
}

// GetTail returns the last cell of the body.
func (s *Snake) GetTail() types.Point {
	return s.Body[len(s.Body)-1]
}

// Len returns the number of cells.
func (s *Snake) Len() int {
	return len(s.Body)
}

// SetDirection turns the snake unless dir is the exact reverse of the
// current heading, in which case the heading is kept.
func (s *Snake) SetDirection(dir types.Direction) {
	if dir == s.Direction.Opposite() {
		return
	}
	s.Direction = dir
}

// NextHead returns the cell the head moves into on the next step.
func (s *Snake) NextHead(cellSize int) types.Point {
	return s.GetHead().Add(s.Direction.Delta(cellSize))
}

// Move prepends newHead.
func (s *Snake) Move(newHead types.Point) {
	s.Body = slices.Insert(s.Body, 0, newHead)
}

// RemoveTail drops the last cell.
func (s *Snake) RemoveTail() {
	if len(s.Body) > 0 {
		s.Body = s.Body[:len(s.Body)-1]
	}
}

// Contains reports whether p is any body cell.
func (s *Snake) Contains(p types.Point) bool {
	return slices.Contains(s.Body, p)
}

// HitsItself reports whether the head shares a cell with the rest of the body.
func (s *Snake) HitsItself() bool {
	if len(s.Body) < 2 {
		return false
	}
	return slices.Contains(s.Body[1:], s.GetHead())
}

// Cells returns a copy of the body, head first.
func (s *Snake) Cells() []types.Point {
	return slices.Clone(s.Body)
}
