package ui

import (
	"context"
	"fmt"
	"sync"

	"snake-rl/game/types"
	"snake-rl/stats"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	maxScores     = 200 // Maximum number of scores to show in graph
	borderPadding = 10
	statsPanel    = 220
	fontSize      = 16
	lineHeight    = 22
)

// Renderer draws the board after every step and a score graph after every
// episode. It implements training.Observer and stats.Sink and must be used
// from the thread that opened the window.
type Renderer struct {
	grid     types.Grid
	scale    int32
	cellSize int32
	offsetX  int32
	offsetY  int32
	width    int32
	height   int32

	stop      context.CancelFunc
	closeOnce sync.Once

	episode   int
	highScore int
	scores    []int
	lastMode  stats.Mode
}

// Open creates the window. Each game cell is drawn scale pixels wide per
// game pixel, and frames are paced to fps. stop is called when the user
// closes the window.
func Open(grid types.Grid, scale, fps int, stop context.CancelFunc) *Renderer {
	r := &Renderer{
		grid:  grid,
		scale: int32(scale),
		stop:  stop,
	}
	r.cellSize = int32(grid.CellSize) * r.scale
	r.offsetX = borderPadding
	r.offsetY = borderPadding
	r.width = int32(grid.Width)*r.scale + 2*borderPadding + statsPanel
	r.height = int32(grid.Height)*r.scale + 2*borderPadding
	if r.height < 360 {
		r.height = 360
	}

	rl.InitWindow(r.width, r.height, "Snake - Q-Learning")
	rl.SetTargetFPS(int32(fps))
	return r
}

func (r *Renderer) toScreen(p types.Point) (int32, int32) {
	return r.offsetX + int32(p.X)*r.scale, r.offsetY + int32(p.Y)*r.scale
}

// Observe draws one frame.
func (r *Renderer) Observe(body []types.Point, food types.Point) {
	if rl.WindowShouldClose() {
		if r.stop != nil {
			r.stop()
		}
		return
	}

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	// Board
	boardW := int32(r.grid.Width) * r.scale
	boardH := int32(r.grid.Height) * r.scale
	rl.DrawRectangle(r.offsetX-1, r.offsetY-1, boardW+2, boardH+2, rl.DarkGray)
	rl.DrawRectangle(r.offsetX, r.offsetY, boardW, boardH, rl.Black)
	for x := 0; x < r.grid.Width; x += r.grid.CellSize {
		for y := 0; y < r.grid.Height; y += r.grid.CellSize {
			sx, sy := r.toScreen(types.Point{X: x, Y: y})
			rl.DrawRectangleLines(sx, sy, r.cellSize, r.cellSize, rl.Color{R: 40, G: 40, B: 40, A: 255})
		}
	}

	// Food
	fx, fy := r.toScreen(food)
	rl.DrawRectangle(fx, fy, r.cellSize, r.cellSize, rl.Red)

	// Snake, tail first so the head is drawn on top
	for i := len(body) - 1; i >= 0; i-- {
		if !r.grid.Contains(body[i]) {
			continue
		}
		x, y := r.toScreen(body[i])
		color := rl.Green
		if i == 0 {
			color = rl.Lime
		} else if i == len(body)-1 {
			color = rl.DarkGreen
		}
		rl.DrawRectangle(x, y, r.cellSize, r.cellSize, color)
	}
	if len(body) > 1 && r.grid.Contains(body[0]) {
		r.drawHeading(body[0], body[1])
	}

	r.drawStatsPanel(len(body))
	rl.EndDrawing()
}

// drawHeading marks the direction of travel, derived from the first two cells.
func (r *Renderer) drawHeading(head, neck types.Point) {
	x, y := r.toScreen(head)
	half := r.cellSize / 2
	c := rl.Vector2{X: float32(x + half), Y: float32(y + half)}
	size := float32(half) / 2

	var tip rl.Vector2
	switch {
	case head.X > neck.X:
		tip = rl.Vector2{X: c.X + size, Y: c.Y}
	case head.X < neck.X:
		tip = rl.Vector2{X: c.X - size, Y: c.Y}
	case head.Y > neck.Y:
		tip = rl.Vector2{X: c.X, Y: c.Y + size}
	default:
		tip = rl.Vector2{X: c.X, Y: c.Y - size}
	}
	rl.DrawLineEx(c, tip, 2, rl.Yellow)
}

func (r *Renderer) drawStatsPanel(length int) {
	statsX := r.width - statsPanel + 5
	statsY := int32(borderPadding)

	rl.DrawRectangle(statsX-5, 0, statsPanel, r.height, rl.DarkGray)

	lines := []string{
		fmt.Sprintf("Mode: %s", r.lastMode),
		fmt.Sprintf("Episode: %d", r.episode+1),
		fmt.Sprintf("Length: %d", length),
		fmt.Sprintf("High score: %d", r.highScore),
	}
	for _, line := range lines {
		rl.DrawText(line, statsX, statsY, fontSize, rl.White)
		statsY += lineHeight
	}

	r.drawPerformanceGraph(statsX, statsY+lineHeight)
}

func (r *Renderer) drawPerformanceGraph(graphX, graphY int32) {
	graphWidth := int32(statsPanel - 20)
	graphHeight := r.height - graphY - 2*fontSize
	if graphHeight < 40 {
		return
	}

	rl.DrawText("Scores", graphX, graphY-fontSize-2, fontSize, rl.White)
	rl.DrawRectangleLines(graphX, graphY, graphWidth, graphHeight, rl.White)

	scores := r.scores
	if len(scores) > maxScores {
		scores = scores[len(scores)-maxScores:]
	}
	if len(scores) < 2 {
		return
	}

	maxScore := 1
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	for j := 1; j < len(scores); j++ {
		x1 := graphX + int32(float32(graphWidth)*float32(j-1)/float32(maxScores))
		y1 := graphY + graphHeight - int32(float32(graphHeight)*float32(scores[j-1])/float32(maxScore))
		x2 := graphX + int32(float32(graphWidth)*float32(j)/float32(maxScores))
		y2 := graphY + graphHeight - int32(float32(graphHeight)*float32(scores[j])/float32(maxScore))
		rl.DrawLine(x1, y1, x2, y2, rl.SkyBlue)
	}
}

// Record keeps the score history drawn in the side panel.
func (r *Renderer) Record(_ context.Context, rec stats.EpisodeRecord) error {
	r.episode = rec.Episode
	r.lastMode = rec.Mode
	r.scores = append(r.scores, rec.Score)
	if rec.Score > r.highScore {
		r.highScore = rec.Score
	}
	return nil
}

// Close closes the window.
func (r *Renderer) Close() error {
	r.closeOnce.Do(rl.CloseWindow)
	return nil
}
