// Package tetris is the reference per-player engine: a falling-block game on a
// fixed grid, fed by a seeded 7-bag randomizer.
package tetris

import (
	"github.com/rocketscienceinc/blockarena-backend/internal/game"
)

// Name is the engine's registry name.
const Name = "tetris"

const (
	Width  = 10
	Height = 20

	QueueSize   = 5
	PreviewSize = 3

	spawnX = 3
	spawnY = 0

	softDropScore = 1
	hardDropScore = 2
)

// Client input actions.
const (
	InputLeft  = "LEFT"
	InputRight = "RIGHT"
	InputCW    = "CW"
	InputCCW   = "CCW"
	InputSoft  = "SOFT"
	InputHard  = "HARD"
	InputHold  = "HOLD"
)

// lineScores is indexed by the number of rows cleared at once.
var lineScores = [5]int{0, 100, 300, 500, 800}

// kickOffsets are tried in order when a rotation collides at the anchor.
var kickOffsets = [5]int{0, -1, 1, -2, 2}

// Board is indexed [row][column]; 0 is empty, otherwise the shape color.
type Board [Height][Width]int

type Piece struct {
	Shape Shape `json:"shape"`
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Rot   int   `json:"rot"`
}

type Engine struct {
	board    Board
	bag      *Bag
	queue    []Shape
	active   *Piece
	hold     Shape
	holdUsed bool
	score    int
	lines    int
	terminal bool
}

func New(seed int64) *Engine {
	that := &Engine{
		bag:   NewBag(seed),
		queue: make([]Shape, 0, QueueSize),
	}

	for range QueueSize {
		that.queue = append(that.queue, that.bag.Next())
	}

	that.spawn()

	return that
}

// NewEngine adapts New to game.Factory.
func NewEngine(seed int64) game.Engine {
	return New(seed)
}

func (that *Engine) ApplyInput(action string) {
	switch action {
	case InputLeft:
		that.Move(-1)
	case InputRight:
		that.Move(1)
	case InputCW:
		that.Rotate(true)
	case InputCCW:
		that.Rotate(false)
	case InputSoft:
		that.SoftDrop()
	case InputHard:
		that.HardDrop()
	case InputHold:
		that.Hold()
	}
}

func (that *Engine) Tick() {
	that.GravityStep()
}

func (that *Engine) IsTerminal() bool {
	return that.terminal
}

func (that *Engine) Forfeit() {
	that.terminal = true
}

func (that *Engine) Stats() game.Stats {
	return game.Stats{Score: that.score, Lines: that.lines}
}

// Move shifts the active piece horizontally and reports whether it moved.
func (that *Engine) Move(dx int) bool {
	if !that.playable() {
		return false
	}

	if that.collides(that.active.X+dx, that.active.Y, that.active.Shape, that.active.Rot) {
		return false
	}

	that.active.X += dx

	return true
}

// Rotate tries the target rotation at the anchor, then at each kick offset.
func (that *Engine) Rotate(cw bool) bool {
	if !that.playable() {
		return false
	}

	step := 1
	if !cw {
		step = -1
	}

	rot := (that.active.Rot + step + 4) % 4

	for _, dx := range kickOffsets {
		if !that.collides(that.active.X+dx, that.active.Y, that.active.Shape, rot) {
			that.active.Rot = rot
			that.active.X += dx

			return true
		}
	}

	return false
}

// SoftDrop advances one row for a small score, or locks the piece if it has landed.
// It returns the number of rows cleared.
func (that *Engine) SoftDrop() int {
	if !that.playable() {
		return 0
	}

	if that.descend() {
		that.score += softDropScore
		return 0
	}

	return that.lock()
}

// HardDrop drops the piece to its landing row and locks it.
func (that *Engine) HardDrop() int {
	if !that.playable() {
		return 0
	}

	distance := 0
	for that.descend() {
		distance++
	}

	that.score += distance * hardDropScore

	return that.lock()
}

// GravityStep is SoftDrop without the score, driven by the scheduler.
func (that *Engine) GravityStep() int {
	if !that.playable() {
		return 0
	}

	if that.descend() {
		return 0
	}

	return that.lock()
}

// Hold swaps the active piece with the held one, at most once per piece.
func (that *Engine) Hold() bool {
	if !that.playable() || that.holdUsed {
		return false
	}

	that.holdUsed = true

	if that.hold == "" {
		that.hold = that.active.Shape
		that.spawn()

		return true
	}

	that.hold, that.active = that.active.Shape, &Piece{Shape: that.hold, X: spawnX, Y: spawnY}
	if that.collides(that.active.X, that.active.Y, that.active.Shape, that.active.Rot) {
		that.terminal = true
	}

	return true
}

func (that *Engine) playable() bool {
	return !that.terminal && that.active != nil
}

func (that *Engine) descend() bool {
	if that.collides(that.active.X, that.active.Y+1, that.active.Shape, that.active.Rot) {
		return false
	}

	that.active.Y++

	return true
}

// spawn takes the next shape from the queue and refills it from the bag. A piece
// that collides on arrival tops the engine out.
func (that *Engine) spawn() {
	shape := that.queue[0]
	that.queue = append(that.queue[1:], that.bag.Next())
	that.active = &Piece{Shape: shape, X: spawnX, Y: spawnY}

	if that.collides(that.active.X, that.active.Y, shape, 0) {
		that.terminal = true
	}
}

// lock writes the active piece into the board, clears full rows, scores them and
// spawns the next piece.
func (that *Engine) lock() int {
	color := that.active.Shape.color()

	for _, c := range that.active.Shape.cells(that.active.Rot) {
		x, y := that.active.X+c.x, that.active.Y+c.y
		if x >= 0 && x < Width && y >= 0 && y < Height {
			that.board[y][x] = color
		}
	}

	cleared := that.clearRows()

	that.lines += cleared
	that.score += lineScores[cleared]
	that.holdUsed = false
	that.spawn()

	return cleared
}

// clearRows removes full rows and inserts as many empty rows at the top.
func (that *Engine) clearRows() int {
	var next Board

	dst := Height - 1
	for y := Height - 1; y >= 0; y-- {
		if isFull(that.board[y]) {
			continue
		}

		next[dst] = that.board[y]
		dst--
	}

	that.board = next

	return dst + 1
}

func isFull(row [Width]int) bool {
	for _, v := range row {
		if v == 0 {
			return false
		}
	}

	return true
}

func (that *Engine) collides(x, y int, shape Shape, rot int) bool {
	for _, c := range shape.cells(rot) {
		xx, yy := x+c.x, y+c.y
		if xx < 0 || xx >= Width || yy < 0 || yy >= Height {
			return true
		}

		if that.board[yy][xx] != 0 {
			return true
		}
	}

	return false
}
