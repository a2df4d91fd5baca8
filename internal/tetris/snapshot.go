package tetris

// View is the serialized state sent to clients.
type View struct {
	Board    *Board  `json:"board,omitempty"`
	BoardRLE string  `json:"boardRLE"`
	Active   *Piece  `json:"active"`
	Next     []Shape `json:"next,omitempty"`
	Hold     Shape   `json:"hold,omitempty"`
	Score    int     `json:"score"`
	Lines    int     `json:"lines"`
	Terminal bool    `json:"terminal"`
}

// Snapshot returns the full view for the owner, or the RLE-only view for opponents.
func (that *Engine) Snapshot(compact bool) any {
	return that.View(compact)
}

func (that *Engine) View(compact bool) View {
	board := that.Board()

	view := View{
		BoardRLE: EncodeRLE(&board),
		Active:   that.Active(),
		Score:    that.score,
		Lines:    that.lines,
		Terminal: that.terminal,
	}

	if compact {
		return view
	}

	view.Board = &board
	view.Next = that.Preview()
	view.Hold = that.hold

	return view
}

// Board returns a copy of the grid.
func (that *Engine) Board() Board {
	return that.board
}

// Active returns a copy of the active piece, or nil.
func (that *Engine) Active() *Piece {
	if that.active == nil {
		return nil
	}

	piece := *that.active

	return &piece
}

// Preview is the head of the lookahead queue shown to the player.
func (that *Engine) Preview() []Shape {
	preview := make([]Shape, PreviewSize)
	copy(preview, that.queue[:PreviewSize])

	return preview
}

func (that *Engine) Queue() []Shape {
	queue := make([]Shape, len(that.queue))
	copy(queue, that.queue)

	return queue
}

func (that *Engine) HeldShape() Shape {
	return that.hold
}
