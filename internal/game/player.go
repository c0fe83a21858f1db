package game

// Direction is a held movement direction.
type Direction string

const (
	DirUp   Direction = "up"
	DirDown Direction = "down"
)

// PlayerStep is the fixed vertical movement per frame per held direction.
const PlayerStep = 5.0

// Player is the player-controlled entity. X is fixed after reset; only Y
// moves, clamped to the play field.
type Player struct {
	X, Y float64
	Size float64
}

// NewPlayer places the player at its starting position for a field of the
// given height.
func NewPlayer(x, fieldHeight, size float64) *Player {
	return &Player{X: x, Y: fieldHeight / 2, Size: size}
}

// Advance applies one frame of held-direction input.
//
// Up is applied before down, each with its own clamp. When both are held
// the down step runs last, so at the bottom edge "down wins" - this
// tie-break is deliberate and covered by tests; do not reorder.
func (p *Player) Advance(held map[Direction]bool, fieldHeight float64) {
	if held[DirUp] {
		p.Y -= PlayerStep
		if p.Y < 0 {
			p.Y = 0
		}
	}
	if held[DirDown] {
		p.Y += PlayerStep
		if max := fieldHeight - p.Size; p.Y > max {
			p.Y = max
		}
	}
}

// Reset returns the player to the vertical center.
func (p *Player) Reset(fieldHeight float64) {
	p.Y = fieldHeight / 2
}
