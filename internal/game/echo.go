package game

// Echo is one expanding, fading pulse. Its origin is fixed at emission and
// does not follow the player.
type Echo struct {
	ID        int64
	X, Y      float64
	Radius    float64
	MaxRadius float64
	Opacity   float64
	Speed     float64
}

// EchoField owns the ordered sequence of live echoes for one run.
type EchoField struct {
	echoes []*Echo
	nextID int64
}

// NewEchoField creates an empty echo field.
func NewEchoField() *EchoField {
	return &EchoField{echoes: make([]*Echo, 0, 16)}
}

// Echoes returns the live echo slice. Callers must not retain it across
// frames.
func (f *EchoField) Echoes() []*Echo {
	return f.echoes
}

// Len returns the number of live echoes.
func (f *EchoField) Len() int {
	return len(f.echoes)
}

// Reset drops all echoes for a fresh run.
func (f *EchoField) Reset() {
	f.echoes = f.echoes[:0]
}

// Emit appends a fresh echo at the given origin using the profile's radius
// cap and expansion speed. Gating (cooldown, budget) is the ping gate's
// job; Emit itself is unconditional.
func (f *EchoField) Emit(x, y float64, profile Profile) *Echo {
	f.nextID++
	e := &Echo{
		ID:        f.nextID,
		X:         x,
		Y:         y,
		Radius:    0,
		MaxRadius: profile.MaxRadius,
		Opacity:   1,
		Speed:     profile.EchoSpeed,
	}
	f.echoes = append(f.echoes, e)
	return e
}

// Advance expands and fades every echo, pruning the fully faded ones. A
// slow-decaying echo stalls at MaxRadius while it keeps fading - that is
// the intended look, not a bug.
func (f *EchoField) Advance(profile Profile) {
	n := 0
	for _, e := range f.echoes {
		e.Radius += e.Speed
		if e.Radius > e.MaxRadius {
			e.Radius = e.MaxRadius
		}
		e.Opacity -= profile.OpacityDecay
		if e.Opacity > 0 {
			f.echoes[n] = e
			n++
		}
	}
	f.echoes = f.echoes[:n]
}
