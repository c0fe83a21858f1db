package game

import (
	"math"
	"math/rand"
)

const (
	// FrameMs is the fixed per-frame decrement applied to reveal timers.
	FrameMs = 16.0

	// ObstacleWidth and ObstacleHeight are the fixed obstacle footprint.
	ObstacleWidth  = 40.0
	ObstacleHeight = 60.0

	// SpawnGap keeps the rightmost obstacle at least this far from the
	// right edge before another spawn trial is drawn.
	SpawnGap = 200.0

	// SpawnOffset is how far past the right edge new obstacles appear.
	SpawnOffset = 50.0

	// SpawnMargin keeps spawned obstacles this far from the top and
	// bottom field edges.
	SpawnMargin = 50.0

	// IlluminationMargin widens the echo radius for reveal checks so
	// obstacles light up slightly before the ring visually reaches them.
	IlluminationMargin = 20.0
)

// Obstacle is one scrolling rectangle in the corridor. Revealed is sticky:
// once any echo has touched the obstacle it stays true, while RevealTimer
// drives the visible illumination fade.
type Obstacle struct {
	ID          int64
	X, Y        float64
	W, H        float64
	Revealed    bool
	RevealTimer float64 // ms, floored at 0
}

// Lit reports whether the obstacle is currently illuminated.
func (o *Obstacle) Lit() bool {
	return o.Revealed && o.RevealTimer > 0
}

// ObstacleField owns the ordered sequence of obstacles for one run.
type ObstacleField struct {
	obstacles []*Obstacle
	nextID    int64
	fieldW    float64
	fieldH    float64
	rng       *rand.Rand
}

// NewObstacleField creates an empty field with its own RNG stream.
func NewObstacleField(fieldW, fieldH float64, rng *rand.Rand) *ObstacleField {
	return &ObstacleField{
		obstacles: make([]*Obstacle, 0, 32),
		fieldW:    fieldW,
		fieldH:    fieldH,
		rng:       rng,
	}
}

// Obstacles returns the live obstacle slice. Callers must not retain it
// across frames.
func (f *ObstacleField) Obstacles() []*Obstacle {
	return f.obstacles
}

// Len returns the number of active obstacles.
func (f *ObstacleField) Len() int {
	return len(f.obstacles)
}

// Reset drops all obstacles for a fresh run.
func (f *ObstacleField) Reset() {
	f.obstacles = f.obstacles[:0]
}

// Advance runs one frame of the obstacle field: scroll left, decay reveal
// timers, prune off-screen obstacles, then maybe spawn.
func (f *ObstacleField) Advance(scrollSpeed float64, profile Profile) {
	// In-place filter, zero allocation per frame.
	n := 0
	for _, o := range f.obstacles {
		o.X -= scrollSpeed
		o.RevealTimer -= FrameMs
		if o.RevealTimer < 0 {
			o.RevealTimer = 0
		}
		if o.X > -o.W {
			f.obstacles[n] = o
			n++
		}
	}
	f.obstacles = f.obstacles[:n]

	f.maybeSpawn(profile)
}

// maybeSpawn draws one Bernoulli trial per frame when the spawn edge is
// clear. The gap guard allows several obstacles on screen without letting
// them pile up at the edge.
func (f *ObstacleField) maybeSpawn(profile Profile) {
	if len(f.obstacles) > 0 {
		rightmost := f.obstacles[0].X
		for _, o := range f.obstacles[1:] {
			if o.X > rightmost {
				rightmost = o.X
			}
		}
		if rightmost >= f.fieldW-SpawnGap {
			return
		}
	}
	if f.rng.Float64() >= profile.SpawnProb {
		return
	}

	f.nextID++
	span := f.fieldH - ObstacleHeight - 2*SpawnMargin
	f.obstacles = append(f.obstacles, &Obstacle{
		ID: f.nextID,
		X:  f.fieldW + SpawnOffset,
		Y:  SpawnMargin + f.rng.Float64()*span,
		W:  ObstacleWidth,
		H:  ObstacleHeight,
	})
}

// RecomputeVisibility marks every obstacle whose center lies within an
// echo's illumination radius as revealed and refreshes its timer. The check
// is a pure function of the echo/obstacle snapshot: re-running it in the
// same frame yields the same result, and the last qualifying echo simply
// resets the timer to the same profile value.
func (f *ObstacleField) RecomputeVisibility(echoes []*Echo, profile Profile) {
	for _, o := range f.obstacles {
		cx := o.X + o.W/2
		cy := o.Y + o.H/2
		for _, e := range echoes {
			dist := math.Hypot(cx-e.X, cy-e.Y)
			if dist <= e.Radius+IlluminationMargin {
				o.Revealed = true
				o.RevealTimer = profile.RevealMs
			}
		}
	}
}
