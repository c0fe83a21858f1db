package game

import (
	"sync/atomic"
	"time"
)

// ResourceLimits caps the snapshot slices so a render consumer can never
// be handed unbounded state.
type ResourceLimits struct {
	MaxObstacles int // Per-frame rendered obstacle limit
	MaxEchoes    int // Per-frame rendered echo limit
}

// DefaultLimits provides safe defaults. Both caps are far above what the
// spawn gap and echo cooldown can actually produce.
var DefaultLimits = ResourceLimits{
	MaxObstacles: 64,
	MaxEchoes:    32,
}

// ObstacleSnapshot is an immutable copy of one obstacle for rendering.
type ObstacleSnapshot struct {
	ID       int64   `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
	Revealed bool    `json:"revealed"`
	// LitFrac is the remaining reveal time as a fraction of the profile
	// reveal duration; 0 means logically seen but no longer illuminated.
	LitFrac float64 `json:"litFrac"`
}

// EchoSnapshot is an immutable copy of one echo for rendering.
type EchoSnapshot struct {
	ID      int64   `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Radius  float64 `json:"radius"`
	Opacity float64 `json:"opacity"`
}

// PlayerSnapshot is an immutable copy of the player for rendering.
type PlayerSnapshot struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

// RunSnapshot is the complete immutable run state handed to the
// presentation collaborator once per frame. Slices are pre-allocated and
// capped; consumers must treat the whole struct as read-only.
type RunSnapshot struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Frame     uint64    `json:"frame"`

	State      State      `json:"state"`
	Difficulty Difficulty `json:"difficulty"`
	Mode       GameMode   `json:"mode"`

	Player    PlayerSnapshot     `json:"player"`
	Obstacles []ObstacleSnapshot `json:"obstacles"`
	Echoes    []EchoSnapshot     `json:"echoes"`

	Score          int     `json:"score"`
	Speed          float64 `json:"speed"`
	PingsRemaining int     `json:"pingsRemaining"`
	CooldownFrac   float64 `json:"cooldownFrac"`
	CollisionFlash bool    `json:"collisionFlash"`

	FieldWidth  float64 `json:"fieldWidth"`
	FieldHeight float64 `json:"fieldHeight"`
}

// SnapshotPool triple-buffers snapshots so the frame producer and the
// render/broadcast consumers never share a lock. Producer and consumers
// each touch their own index atomically.
type SnapshotPool struct {
	snapshots [3]RunSnapshot
	limits    ResourceLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated capped slices.
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}
	for i := 0; i < 3; i++ {
		pool.snapshots[i] = RunSnapshot{
			Obstacles: make([]ObstacleSnapshot, 0, limits.MaxObstacles),
			Echoes:    make([]EchoSnapshot, 0, limits.MaxEchoes),
		}
	}
	return pool
}

// AcquireWrite returns the next write slot with reset slices but preserved
// capacity. Producer only.
func (p *SnapshotPool) AcquireWrite() *RunSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Obstacles = snap.Obstacles[:0]
	snap.Echoes = snap.Echoes[:0]
	snap.CollisionFlash = false

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite makes the populated write slot visible to readers.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead returns the latest published snapshot. Consumer only.
func (p *SnapshotPool) AcquireRead() *RunSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// Limits returns the pool's resource limits.
func (p *SnapshotPool) Limits() ResourceLimits {
	return p.limits
}
