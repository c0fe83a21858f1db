package game

import "testing"

const testFieldHeight = 400.0

// TestPlayerAdvance verifies held-direction movement and clamping.
func TestPlayerAdvance(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		held  map[Direction]bool
		want  float64
	}{
		{"no input", 200, nil, 200},
		{"up", 200, map[Direction]bool{DirUp: true}, 195},
		{"down", 200, map[Direction]bool{DirDown: true}, 205},
		{"both cancel mid-field", 200, map[Direction]bool{DirUp: true, DirDown: true}, 200},
		{"up clamps at top", 3, map[Direction]bool{DirUp: true}, 0},
		{"down clamps at bottom", 368, map[Direction]bool{DirDown: true}, 370},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Player{X: 100, Y: tt.start, Size: 30}
			p.Advance(tt.held, testFieldHeight)
			if p.Y != tt.want {
				t.Errorf("Y = %v, want %v", p.Y, tt.want)
			}
			if p.X != 100 {
				t.Errorf("X moved to %v, must stay fixed", p.X)
			}
		})
	}
}

// TestPlayerDownWinsAtBottom pins the tie-break: up applies first, down
// second with its own clamp, so holding both at the bottom edge keeps the
// player pinned there.
func TestPlayerDownWinsAtBottom(t *testing.T) {
	p := &Player{X: 100, Y: testFieldHeight - 30, Size: 30}
	p.Advance(map[Direction]bool{DirUp: true, DirDown: true}, testFieldHeight)
	if p.Y != testFieldHeight-30 {
		t.Errorf("Y = %v, want %v (down wins at the bottom edge)", p.Y, testFieldHeight-30)
	}
}

// TestPlayerStaysInBounds hammers the invariant under arbitrary input.
func TestPlayerStaysInBounds(t *testing.T) {
	p := NewPlayer(100, testFieldHeight, 30)
	inputs := []map[Direction]bool{
		{DirUp: true},
		{DirUp: true, DirDown: true},
		{DirDown: true},
		nil,
	}
	for i := 0; i < 1000; i++ {
		p.Advance(inputs[i%len(inputs)], testFieldHeight)
		if p.Y < 0 || p.Y > testFieldHeight-p.Size {
			t.Fatalf("frame %d: Y = %v out of [0, %v]", i, p.Y, testFieldHeight-p.Size)
		}
	}
}

func TestPlayerReset(t *testing.T) {
	p := NewPlayer(100, testFieldHeight, 30)
	p.Y = 17
	p.Reset(testFieldHeight)
	if p.Y != testFieldHeight/2 {
		t.Errorf("Y after reset = %v, want %v", p.Y, testFieldHeight/2)
	}
}
