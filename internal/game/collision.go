package game

// rectsOverlap is the axis-aligned rectangle intersection test. Touching
// edges do not count as overlap.
func rectsOverlap(ax, ay, aw, ah, bx, by, bw, bh float64) bool {
	return ax < bx+bw && ax+aw > bx && ay < by+bh && ay+ah > by
}

// FirstCollision returns the first obstacle overlapping the player's
// footprint, or nil. Reveal state is irrelevant: an invisible obstacle
// kills just the same.
func FirstCollision(p *Player, obstacles []*Obstacle) *Obstacle {
	for _, o := range obstacles {
		if rectsOverlap(p.X, p.Y, p.Size, p.Size, o.X, o.Y, o.W, o.H) {
			return o
		}
	}
	return nil
}
