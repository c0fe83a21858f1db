// Package render draws run snapshots to images. It backs the spectator
// /api/frame.png endpoint; the browser client does its own drawing from
// the same snapshot data.
package render

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"

	"echo-corridor/internal/game"
)

// FrameRenderer rasterizes a RunSnapshot. Not safe for concurrent use;
// callers serialize access (the HTTP handler holds one per request or a
// mutex-guarded singleton).
type FrameRenderer struct {
	width  int
	height int
	dc     *gg.Context
}

// NewFrameRenderer creates a renderer matching the play-field size.
func NewFrameRenderer(width, height int) *FrameRenderer {
	return &FrameRenderer{
		width:  width,
		height: height,
		dc:     gg.NewContext(width, height),
	}
}

// Render draws the snapshot and returns the backing image. The image is
// reused across calls; encode or copy it before the next Render.
func (r *FrameRenderer) Render(snap *game.RunSnapshot) image.Image {
	dc := r.dc

	r.drawBackground(dc)
	r.drawEchoes(dc, snap.Echoes)
	r.drawObstacles(dc, snap.Obstacles)
	r.drawPlayer(dc, snap)
	r.drawHUD(dc, snap)

	return dc.Image()
}

// EncodePNG renders the snapshot straight to PNG.
func (r *FrameRenderer) EncodePNG(snap *game.RunSnapshot, w io.Writer) error {
	r.Render(snap)
	return r.dc.EncodePNG(w)
}

// drawBackground paints the dark corridor with faint bounds.
func (r *FrameRenderer) drawBackground(dc *gg.Context) {
	dc.SetRGB(0.02, 0.02, 0.05)
	dc.Clear()

	dc.SetRGBA(1, 1, 1, 0.08)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, float64(r.width)-1, float64(r.height)-1)
	dc.Stroke()
}

// drawEchoes strokes each pulse as a ring whose alpha tracks its opacity.
func (r *FrameRenderer) drawEchoes(dc *gg.Context, echoes []game.EchoSnapshot) {
	for _, e := range echoes {
		if e.Radius <= 0 {
			continue
		}
		dc.SetRGBA(0.45, 0.85, 1, e.Opacity)
		dc.SetLineWidth(2)
		dc.DrawCircle(e.X, e.Y, e.Radius)
		dc.Stroke()

		// Inner halo so fresh pings read brighter
		dc.SetRGBA(0.45, 0.85, 1, e.Opacity*0.25)
		dc.DrawCircle(e.X, e.Y, e.Radius*0.85)
		dc.Stroke()
	}
}

// drawObstacles fills each obstacle by its illumination. Unrevealed
// obstacles are genuinely invisible - that is the game.
func (r *FrameRenderer) drawObstacles(dc *gg.Context, obstacles []game.ObstacleSnapshot) {
	for _, o := range obstacles {
		if !o.Revealed || o.LitFrac <= 0 {
			continue
		}
		alpha := 0.15 + 0.85*o.LitFrac
		dc.SetRGBA(0.8, 0.75, 0.6, alpha)
		dc.DrawRectangle(o.X, o.Y, o.W, o.H)
		dc.Fill()

		dc.SetRGBA(1, 0.95, 0.8, alpha)
		dc.SetLineWidth(1.5)
		dc.DrawRectangle(o.X, o.Y, o.W, o.H)
		dc.Stroke()
	}
}

// drawPlayer draws the player square, red during the collision flash.
func (r *FrameRenderer) drawPlayer(dc *gg.Context, snap *game.RunSnapshot) {
	p := snap.Player
	if snap.CollisionFlash {
		dc.SetRGB(1, 0.2, 0.2)
	} else {
		dc.SetRGB(0.95, 0.95, 1)
	}
	dc.DrawRectangle(p.X, p.Y, p.Size, p.Size)
	dc.Fill()
}

// drawHUD renders score, ping budget and cooldown bar.
func (r *FrameRenderer) drawHUD(dc *gg.Context, snap *game.RunSnapshot) {
	dc.SetRGBA(1, 1, 1, 0.9)
	dc.DrawStringAnchored(fmt.Sprintf("SCORE %d", snap.Score), 12, 16, 0, 0.5)

	pings := "∞"
	if snap.Mode == game.ModeLimited {
		pings = fmt.Sprintf("%d", snap.PingsRemaining)
	}
	dc.DrawStringAnchored(fmt.Sprintf("PINGS %s", pings), 12, 32, 0, 0.5)

	if snap.State != game.StatePlaying {
		dc.DrawStringAnchored(string(snap.State), float64(r.width)/2, float64(r.height)/2, 0.5, 0.5)
	}

	// Cooldown bar along the bottom edge
	barW := (float64(r.width) - 24) * snap.CooldownFrac
	dc.SetRGBA(0.45, 0.85, 1, 0.6)
	dc.DrawRectangle(12, float64(r.height)-10, barW, 4)
	dc.Fill()
}
