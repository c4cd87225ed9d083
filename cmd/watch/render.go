package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"skirmish.gg/internal/protocol"
)

// canvas is the part of tcell.Screen the renderer draws on.
type canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
}

var (
	styleBorder = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleBullet = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleDead   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleSelf   = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
)

var playerColors = []tcell.Color{
	tcell.ColorGreen, tcell.ColorRed, tcell.ColorBlue, tcell.ColorPurple,
	tcell.ColorOrange, tcell.ColorTeal, tcell.ColorFuchsia, tcell.ColorLime,
}

// arrows index by facing octant, starting east and turning clockwise (screen y grows down).
var arrows = []rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

// viewport maps world coordinates onto the terminal cells inside the border.
type viewport struct {
	worldW, worldH float64
	cols, rows     int
}

func (v viewport) cell(x, y float64) (int, int) {
	innerW, innerH := v.cols-2, v.rows-3
	if innerW < 1 || innerH < 1 {
		return -1, -1
	}
	cx := int(x / v.worldW * float64(innerW))
	cy := int(y / v.worldH * float64(innerH))
	cx = min(max(cx, 0), innerW-1)
	cy = min(max(cy, 0), innerH-1)
	return cx + 1, cy + 2
}

func facing(angle float64) rune {
	a := math.Mod(angle, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	oct := int(math.Round(a/(math.Pi/4))) % 8
	return arrows[oct]
}

func render(c canvas, v viewport, snap protocol.SnapshotMsg, self string) {
	drawText(c, 0, 0, styleStatus, fmt.Sprintf("tick %d  players %d  bullets %d", snap.Tick, len(snap.Players), len(snap.Bullets)))
	drawBox(c, 0, 1, v.cols-1, v.rows-1)

	for _, b := range snap.Bullets {
		x, y := v.cell(b.X, b.Y)
		if x < 0 {
			continue
		}
		c.SetContent(x, y, '•', nil, styleBullet)
	}
	for i, p := range snap.Players {
		x, y := v.cell(p.X, p.Y)
		if x < 0 {
			continue
		}
		style := tcell.StyleDefault.Foreground(playerColors[i%len(playerColors)])
		r := facing(p.Angle)
		switch {
		case !p.Alive:
			style, r = styleDead, 'x'
		case p.ID == self:
			style = styleSelf
		}
		c.SetContent(x, y, r, nil, style)
	}
}

func drawText(c canvas, x, y int, style tcell.Style, s string) {
	for i, r := range []rune(s) {
		c.SetContent(x+i, y, r, nil, style)
	}
}

func drawBox(c canvas, x0, y0, x1, y1 int) {
	if x1 <= x0 || y1 <= y0 {
		return
	}
	for x := x0 + 1; x < x1; x++ {
		c.SetContent(x, y0, '─', nil, styleBorder)
		c.SetContent(x, y1, '─', nil, styleBorder)
	}
	for y := y0 + 1; y < y1; y++ {
		c.SetContent(x0, y, '│', nil, styleBorder)
		c.SetContent(x1, y, '│', nil, styleBorder)
	}
	c.SetContent(x0, y0, '┌', nil, styleBorder)
	c.SetContent(x1, y0, '┐', nil, styleBorder)
	c.SetContent(x0, y1, '└', nil, styleBorder)
	c.SetContent(x1, y1, '┘', nil, styleBorder)
}
