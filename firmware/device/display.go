//go:build tinygo

package device

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/st7735"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	screenWidth  = 160
	screenHeight = 80

	ballSize        = 18
	linePosHeight   = ballSize + 2
	throttleWidth   = 16
	gaugeGutter     = 8
	linePosLeft     = throttleWidth + gaugeGutter
	linePosWidth    = screenWidth - 2*linePosLeft
	maxLinePosition = 250

	// status text sits between the throttle bars, under the line gauge
	statusTop      = linePosHeight + 4
	statusHeight   = screenHeight - statusTop
	statusBaseline = statusTop + 20

	// undrawn is never a valid bar height
	undrawn = screenHeight + 1
)

var (
	black     = color.RGBA{0, 0, 0, 255}
	white     = color.RGBA{255, 255, 255, 255}
	lightGray = color.RGBA{160, 160, 160, 255}
	darkGray  = color.RGBA{64, 64, 64, 255}
	green     = color.RGBA{120, 220, 120, 255}
	red       = color.RGBA{220, 60, 60, 255}
)

// Display draws the line position ball, the two throttle bars and the status text on the Mini TFT
type Display struct {
	dev st7735.Device

	ballX   int16
	left    int16
	right   int16
	status  string
	verbose bool
}

// NewDisplay configures the screen and draws the empty gauges
func NewDisplay(cfg DisplayConfig) *Display {
	dev := st7735.New(cfg.SPI, cfg.Reset, cfg.DC, cfg.CS, cfg.Backlight)
	dev.Configure(st7735.Config{
		Model:    st7735.MINI80x160,
		Rotation: drivers.Rotation90,
	})
	dev.FillScreen(black)

	d := &Display{dev: dev, ballX: -1, left: undrawn, right: undrawn}
	d.drawBackground()
	return d
}

func (d *Display) SetVerbose(v bool) {
	d.verbose = v
}

func (d *Display) fill(x, y, w, h int16, c color.RGBA) {
	err := d.dev.FillRectangle(x, y, w, h, c)
	if err != nil && d.verbose {
		println("error drawing on display:", err.Error())
	}
}

// ShowStatus replaces the status text. It is drawn even when the display setting is off.
func (d *Display) ShowStatus(text string) {
	if text == d.status {
		return
	}
	d.fill(linePosLeft, statusTop, linePosWidth, statusHeight, black)
	tinyfont.WriteLine(&d.dev, &proggy.TinySZ8pt7b, linePosLeft+2, statusBaseline, text, white)
	d.status = text
}

func (d *Display) drawBackground() {
	d.fill(linePosLeft, 0, linePosWidth, linePosHeight, white)
	d.fill(0, 0, throttleWidth, screenHeight, lightGray)
	d.fill(screenWidth-throttleWidth, 0, throttleWidth, screenHeight, lightGray)
}

// ShowLinePosition moves the ball across the top gauge. 125 is the center.
func (d *Display) ShowLinePosition(position int) {
	position = max(0, min(position, maxLinePosition))
	x := int16(linePosLeft + position*(linePosWidth-ballSize)/maxLinePosition)
	if x == d.ballX {
		return
	}

	if d.ballX >= 0 {
		d.fill(d.ballX, 1, ballSize, ballSize, white)
	}
	d.fill(linePosLeft+linePosWidth/2, 0, 1, linePosHeight, darkGray)
	d.fill(x, 1, ballSize, ballSize, green)
	d.ballX = x
}

// ShowThrottle fills each bar from the bottom. Reverse is drawn in red.
func (d *Display) ShowThrottle(left, right float64) {
	d.left = d.drawBar(0, left, d.left)
	d.right = d.drawBar(screenWidth-throttleWidth, right, d.right)
}

// drawBar returns the signed bar height so unchanged bars are not redrawn
func (d *Display) drawBar(x int16, throttle float64, prev int16) int16 {
	h := int16(max(-1, min(throttle, 1)) * screenHeight)
	if h == prev {
		return h
	}

	c := green
	height := h
	if h < 0 {
		c = red
		height = -h
	}

	d.fill(x+1, 0, throttleWidth-2, screenHeight-height, darkGray)
	if height > 0 {
		d.fill(x+1, screenHeight-height, throttleWidth-2, height, c)
	}
	return h
}
