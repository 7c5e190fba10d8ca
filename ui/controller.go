package ui

import (
	"github.com/calvinmclean/linefollower"
	"github.com/calvinmclean/linefollower/settings"
)

// commander turns button presses into serial commands
type commander struct {
	send    func(string) error
	onError func(error)
}

func (c *commander) run(cmd string) {
	err := c.send(cmd)
	if err != nil {
		c.onError(err)
	}
}

func (c *commander) FollowPath() {
	c.run("F")
}

func (c *commander) Cancel() {
	c.run(string(rune(linefollower.CancelFlag)))
}

func (c *commander) Calibrate() {
	c.run("C")
}

// DriveShape takes the shape key: 's', 'l' or 'r'
func (c *commander) DriveShape(shape byte) {
	c.run("G" + string(shape))
}

func (c *commander) ShowSensor() {
	c.run("P")
}

func (c *commander) Summary() {
	c.run("R")
}

func (c *commander) Settings() {
	c.run("D")
}

func (c *commander) Scroll(f settings.Field, dir int) {
	sign := "+"
	if dir < 0 {
		sign = "-"
	}
	c.run("S" + string(f.Key()) + sign)
}
