package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/calvinmclean/linefollower"
)

// timer shows how long the current run has been going. It keeps the final time after Stop.
type timer struct {
	mtx     sync.Mutex
	start   time.Time
	elapsed time.Duration
	running bool
	text    *canvas.Text
}

func newTimer() *timer {
	return &timer{
		text: canvas.NewText(formatElapsed(0), nil),
	}
}

func (t *timer) Start(now time.Time) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.start = now
	t.elapsed = 0
	t.running = true
}

func (t *timer) Stop(now time.Time) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if !t.running {
		return
	}
	t.elapsed = now.Sub(t.start)
	t.running = false
}

func (t *timer) Elapsed(now time.Time) time.Duration {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.running {
		return now.Sub(t.start)
	}
	return t.elapsed
}

// track times runs from the robot's output. The timer starts when the robot starts following and
// stops at the summary or when the run is canceled.
func (t *timer) track(sec section, status string, now time.Time) {
	switch {
	case sec == sectionStatus && status == linefollower.StatusFollowing:
		t.Start(now)
	case sec == sectionStatus && status == linefollower.StatusCanceled,
		sec == sectionSummary:
		t.Stop(now)
	}
}

func formatElapsed(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}

// Go refreshes the text until ctx is done
func (t *timer) Go(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(64 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				text := formatElapsed(t.Elapsed(now))
				fyne.Do(func() {
					t.text.Text = text
					t.text.Refresh()
				})
			}
		}
	}()
}
