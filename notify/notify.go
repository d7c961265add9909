// Package notify holds the single transient notice shown above the page.
package notify

import (
	"sync"
	"time"
)

// DisplayWindow is how long a notice stays visible.
const DisplayWindow = 5 * time.Second

type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
	Warning Severity = "warning"
)

// Notice is one message for the user.
type Notice struct {
	ID       uint64
	Severity Severity
	Text     string
	Created  time.Time
}

// Visible reports whether n should still be shown at now.
func (n Notice) Visible(now time.Time) bool {
	return n.ID != 0 && now.Sub(n.Created) < DisplayWindow
}

// Center keeps at most one notice. A new notice replaces the old one.
type Center struct {
	mu      sync.Mutex
	current Notice
	lastID  uint64
	now     func() time.Time
}

// NewCenter returns an empty Center using the wall clock.
func NewCenter() *Center {
	return &Center{now: time.Now}
}

// Show replaces the current notice and returns it. The caller schedules
// Expire(n.ID) after DisplayWindow.
func (c *Center) Show(sev Severity, text string) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID++
	c.current = Notice{ID: c.lastID, Severity: sev, Text: text, Created: c.clock()}
	return c.current
}

// Current returns the visible notice, if any.
func (c *Center) Current(now time.Time) (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current.Visible(now) {
		return Notice{}, false
	}
	return c.current, true
}

// Dismiss hides the current notice.
func (c *Center) Dismiss() {
	c.mu.Lock()
	c.current = Notice{}
	c.mu.Unlock()
}

// Expire hides the notice with id unless a newer one replaced it.
func (c *Center) Expire(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.ID != id || id == 0 {
		return false
	}
	c.current = Notice{}
	return true
}

func (c *Center) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
