package clock

import "time"

// Clock abstracts the time source so that maturity and epoch gating can be
// tested deterministically. Nothing in the core sleeps on it.
type Clock interface {
	Now() time.Time
}

// System reads the real time.
type System struct{}

func (System) Now() time.Time { return time.Now() }
