package reminder

import "sync/atomic"

// Permission gates system notifications. It starts out not granted; the
// scheduler asks for it on every reschedule until it is.
type Permission interface {
	Granted() bool
	Request() bool
}

// ConfigPermission answers a request with a fixed, configured decision.
type ConfigPermission struct {
	allow   bool
	granted atomic.Bool
}

var _ Permission = (*ConfigPermission)(nil)

// NewConfigPermission returns a Permission that is granted on first request
// when allow is true and never granted otherwise.
func NewConfigPermission(allow bool) *ConfigPermission {
	return &ConfigPermission{allow: allow}
}

func (p *ConfigPermission) Granted() bool { return p.granted.Load() }

func (p *ConfigPermission) Request() bool {
	if p.allow {
		p.granted.Store(true)
	}
	return p.granted.Load()
}
