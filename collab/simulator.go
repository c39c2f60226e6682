package collab

import (
	"collab-docs/core"
	"context"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Simulator stands in for remote participants by cycling the status of a
// random roster user on every tick.
type Simulator struct {
	facade   *Facade
	clock    clockwork.Clock
	interval time.Duration
	pick     func(n int) int
}

func NewSimulator(facade *Facade, clock clockwork.Clock, interval time.Duration) *Simulator {
	return &Simulator{
		facade:   facade,
		clock:    clock,
		interval: interval,
		pick:     rand.IntN,
	}
}

// NextStatus returns the status that follows s in the online, idle, offline cycle.
func NextStatus(s core.UserStatus) core.UserStatus {
	switch s {
	case core.StatusOnline:
		return core.StatusIdle
	case core.StatusIdle:
		return core.StatusOffline
	default:
		return core.StatusOnline
	}
}

// Step advances one random user. It does nothing on an empty roster.
func (s *Simulator) Step() {
	users := s.facade.Registry().Users()
	if len(users) == 0 {
		return
	}
	u := users[s.pick(len(users))]
	next := NextStatus(u.Status)
	logrus.WithFields(logrus.Fields{
		"user_id": u.ID,
		"from":    u.Status,
		"to":      next,
	}).Debug("Simulated status change")
	s.facade.UpdateUserStatus(u.ID, next)
}

// Run ticks until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	logrus.WithField("interval", s.interval).Info("Presence simulation started")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Presence simulation stopped")
			return
		case <-ticker.Chan():
			s.Step()
		}
	}
}
