package sweeper

import (
	"context"
	"sync"
	"time"

	"SupportChat/logger"
	"SupportChat/tools/safe"
)

// SessionPurger deletes session records whose visibility window has passed.
type SessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MessagePurger deletes messages older than a cutoff.
type MessagePurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Conf struct {
	SessionEvery time.Duration // session sweep interval
	MessageEvery time.Duration // message sweep interval
	Retention    time.Duration // message age limit
	OpTimeout    time.Duration
	Clock        func() time.Time
}

func (c *Conf) norm() {
	if c.SessionEvery <= 0 {
		c.SessionEvery = 25 * time.Hour
	}
	if c.MessageEvery <= 0 {
		c.MessageEvery = 7 * 24 * time.Hour
	}
	if c.Retention <= 0 {
		c.Retention = 7 * 24 * time.Hour
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 30 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Sweeper runs the two retention tasks on independent tickers. The tasks
// touch disjoint collections and never coordinate; a failed tick is logged
// and retried on the next schedule.
type Sweeper struct {
	conf     Conf
	sessions SessionPurger
	messages MessagePurger

	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(conf Conf, sessions SessionPurger, messages MessagePurger) *Sweeper {
	conf.norm()
	return &Sweeper{
		conf:     conf,
		sessions: sessions,
		messages: messages,
		stopCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	safe.SafeGo(func() { s.loop(s.conf.SessionEvery, s.SweepSessions) })
	safe.SafeGo(func() { s.loop(s.conf.MessageEvery, s.SweepMessages) })
}

func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Sweeper) loop(every time.Duration, tick func()) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			tick()
		}
	}
}

// SweepSessions deletes exactly the records with adminVisibility < now.
func (s *Sweeper) SweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), s.conf.OpTimeout)
	defer cancel()

	n, err := s.sessions.DeleteExpired(ctx, s.conf.Clock())
	if err != nil {
		logger.Errorf("session sweep failed: %v", err)
		return
	}
	logger.Infof("session sweep removed %d records", n)
}

// SweepMessages deletes messages older than the retention window.
func (s *Sweeper) SweepMessages() {
	ctx, cancel := context.WithTimeout(context.Background(), s.conf.OpTimeout)
	defer cancel()

	cutoff := s.conf.Clock().Add(-s.conf.Retention)
	n, err := s.messages.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Errorf("message sweep failed: %v", err)
		return
	}
	logger.Infof("message sweep removed %d records", n)
}
