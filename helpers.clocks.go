package main

import (
	"fmt"
	"time"
)

var (
	_ Clocker = (*Clock)(nil)     // ensure Clock implements Clocker
	_ Clocker = (*TickClock)(nil) // ensure TickClock implements Clocker
)

// Clocker is an interface for getting current real time.
type Clocker interface {
	Now() time.Time
}

// Clock implements the Clocker interface.
type Clock struct {
	tz *time.Location
}

// NewClock returns a ready to use Clock with timezone sets
// to UTC in production environment and Local in dev env.
func NewClock(isProd bool) *Clock {
	if isProd {
		return &Clock{time.UTC}
	}
	return &Clock{time.Local}
}

// Now provides current clock time.
func (ck *Clock) Now() time.Time {
	return time.Now().In(ck.tz)
}

// TickClock is the zapcore.Clock handed to the logger. Log
// entries are stamped with the same timezone as the app.
type TickClock struct {
	clock Clocker
}

func NewTickClock(ck Clocker) *TickClock {
	return &TickClock{ck}
}

func (tc *TickClock) Now() time.Time {
	return tc.clock.Now()
}

func (tc *TickClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// uptime tells in whole minutes how long ago started was.
func uptime(ck Clocker, started time.Time) string {
	return fmt.Sprintf("%.0f mins", ck.Now().Sub(started).Minutes())
}
