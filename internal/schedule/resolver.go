// Package schedule resolves which class session a student is attending at a
// given moment.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Session is a weekly recurring class slot.
type Session struct {
	ID      int64
	Name    string
	Weekday time.Weekday
	Start   ClockTime
	End     ClockTime
}

// Contains reports whether c falls in the inclusive window [Start, End].
func (s Session) Contains(c ClockTime) bool {
	return c >= s.Start && c <= s.End
}

// Source lists the sessions an owner is enrolled in on a weekday.
type Source interface {
	EnrolledSessions(ctx context.Context, ownerID string, weekday time.Weekday) ([]Session, error)
}

// Resolver maps (owner, instant) to the session in progress.
type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// SessionsFor returns the owner's sessions on weekday ordered by start time,
// then end time, then id.
func (r *Resolver) SessionsFor(ctx context.Context, ownerID string, weekday time.Weekday) ([]Session, error) {
	sessions, err := r.source.EnrolledSessions(ctx, ownerID, weekday)
	if err != nil {
		return nil, fmt.Errorf("listing sessions for %s: %w", ownerID, err)
	}
	SortSessions(sessions)
	return sessions, nil
}

// SessionAt returns the session containing now, or nil when none does.
// When sessions overlap, the earliest-starting one wins; ties fall back to
// the earlier end and then the lower id.
func (r *Resolver) SessionAt(ctx context.Context, ownerID string, now time.Time) (*Session, error) {
	sessions, err := r.SessionsFor(ctx, ownerID, now.Weekday())
	if err != nil {
		return nil, err
	}
	return Pick(sessions, ClockOf(now)), nil
}

// SortSessions orders sessions by start, end and id.
func SortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.ID < b.ID
	})
}

// Pick returns the first of the ordered sessions containing c.
func Pick(sessions []Session, c ClockTime) *Session {
	for i := range sessions {
		if sessions[i].Contains(c) {
			s := sessions[i]
			return &s
		}
	}
	return nil
}
