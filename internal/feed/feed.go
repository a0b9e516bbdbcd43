// Package feed resolves football fixtures into the final state settlement needs.
package feed

import (
	"context"
	"errors"
)

var (
	// ErrFixtureNotFound is returned when the provider has no record of the fixture.
	ErrFixtureNotFound = errors.New("fixture not found")

	// ErrUnavailable wraps transport failures, exhausted retries and malformed payloads.
	ErrUnavailable = errors.New("match feed unavailable")
)

// Short status codes reported by the provider for a completed fixture.
const (
	StatusFullTime       = "FT"
	StatusAfterExtraTime = "AET"
	StatusPenalties      = "PEN"
	StatusNotStarted     = "NS"
)

// Fixture is the subset of match data needed to settle wagers.
type Fixture struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
}

// Finished reports whether the fixture has a final result.
func (f Fixture) Finished() bool {
	switch f.Status {
	case StatusFullTime, StatusAfterExtraTime, StatusPenalties:
		return true
	default:
		return false
	}
}

// Feed looks up a fixture by its provider id.
type Feed interface {
	Fixture(ctx context.Context, id string) (Fixture, error)
}
