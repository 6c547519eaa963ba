// Package retention implements the scheduled purge jobs that remove job
// listings, applications and user accounts once their retention windows
// have elapsed.
//
// Every job re-evaluates eligibility from live data on each run, so a run
// repeated with no intervening changes deletes nothing. All cutoff
// comparisons are strict: a record whose timestamp equals the cutoff is kept.
package retention

import (
	"context"
	"fmt"
	"time"

	"jobrocket/retention-service/internal/model"
)

// Retention windows. These are legal requirements, not tunables.
const (
	ListingGracePeriod    = 7 * 24 * time.Hour
	UserGracePeriod       = 30 * 24 * time.Hour
	StaleApplicationYears = 2
)

// ListingCutoff is the instant before which an expired listing is purged.
func ListingCutoff(now time.Time) time.Time { return now.Add(-ListingGracePeriod) }

// UserCutoff is the instant before which a soft-deleted user is purged.
func UserCutoff(now time.Time) time.Time { return now.Add(-UserGracePeriod) }

// StaleApplicationCutoff is the listing expiry before which every application
// on that listing is purged, whatever its status.
func StaleApplicationCutoff(now time.Time) time.Time {
	return now.AddDate(-StaleApplicationYears, 0, 0)
}

// ListingEligible reports whether l expired strictly before cutoff.
func ListingEligible(l model.Listing, cutoff time.Time) bool {
	return l.ExpiresAt.Before(cutoff)
}

// UserEligible reports whether u is soft-deleted with a deletion time strictly
// before cutoff. A soft-delete without DeletedAt is never eligible.
func UserEligible(u model.User, cutoff time.Time) bool {
	return u.IsDeleted && u.DeletedAt != nil && u.DeletedAt.Before(cutoff)
}

// ListingCandidates returns the listings eligible for purge at now.
func ListingCandidates(ctx context.Context, s Store, now time.Time) ([]model.Listing, time.Time, error) {
	return expiredBefore(ctx, s, ListingCutoff(now))
}

// StaleListingCandidates returns the listings whose applications are stale
// at now.
func StaleListingCandidates(ctx context.Context, s Store, now time.Time) ([]model.Listing, time.Time, error) {
	return expiredBefore(ctx, s, StaleApplicationCutoff(now))
}

// UserCandidates returns the users eligible for purge at now.
func UserCandidates(ctx context.Context, s Store, now time.Time) ([]model.User, time.Time, error) {
	cutoff := UserCutoff(now)
	users, err := s.PurgeableUsers(ctx, cutoff)
	if err != nil {
		return nil, cutoff, fmt.Errorf("query purgeable users: %w", err)
	}
	return keep(users, func(u model.User) bool { return UserEligible(u, cutoff) }), cutoff, nil
}

func expiredBefore(ctx context.Context, s Store, cutoff time.Time) ([]model.Listing, time.Time, error) {
	listings, err := s.ExpiredListings(ctx, cutoff)
	if err != nil {
		return nil, cutoff, fmt.Errorf("query expired listings: %w", err)
	}
	return keep(listings, func(l model.Listing) bool { return ListingEligible(l, cutoff) }), cutoff, nil
}

// keep filters xs in place order. Store results are re-checked against the
// predicate so a backend with a looser filter cannot widen the purge.
func keep[T any](xs []T, pred func(T) bool) []T {
	out := xs[:0:0]
	for _, x := range xs {
		if pred(x) {
			out = append(out, x)
		}
	}
	return out
}
