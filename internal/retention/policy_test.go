package retention_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobrocket/retention-service/internal/model"
	"jobrocket/retention-service/internal/retention"
)

func TestCutoffs(t *testing.T) {
	assert.Equal(t, fixedNow.Add(-7*day), retention.ListingCutoff(fixedNow))
	assert.Equal(t, fixedNow.Add(-30*day), retention.UserCutoff(fixedNow))
	assert.Equal(t, time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC), retention.StaleApplicationCutoff(fixedNow))
}

func TestListingEligible_StrictBoundary(t *testing.T) {
	cutoff := retention.ListingCutoff(fixedNow)

	assert.False(t, retention.ListingEligible(model.Listing{ExpiresAt: cutoff}, cutoff), "exactly at cutoff must be kept")
	assert.True(t, retention.ListingEligible(model.Listing{ExpiresAt: cutoff.Add(-time.Nanosecond)}, cutoff))
	assert.False(t, retention.ListingEligible(model.Listing{ExpiresAt: cutoff.Add(time.Second)}, cutoff))
}

func TestUserEligible(t *testing.T) {
	cutoff := retention.UserCutoff(fixedNow)
	cases := []struct {
		name string
		user model.User
		want bool
	}{
		{"exactly 30 days", model.User{IsDeleted: true, DeletedAt: ptr(cutoff)}, false},
		{"30 days and 1s", model.User{IsDeleted: true, DeletedAt: ptr(cutoff.Add(-time.Second))}, true},
		{"soft-deleted without deletedAt", model.User{IsDeleted: true}, false},
		{"active user with old deletedAt", model.User{IsDeleted: false, DeletedAt: ptr(cutoff.Add(-day))}, false},
		{"recently deleted", model.User{IsDeleted: true, DeletedAt: ptr(fixedNow.Add(-day))}, false},
	}
	for _, c := range cases {
		if got := retention.UserEligible(c.user, cutoff); got != c.want {
			t.Errorf("%s: UserEligible = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestUserCandidates_FiltersLooseStoreResults(t *testing.T) {
	s := newMemStore()
	s.loose = true
	s.addUser("no-deleted-at", nil)
	s.addUser("too-recent", ptr(fixedNow.Add(-29*day)))
	s.addUser("eligible", ptr(fixedNow.Add(-31*day)))

	users, cutoff, err := retention.UserCandidates(context.Background(), s, fixedNow)

	require.NoError(t, err)
	assert.Equal(t, retention.UserCutoff(fixedNow), cutoff)
	require.Len(t, users, 1)
	assert.Equal(t, "eligible", users[0].ID)
}

func TestListingCandidates_StoreError(t *testing.T) {
	s := newMemStore()
	s.errExpiredListings = errUnreachable

	_, _, err := retention.ListingCandidates(context.Background(), s, fixedNow)

	require.Error(t, err)
	assert.ErrorIs(t, err, errUnreachable)
}
