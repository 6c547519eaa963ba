package retention_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"jobrocket/retention-service/internal/model"
	"jobrocket/retention-service/internal/retention"
)

var errUnreachable = errors.New("store unreachable")

// memStore is an in-memory Store with the same strict filters as the real
// backends, plus failure injection.
type memStore struct {
	mu       sync.Mutex
	listings map[string]model.Listing
	apps     map[string]model.Application
	users    map[string]model.User

	// loose makes PurgeableUsers return every soft-deleted user, to prove the
	// jobs re-check eligibility themselves.
	loose bool

	// panicAfterDeleteApps panics once DeleteApplications has removed rows.
	panicAfterDeleteApps bool

	// loosePending makes PendingApplicationsByApplicant return every
	// application of the user, whatever its status.
	loosePending bool

	errExpiredListings  error
	errPurgeableUsers   error
	errAppsForListings  error
	errDeleteApps       error
	errDeleteListings   error
	errPendingFor       map[string]error
	errDeleteUserFor    map[string]error
	panicPendingFor     map[string]bool
	deleteAppsCalls     int
	deleteListingsCalls int
}

func newMemStore() *memStore {
	return &memStore{
		listings:         map[string]model.Listing{},
		apps:             map[string]model.Application{},
		users:            map[string]model.User{},
		errPendingFor:    map[string]error{},
		errDeleteUserFor: map[string]error{},
		panicPendingFor:  map[string]bool{},
	}
}

func (s *memStore) addListing(id string, expiresAt time.Time) {
	s.listings[id] = model.Listing{ID: id, OwnerID: "biz-1", ExpiresAt: expiresAt, CreatedAt: expiresAt.Add(-30 * 24 * time.Hour), IsActive: true}
}

func (s *memStore) addApp(id, listingID, applicantID string, status model.Status, resumeURL string) {
	s.apps[id] = model.Application{ID: id, ListingID: listingID, ApplicantID: applicantID, Status: status, ResumeURL: resumeURL}
}

func (s *memStore) addUser(id string, deletedAt *time.Time) {
	s.users[id] = model.User{ID: id, IsDeleted: true, DeletedAt: deletedAt}
}

func (s *memStore) ExpiredListings(_ context.Context, cutoff time.Time) ([]model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errExpiredListings != nil {
		return nil, s.errExpiredListings
	}
	var out []model.Listing
	for _, l := range s.listings {
		if l.ExpiresAt.Before(cutoff) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) PurgeableUsers(_ context.Context, cutoff time.Time) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errPurgeableUsers != nil {
		return nil, s.errPurgeableUsers
	}
	var out []model.User
	for _, u := range s.users {
		if !u.IsDeleted {
			continue
		}
		if s.loose || (u.DeletedAt != nil && u.DeletedAt.Before(cutoff)) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ApplicationsForListings(_ context.Context, listingIDs []string) ([]model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errAppsForListings != nil {
		return nil, s.errAppsForListings
	}
	want := map[string]bool{}
	for _, id := range listingIDs {
		want[id] = true
	}
	var out []model.Application
	for _, a := range s.apps {
		if want[a.ListingID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) PendingApplicationsByApplicant(_ context.Context, userID string) ([]model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicPendingFor[userID] {
		panic("corrupt document for " + userID)
	}
	if err := s.errPendingFor[userID]; err != nil {
		return nil, err
	}
	var out []model.Application
	for _, a := range s.apps {
		if a.ApplicantID == userID && (s.loosePending || a.Status == model.StatusPending) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) DeleteApplications(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteAppsCalls++
	if s.errDeleteApps != nil {
		return 0, s.errDeleteApps
	}
	var n int64
	for _, id := range ids {
		if _, ok := s.apps[id]; ok {
			delete(s.apps, id)
			n++
		}
	}
	if s.panicAfterDeleteApps {
		panic("connection reset after delete")
	}
	return n, nil
}

func (s *memStore) DeleteListings(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteListingsCalls++
	if s.errDeleteListings != nil {
		return 0, s.errDeleteListings
	}
	var n int64
	for _, id := range ids {
		if _, ok := s.listings[id]; ok {
			delete(s.listings, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeleteUser(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errDeleteUserFor[id]; err != nil {
		return 0, err
	}
	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	delete(s.users, id)
	return 1, nil
}

// fakeBlobs records every delete attempt and fails the URLs in fail.
type fakeBlobs struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (b *fakeBlobs) Delete(_ context.Context, resumeURL string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, resumeURL)
	return !b.fail[resumeURL]
}

// recordingSink keeps every reported summary.
type recordingSink struct {
	mu    sync.Mutex
	stats []retention.RunStats
	err   error
}

func (s *recordingSink) Record(_ context.Context, st retention.RunStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = append(s.stats, st)
	return s.err
}

var fixedNow = time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)

func deps(s *memStore, b *fakeBlobs) retention.Deps {
	return retention.Deps{
		Store:        s,
		Blobs:        b,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		StoreTimeout: time.Second,
		Now:          func() time.Time { return fixedNow },
	}
}

func ptr(t time.Time) *time.Time { return &t }

const day = 24 * time.Hour
