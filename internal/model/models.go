package model

import "time"

// Listing is a job listing owned by a business user.
// IsActive is a display flag only; deletion is driven by ExpiresAt.
type Listing struct {
	ID        string
	OwnerID   string
	ExpiresAt time.Time
	CreatedAt time.Time
	IsActive  bool
}

// Application links an applicant to a listing. At most one exists per
// (ListingID, ApplicantID) pair.
type Application struct {
	ID          string
	ListingID   string
	ApplicantID string
	Status      Status
	ResumeURL   string // empty when no resume was uploaded
	CreatedAt   time.Time
}

// HasResume reports whether the application points at a resume blob.
func (a Application) HasResume() bool { return a.ResumeURL != "" }

// User is an account. DeletedAt is set only when IsDeleted becomes true;
// a soft-deleted user without DeletedAt is never purged.
type User struct {
	ID        string
	IsDeleted bool
	DeletedAt *time.Time
}

// ApplicationIDs returns the ids of apps in order.
func ApplicationIDs(apps []Application) []string {
	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ID)
	}
	return ids
}

// ListingIDs returns the ids of listings in order.
func ListingIDs(listings []Listing) []string {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return ids
}
