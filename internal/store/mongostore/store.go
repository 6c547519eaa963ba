// Package mongostore implements the retention store on MongoDB.
//
// Collections: listings, applications, users. Field names are camelCase as
// written by the main API; ids are ObjectIDs exposed as hex strings.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"jobrocket/retention-service/internal/model"
)

type listingDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	OwnerID   primitive.ObjectID `bson:"ownerId"`
	ExpiresAt time.Time          `bson:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt"`
	IsActive  bool               `bson:"isActive"`
}

type applicationDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	ListingID   primitive.ObjectID `bson:"listingId"`
	ApplicantID primitive.ObjectID `bson:"applicantId"`
	Status      string             `bson:"status"`
	ResumeURL   string             `bson:"resumeUrl,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	IsDeleted bool               `bson:"isDeleted"`
	DeletedAt *time.Time         `bson:"deletedAt,omitempty"`
}

// Store is the MongoDB-backed retention store.
type Store struct {
	listings     *mongo.Collection
	applications *mongo.Collection
	users        *mongo.Collection
}

// New returns a Store over the collections of db.
func New(db *mongo.Database) *Store {
	return &Store{
		listings:     db.Collection("listings"),
		applications: db.Collection("applications"),
		users:        db.Collection("users"),
	}
}

// ─── Filters ─────────────────────────────────────────────────────────────────

func expiredListingsFilter(cutoff time.Time) bson.D {
	return bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lt", Value: cutoff}}}}
}

// purgeableUsersFilter excludes soft-deleted users that have no deletedAt.
func purgeableUsersFilter(cutoff time.Time) bson.D {
	return bson.D{
		{Key: "isDeleted", Value: true},
		{Key: "deletedAt", Value: bson.D{
			{Key: "$exists", Value: true},
			{Key: "$ne", Value: nil},
			{Key: "$lt", Value: cutoff},
		}},
	}
}

func applicationsForListingsFilter(listingIDs []primitive.ObjectID) bson.D {
	return bson.D{{Key: "listingId", Value: bson.D{{Key: "$in", Value: listingIDs}}}}
}

func pendingByApplicantFilter(userID primitive.ObjectID) bson.D {
	return bson.D{
		{Key: "applicantId", Value: userID},
		{Key: "status", Value: string(model.StatusPending)},
	}
}

func idsFilter(ids []primitive.ObjectID) bson.D {
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
}

// ─── Reads ───────────────────────────────────────────────────────────────────

func (s *Store) ExpiredListings(ctx context.Context, cutoff time.Time) ([]model.Listing, error) {
	var docs []listingDoc
	if err := findAll(ctx, s.listings, expiredListingsFilter(cutoff), &docs); err != nil {
		return nil, fmt.Errorf("expiredListings: %w", err)
	}
	out := make([]model.Listing, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *Store) PurgeableUsers(ctx context.Context, cutoff time.Time) ([]model.User, error) {
	var docs []userDoc
	if err := findAll(ctx, s.users, purgeableUsersFilter(cutoff), &docs); err != nil {
		return nil, fmt.Errorf("purgeableUsers: %w", err)
	}
	out := make([]model.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *Store) ApplicationsForListings(ctx context.Context, listingIDs []string) ([]model.Application, error) {
	if len(listingIDs) == 0 {
		return nil, nil
	}
	oids, err := objectIDs(listingIDs)
	if err != nil {
		return nil, fmt.Errorf("applicationsForListings: %w", err)
	}
	apps, err := s.findApplications(ctx, applicationsForListingsFilter(oids))
	if err != nil {
		return nil, fmt.Errorf("applicationsForListings: %w", err)
	}
	return apps, nil
}

func (s *Store) PendingApplicationsByApplicant(ctx context.Context, userID string) ([]model.Application, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("pendingApplicationsByApplicant: invalid user id %q: %w", userID, err)
	}
	apps, err := s.findApplications(ctx, pendingByApplicantFilter(oid))
	if err != nil {
		return nil, fmt.Errorf("pendingApplicationsByApplicant: %w", err)
	}
	return apps, nil
}

func (s *Store) findApplications(ctx context.Context, filter bson.D) ([]model.Application, error) {
	var docs []applicationDoc
	if err := findAll(ctx, s.applications, filter, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Application, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter bson.D, into any) error {
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	if err := cur.All(ctx, into); err != nil {
		return fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return nil
}

// ─── Deletes ─────────────────────────────────────────────────────────────────

func (s *Store) DeleteApplications(ctx context.Context, ids []string) (int64, error) {
	return deleteByIDs(ctx, s.applications, ids)
}

func (s *Store) DeleteListings(ctx context.Context, ids []string) (int64, error) {
	return deleteByIDs(ctx, s.listings, ids)
}

func (s *Store) DeleteUser(ctx context.Context, id string) (int64, error) {
	return deleteByIDs(ctx, s.users, []string{id})
}

func deleteByIDs(ctx context.Context, coll *mongo.Collection, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	oids, err := objectIDs(ids)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", coll.Name(), err)
	}
	res, err := coll.DeleteMany(ctx, idsFilter(oids))
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", coll.Name(), err)
	}
	return res.DeletedCount, nil
}

// ─── Conversion ──────────────────────────────────────────────────────────────

func objectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", id, err)
		}
		out = append(out, oid)
	}
	return out, nil
}

func (d listingDoc) toModel() model.Listing {
	return model.Listing{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID.Hex(),
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
		IsActive:  d.IsActive,
	}
}

func (d applicationDoc) toModel() model.Application {
	return model.Application{
		ID:          d.ID.Hex(),
		ListingID:   d.ListingID.Hex(),
		ApplicantID: d.ApplicantID.Hex(),
		Status:      model.Status(d.Status),
		ResumeURL:   d.ResumeURL,
		CreatedAt:   d.CreatedAt,
	}
}

func (d userDoc) toModel() model.User {
	return model.User{ID: d.ID.Hex(), IsDeleted: d.IsDeleted, DeletedAt: d.DeletedAt}
}
