package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"jobrocket/retention-service/internal/model"
)

var cutoff = time.Date(2026, 3, 8, 2, 0, 0, 0, time.UTC)

func TestExpiredListingsFilter_StrictLessThan(t *testing.T) {
	f := expiredListingsFilter(cutoff)

	require.Len(t, f, 1)
	assert.Equal(t, "expiresAt", f[0].Key)
	assert.Equal(t, bson.D{{Key: "$lt", Value: cutoff}}, f[0].Value)
}

func TestPurgeableUsersFilter(t *testing.T) {
	f := purgeableUsersFilter(cutoff)

	require.Len(t, f, 2)
	assert.Equal(t, bson.E{Key: "isDeleted", Value: true}, f[0])
	cond, ok := f[1].Value.(bson.D)
	require.True(t, ok)
	assert.Equal(t, "deletedAt", f[1].Key)
	assert.Equal(t, bson.D{
		{Key: "$exists", Value: true},
		{Key: "$ne", Value: nil},
		{Key: "$lt", Value: cutoff},
	}, cond)
}

func TestPendingByApplicantFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	f := pendingByApplicantFilter(oid)

	assert.Equal(t, bson.D{{Key: "applicantId", Value: oid}, {Key: "status", Value: "pending"}}, f)
}

func TestObjectIDs(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	got, err := objectIDs([]string{a.Hex(), b.Hex()})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{a, b}, got)

	_, err = objectIDs([]string{a.Hex(), "not-an-id"})
	assert.Error(t, err)
}

func TestDocConversion(t *testing.T) {
	lid, uid, aid := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	deletedAt := cutoff.Add(-time.Hour)

	app := applicationDoc{ID: aid, ListingID: lid, ApplicantID: uid, Status: "reviewed", ResumeURL: "https://cdn/resumes/x.pdf"}.toModel()
	assert.Equal(t, aid.Hex(), app.ID)
	assert.Equal(t, lid.Hex(), app.ListingID)
	assert.Equal(t, uid.Hex(), app.ApplicantID)
	assert.Equal(t, model.StatusReviewed, app.Status)
	assert.True(t, app.HasResume())

	user := userDoc{ID: uid, IsDeleted: true, DeletedAt: &deletedAt}.toModel()
	assert.Equal(t, uid.Hex(), user.ID)
	require.NotNil(t, user.DeletedAt)
	assert.True(t, user.DeletedAt.Equal(deletedAt))

	listing := listingDoc{ID: lid, ExpiresAt: cutoff}.toModel()
	assert.Equal(t, lid.Hex(), listing.ID)
	assert.True(t, listing.ExpiresAt.Equal(cutoff))
}
