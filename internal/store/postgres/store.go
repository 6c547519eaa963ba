// Package postgres implements the retention store on PostgreSQL with pgx.
// SQL is built with squirrel so the strict cutoff filters stay in one place.
package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobrocket/retention-service/internal/model"
)

// maxBatch keeps IN lists well under the 65535 bind-parameter limit.
const maxBatch = 1000

var applicationColumns = []string{
	"id::text", "listing_id::text", "applicant_id::text", "status",
	"COALESCE(resume_url, '')", "created_at",
}

// Store is the PostgreSQL-backed retention store.
type Store struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// New returns a Store using pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// ─── Queries ─────────────────────────────────────────────────────────────────

func (s *Store) expiredListingsQuery(cutoff time.Time) sq.SelectBuilder {
	return s.sb.
		Select("id::text", "owner_id::text", "expires_at", "created_at", "is_active").
		From("listings").
		Where(sq.Lt{"expires_at": cutoff}).
		OrderBy("expires_at")
}

func (s *Store) purgeableUsersQuery(cutoff time.Time) sq.SelectBuilder {
	return s.sb.
		Select("id::text", "is_deleted", "deleted_at").
		From("users").
		Where(sq.Eq{"is_deleted": true}).
		Where(sq.NotEq{"deleted_at": nil}).
		Where(sq.Lt{"deleted_at": cutoff}).
		OrderBy("deleted_at")
}

func (s *Store) applicationsForListingsQuery(listingIDs []string) sq.SelectBuilder {
	return s.sb.
		Select(applicationColumns...).
		From("applications").
		Where(sq.Eq{"listing_id": listingIDs})
}

func (s *Store) pendingByApplicantQuery(userID string) sq.SelectBuilder {
	return s.sb.
		Select(applicationColumns...).
		From("applications").
		Where(sq.Eq{"applicant_id": userID}).
		Where(sq.Eq{"status": string(model.StatusPending)})
}

func (s *Store) deleteByIDsQuery(table string, ids []string) sq.DeleteBuilder {
	return s.sb.Delete(table).Where(sq.Eq{"id": ids})
}

// ─── Reads ───────────────────────────────────────────────────────────────────

func (s *Store) ExpiredListings(ctx context.Context, cutoff time.Time) ([]model.Listing, error) {
	rows, err := s.query(ctx, s.expiredListingsQuery(cutoff))
	if err != nil {
		return nil, fmt.Errorf("expiredListings query: %w", err)
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.ExpiresAt, &l.CreatedAt, &l.IsActive); err != nil {
			return nil, fmt.Errorf("expiredListings scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) PurgeableUsers(ctx context.Context, cutoff time.Time) ([]model.User, error) {
	rows, err := s.query(ctx, s.purgeableUsersQuery(cutoff))
	if err != nil {
		return nil, fmt.Errorf("purgeableUsers query: %w", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.IsDeleted, &u.DeletedAt); err != nil {
			return nil, fmt.Errorf("purgeableUsers scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) ApplicationsForListings(ctx context.Context, listingIDs []string) ([]model.Application, error) {
	var out []model.Application
	for _, batch := range chunk(listingIDs, maxBatch) {
		apps, err := s.applications(ctx, s.applicationsForListingsQuery(batch))
		if err != nil {
			return nil, fmt.Errorf("applicationsForListings: %w", err)
		}
		out = append(out, apps...)
	}
	return out, nil
}

func (s *Store) PendingApplicationsByApplicant(ctx context.Context, userID string) ([]model.Application, error) {
	apps, err := s.applications(ctx, s.pendingByApplicantQuery(userID))
	if err != nil {
		return nil, fmt.Errorf("pendingApplicationsByApplicant: %w", err)
	}
	return apps, nil
}

func (s *Store) applications(ctx context.Context, q sq.SelectBuilder) ([]model.Application, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Application
	for rows.Next() {
		var (
			a      model.Application
			status string
		)
		if err := rows.Scan(&a.ID, &a.ListingID, &a.ApplicantID, &status, &a.ResumeURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		a.Status = model.Status(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ─── Deletes ─────────────────────────────────────────────────────────────────

func (s *Store) DeleteApplications(ctx context.Context, ids []string) (int64, error) {
	return s.deleteByIDs(ctx, "applications", ids)
}

func (s *Store) DeleteListings(ctx context.Context, ids []string) (int64, error) {
	return s.deleteByIDs(ctx, "listings", ids)
}

func (s *Store) DeleteUser(ctx context.Context, id string) (int64, error) {
	return s.deleteByIDs(ctx, "users", []string{id})
}

func (s *Store) deleteByIDs(ctx context.Context, table string, ids []string) (int64, error) {
	var total int64
	for _, batch := range chunk(ids, maxBatch) {
		sql, args, err := s.deleteByIDsQuery(table, batch).ToSql()
		if err != nil {
			return total, fmt.Errorf("build delete %s: %w", table, err)
		}
		tag, err := s.pool.Exec(ctx, sql, args...)
		if err != nil {
			return total, fmt.Errorf("delete %s: %w", table, err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

func (s *Store) query(ctx context.Context, q sq.SelectBuilder) (pgx.Rows, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.pool.Query(ctx, sql, args...)
}

// chunk splits ids into slices of at most n. An empty input yields no chunks.
func chunk(ids []string, n int) [][]string {
	var out [][]string
	for len(ids) > n {
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
