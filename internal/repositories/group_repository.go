package repositories

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"gaming_lounge_backend/internal/models"
)

type pgGroupRepository struct {
	ex SQLExecutor
}

func (r *pgGroupRepository) Create(ctx context.Context, g *models.SessionGroup) error {
	query := `INSERT INTO session_groups
	            (id, group_code, group_name, category, booking_type, member_ids, dissolved_at, version, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8)`
	_, err := r.ex.ExecContext(ctx, query,
		g.ID, g.GroupCode, g.GroupName, g.Category, g.BookingType, pq.Array(memberIDs(g)), g.DissolvedAt, g.CreatedAt)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("creating group %s", g.GroupCode))
	}
	g.Version = 1
	return nil
}

func (r *pgGroupRepository) GetByID(ctx context.Context, id string) (*models.SessionGroup, error) {
	var g models.SessionGroup
	query := `SELECT id, group_code, group_name, category, booking_type, member_ids, dissolved_at, version, created_at
	          FROM session_groups WHERE id = $1`
	err := r.ex.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.GroupCode, &g.GroupName, &g.Category, &g.BookingType,
		pq.Array(&g.MemberIDs), &g.DissolvedAt, &g.Version, &g.CreatedAt,
	)
	if err != nil {
		return nil, mapPQError(err, fmt.Sprintf("getting group %s", id))
	}
	if g.MemberIDs == nil {
		g.MemberIDs = []string{}
	}
	return &g, nil
}

func (r *pgGroupRepository) Update(ctx context.Context, g *models.SessionGroup) error {
	query := `UPDATE session_groups
	          SET group_name = $1, member_ids = $2, dissolved_at = $3, version = version + 1
	          WHERE id = $4 AND version = $5`
	res, err := r.ex.ExecContext(ctx, query, g.GroupName, pq.Array(memberIDs(g)), g.DissolvedAt, g.ID, g.Version)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("updating group %s", g.ID))
	}
	if err := checkVersioned(ctx, r.ex, res, "session_groups", g.ID); err != nil {
		return err
	}
	g.Version++
	return nil
}

func memberIDs(g *models.SessionGroup) []string {
	if g.MemberIDs == nil {
		return []string{}
	}
	return g.MemberIDs
}
