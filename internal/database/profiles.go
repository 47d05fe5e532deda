package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const profileColumns = `id, email, hashed_password, full_name, role, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.HashedPassword, &p.FullName, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const createProfile = `INSERT INTO profiles (email, hashed_password, full_name, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + profileColumns

type CreateProfileParams struct {
	Email          string
	HashedPassword string
	FullName       pgtype.Text
	Role           string
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	row := q.db.QueryRow(ctx, createProfile, arg.Email, arg.HashedPassword, arg.FullName, arg.Role)
	return scanProfile(row)
}

const getProfileByEmail = `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`

func (q *Queries) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, getProfileByEmail, email))
}

const getProfileByID = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

func (q *Queries) GetProfileByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, getProfileByID, id))
}

const listProfiles = `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC`

func (q *Queries) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := q.db.Query(ctx, listProfiles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updateProfileName = `UPDATE profiles SET full_name = $2, updated_at = now()
WHERE id = $1
RETURNING ` + profileColumns

type UpdateProfileNameParams struct {
	ID       uuid.UUID
	FullName pgtype.Text
}

func (q *Queries) UpdateProfileName(ctx context.Context, arg UpdateProfileNameParams) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, updateProfileName, arg.ID, arg.FullName))
}

const updateProfileRole = `UPDATE profiles SET role = $2, updated_at = now()
WHERE id = $1
RETURNING ` + profileColumns

type UpdateProfileRoleParams struct {
	ID   uuid.UUID
	Role string
}

func (q *Queries) UpdateProfileRole(ctx context.Context, arg UpdateProfileRoleParams) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, updateProfileRole, arg.ID, arg.Role))
}
