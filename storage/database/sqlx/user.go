package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/footpulse/core"
	"github.com/trezcool/footpulse/core/user"
)

const userEmailConstraint = "user_email_key"

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	Mobile       null.String `db:"mobile"`
	Role         string      `db:"role"`
	Avatar       null.String `db:"avatar"`
	Position     null.String `db:"position"`
	TrainerID    null.String `db:"trainer_id"`
	PlayerID     null.String `db:"player_id"`
	IsActive     bool        `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    time.Time   `db:"last_login"`
}

func (row userRow) toUser() user.User {
	active := row.IsActive
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Mobile:       row.Mobile,
		Role:         row.Role,
		Avatar:       row.Avatar,
		Position:     row.Position,
		TrainerID:    row.TrainerID,
		PlayerID:     row.PlayerID,
		IsActive:     &active,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS(SELECT 1 FROM "user" WHERE LOWER(email) = LOWER($1)`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		query += ` AND id != ALL($2)`
		args = append(args, pqStringArray(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
INSERT INTO "user" (name, email, mobile, role, avatar, position, trainer_id, player_id, is_active, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING *`

	var row userRow
	err := repo.db.GetContext(ctx, &row, query,
		usr.Name, usr.Email, usr.Mobile, usr.Role, usr.Avatar, usr.Position,
		usr.TrainerID, usr.PlayerID, usr.Active(), usr.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err, userEmailConstraint) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	query := `SELECT * FROM "user"`
	var (
		clauses []string
		args    []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + strings.ToLower(filter.Search) + "%")
			clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(email) LIKE %s)", p, p))
		}
		if filter.Role != "" {
			clauses = append(clauses, "UPPER(role) = UPPER("+arg(filter.Role)+")")
		}
		if filter.IsActive != nil {
			clauses = append(clauses, "is_active = "+arg(*filter.IsActive))
		}
		if filter.TrainerID != "" {
			clauses = append(clauses, "trainer_id = "+arg(filter.TrainerID))
		}
		if filter.PlayerID != "" {
			clauses = append(clauses, "player_id = "+arg(filter.PlayerID))
		}
		if len(filter.PlayerIDIn) > 0 {
			clauses = append(clauses, "player_id = ANY("+arg(pqStringArray(filter.PlayerIDIn))+")")
		}
		if len(filter.IDIn) > 0 {
			clauses = append(clauses, "id = ANY("+arg(pqStringArray(filter.IDIn))+")")
		}
		if !filter.CreatedFrom.IsZero() {
			clauses = append(clauses, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			clauses = append(clauses, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderBy("created_at DESC", ordering)

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	query := `SELECT * FROM "user" WHERE `
	var args []interface{}
	switch {
	case filter.ID != "":
		query += "id = $1"
		args = append(args, filter.ID)
	case filter.Email != "":
		query += "LOWER(email) = LOWER($1)"
		args = append(args, filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	// only save set fields
	sets := []string{
		"name = $2", "email = $3", "mobile = $4", "role = $5", "avatar = $6",
		"position = $7", "trainer_id = $8", "player_id = $9", "updated_at = now()",
	}
	args := []interface{}{
		usr.ID, usr.Name, usr.Email, usr.Mobile, usr.Role, usr.Avatar,
		usr.Position, usr.TrainerID, usr.PlayerID,
	}
	if usr.IsActive != nil {
		args = append(args, *usr.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if usr.PasswordHash != nil {
		args = append(args, usr.PasswordHash)
		sets = append(sets, fmt.Sprintf("password_hash = $%d", len(args)))
	}
	if !usr.LastLogin.IsZero() {
		args = append(args, usr.LastLogin.UTC())
		sets = append(sets, fmt.Sprintf("last_login = $%d", len(args)))
	}

	query := `UPDATE "user" SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING *`
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if isUniqueViolation(err, userEmailConstraint) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	existing, err := repo.GetUser(ctx, user.GetFilter{Email: usr.Email})
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return repo.CreateUser(ctx, usr)
		}
		return user.User{}, err
	}
	usr.ID = existing.ID
	return repo.UpdateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pqStringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	return int(n), err
}
