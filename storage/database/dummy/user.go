package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/footpulse/core"
	"github.com/trezcool/footpulse/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = struct{}{}
	}

	for _, usr := range repo.query() {
		if _, ok := excluded[usr.ID]; ok {
			continue
		}
		if strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.CheckEmailUniqueness(ctx, usr.Email); err != nil {
		return user.User{}, err
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.New().String()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.query()
	if filter == nil {
		return users, nil
	}

	keep := func(match func(u user.User) bool) {
		var filtered []user.User
		for _, u := range users {
			if match(u) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		keep(func(u user.User) bool {
			return strings.Contains(strings.ToLower(u.Name), search) ||
				strings.Contains(strings.ToLower(u.Email), search)
		})
	}
	if filter.Role != "" {
		keep(func(u user.User) bool { return strings.EqualFold(u.Role, filter.Role) })
	}
	if filter.IsActive != nil {
		keep(func(u user.User) bool { return u.Active() == *filter.IsActive })
	}
	if filter.TrainerID != "" {
		keep(func(u user.User) bool { return u.TrainerID.String == filter.TrainerID })
	}
	if filter.PlayerID != "" {
		keep(func(u user.User) bool { return u.PlayerID.String == filter.PlayerID })
	}
	if filter.PlayerIDIn != nil {
		in := idSet(filter.PlayerIDIn)
		keep(func(u user.User) bool { _, ok := in[u.PlayerID.String]; return ok })
	}
	if filter.IDIn != nil {
		in := idSet(filter.IDIn)
		keep(func(u user.User) bool { _, ok := in[u.ID]; return ok })
	}
	if !filter.CreatedFrom.IsZero() {
		from := filter.CreatedFrom.UTC()
		keep(func(u user.User) bool { return !u.CreatedAt.Before(from) })
	}
	if !filter.CreatedTo.IsZero() {
		to := filter.CreatedTo.UTC()
		keep(func(u user.User) bool { return !u.CreatedAt.After(to) })
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.query() {
			if strings.EqualFold(usr.Email, filter.Email) {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if usr.IsActive != nil {
		origUsr.IsActive = usr.IsActive
	}
	if !usr.LastLogin.IsZero() {
		origUsr.LastLogin = usr.LastLogin
	}
	origUsr.Name = usr.Name
	origUsr.Email = usr.Email
	origUsr.Mobile = usr.Mobile
	origUsr.Role = usr.Role
	origUsr.Avatar = usr.Avatar
	origUsr.Position = usr.Position
	origUsr.TrainerID = usr.TrainerID
	origUsr.PlayerID = usr.PlayerID
	origUsr.UpdatedAt = usr.UpdatedAt

	repo.db.table[usr.ID] = origUsr
	return *origUsr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	existing, err := repo.GetUser(ctx, user.GetFilter{Email: usr.Email})
	if err != nil {
		if err == user.ErrNotFound {
			return repo.CreateUser(ctx, usr)
		}
		return user.User{}, err
	}
	usr.ID = existing.ID
	return repo.UpdateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var count int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			count++
		}
	}
	return count, nil
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
