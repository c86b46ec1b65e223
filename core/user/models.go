package user

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/footpulse/core"
)

// Roles
const (
	RoleAdmin    = "ADMIN"
	RolePlayer   = "PLAYER"
	RoleGuardian = "GUARDIAN"
	RoleTrainer  = "TRAINER"
)

var (
	AllRoles = []string{RoleAdmin, RolePlayer, RoleGuardian, RoleTrainer}

	Roles = []Role{
		{Name: "Player", Value: RolePlayer},
		{Name: "Guardian", Value: RoleGuardian},
		{Name: "Trainer", Value: RoleTrainer},
		{Name: "Admin", Value: RoleAdmin},
	}

	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a member of the academy directory. The two optional edges form a
// bounded-depth graph: a PLAYER points to their TRAINER via TrainerID and a
// GUARDIAN points to their ward (a PLAYER) via PlayerID. Edges are directed and
// single-valued; reverse lookups (roster, guardians of a player) are
// one-to-many and resolved by query.
type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Mobile       null.String `json:"mobile"`
	Role         string      `json:"role"`
	Avatar       null.String `json:"avatar"`
	Position     null.String `json:"position"`   // PLAYER only; cosmetic
	TrainerID    null.String `json:"trainer_id"` // PLAYER -> TRAINER
	PlayerID     null.String `json:"player_id"`  // GUARDIAN -> PLAYER (ward)
	IsActive     *bool       `json:"is_active"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
	LastLogin    time.Time   `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u User) Active() bool     { return u.IsActive == nil || *u.IsActive }
func (u User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u User) IsPlayer() bool   { return u.Role == RolePlayer }
func (u User) IsGuardian() bool { return u.Role == RoleGuardian }
func (u User) IsTrainer() bool  { return u.Role == RoleTrainer }

type (
	// GetFilter applies at most one of its fields to look a single User up.
	GetFilter struct {
		ID    string
		Email string
	}

	// QueryFilter applies AND operation on available fields.
	// Search does a case-insensitive match on one of User.Name or User.Email.
	QueryFilter struct {
		Search      string    `query:"search"`
		Role        string    `query:"role"`
		IsActive    *bool     `query:"is_active"`
		TrainerID   string    `query:"trainer_id"`
		PlayerID    string    `query:"player_id"`
		PlayerIDIn  []string  `query:"-"`
		IDIn        []string  `query:"-"`
		CreatedFrom time.Time `query:"created_from"`
		CreatedTo   time.Time `query:"created_to"`
	}

	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
	}

	// Directory is the read-only slice of Repository the visibility resolver needs.
	Directory interface {
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
	}
)

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil &&
		qf.TrainerID == "" && qf.PlayerID == "" && qf.PlayerIDIn == nil && qf.IDIn == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string      `json:"name" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Password        string      `json:"password" validate:"required"`
	PasswordConfirm string      `json:"password_confirm" validate:"required,eqfield=Password"`
	Mobile          null.String `json:"mobile"`
	Role            string      `json:"role" validate:"required,role"`
	Avatar          null.String `json:"avatar"`
	Position        null.String `json:"position"`
	TrainerID       null.String `json:"trainer_id"`
	PlayerID        null.String `json:"player_id"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if !nu.IsPlayer() {
		nu.Position = null.String{} // cosmetic, PLAYER only
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if err := validateEdges(nu.Role, nu.TrainerID, nu.PlayerID); err != nil {
		return err
	}
	if err := svc.CheckEdges(ctx, nu.TrainerID, nu.PlayerID); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

func (nu NewUser) IsPlayer() bool { return nu.Role == RolePlayer }

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string      `json:"name"`
	Email           string      `json:"email" validate:"omitempty,email"`
	Mobile          null.String `json:"mobile"`
	Role            string      `json:"role" validate:"omitempty,role"`
	Avatar          null.String `json:"avatar"`
	Position        null.String `json:"position"`
	TrainerID       null.String `json:"trainer_id"`
	PlayerID        null.String `json:"player_id"`
	IsActive        *bool       `json:"is_active"`
	Password        string      `json:"password" validate:"omitempty"`
	PasswordConfirm string      `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Role == "" {
		uu.Role = origUsr.Role
	}

	// unset nullable fields keep their current values
	if !uu.Mobile.Valid {
		uu.Mobile = origUsr.Mobile
	}
	if !uu.Avatar.Valid {
		uu.Avatar = origUsr.Avatar
	}
	if !uu.Position.Valid {
		uu.Position = origUsr.Position
	}
	if !uu.TrainerID.Valid {
		uu.TrainerID = origUsr.TrainerID
	}
	if !uu.PlayerID.Valid {
		uu.PlayerID = origUsr.PlayerID
	}

	if uu.Role != RolePlayer {
		uu.Position = null.String{}
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}

	// ADMIN accounts may never be deactivated.
	if origUsr.IsAdmin() && uu.IsActive != nil && !*uu.IsActive {
		return core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: "an admin account cannot be deactivated"})
	}

	if err := validateEdges(uu.Role, uu.TrainerID, uu.PlayerID); err != nil {
		return err
	}
	if err := svc.CheckEdges(ctx, uu.TrainerID, uu.PlayerID); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type SetUserPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (sp SetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(sp)
}
