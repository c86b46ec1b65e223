package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/footpulse/core"
)

type (
	Service interface {
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		Delete(ctx context.Context, ids ...string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
		CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error
		CheckEdges(ctx context.Context, trainerID, playerID null.String) error
		Scope(ctx context.Context, actor User) (Scope, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService) Service {
	return &service{repo: repo, mailSvc: mailSvc}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// CheckEdges validates role-appropriateness of the directed edges at write
// time: trainer_id must reference an existing TRAINER and player_id an
// existing PLAYER. Read paths trust the edges and degrade gracefully instead.
func (svc *service) CheckEdges(ctx context.Context, trainerID, playerID null.String) error {
	check := func(field, id, wantRole string) error {
		usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: field, Error: "referenced user not found"})
			}
			return errors.Wrapf(err, "checking %s edge", field)
		}
		if usr.Role != wantRole {
			return core.NewValidationError(nil, core.FieldError{Field: field, Error: "referenced user is not a " + wantRole})
		}
		return nil
	}

	if trainerID.Valid && trainerID.String != "" {
		if err := check("trainer_id", trainerID.String, RoleTrainer); err != nil {
			return err
		}
	}
	if playerID.Valid && playerID.String != "" {
		if err := check("player_id", playerID.String, RolePlayer); err != nil {
			return err
		}
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Mobile:    nu.Mobile,
		Role:      nu.Role,
		Avatar:    nu.Avatar,
		Position:  nu.Position,
		TrainerID: nu.TrainerID,
		PlayerID:  nu.PlayerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering...)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Mobile = uu.Mobile
	usr.Role = uu.Role
	usr.Avatar = uu.Avatar
	usr.Position = uu.Position
	usr.TrainerID = uu.TrainerID
	usr.PlayerID = uu.PlayerID
	if uu.IsActive != nil {
		usr.IsActive = uu.IsActive
	}
	usr.UpdatedAt = time.Now().UTC()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return err
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errors.New("invalid uid"))
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: uid})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errors.New("invalid uid"))
		}
		return err
	}
	if err := verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) Scope(ctx context.Context, actor User) (Scope, error) {
	return ResolveScope(ctx, actor, svc.repo)
}

type passwordResetMailData struct {
	User  User
	UID   string
	Token string
}

func (svc *service) passwordResetMessage(usr User, tmplName, subject string) *core.EmailMessage {
	token, err := MakeToken(usr)
	if err != nil {
		// the mail is best-effort; a failed token only skips the message
		return nil
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmplName,
		TemplateData: passwordResetMailData{User: usr, UID: EncodeUID(usr), Token: token},
	}
}

func (svc *service) sendPasswordResetMail(usr User) {
	if msg := svc.passwordResetMessage(usr, "password-reset", "Password Reset"); msg != nil {
		svc.mailSvc.SendMessages(msg)
	}
}

// sendWelcomeMail greets a newly registered user with a link to set their own
// password.
func (svc *service) sendWelcomeMail(usr User) {
	if msg := svc.passwordResetMessage(usr, "welcome", "Welcome to "+core.Conf.AppName); msg != nil {
		svc.mailSvc.SendMessages(msg)
	}
}
