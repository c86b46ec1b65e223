package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/footpulse/core"
	"github.com/trezcool/footpulse/core/survey"
	"github.com/trezcool/footpulse/core/user"
	dummydb "github.com/trezcool/footpulse/storage/database/dummy"
)

// NewTranslator returns the default "en" translator.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with all app validations registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)
	survey.RegisterValidators(validate, translator)
	return validate
}

// nopLogger discards everything; tests assert on responses, not logs.
type nopLogger struct{}

var _ core.Logger = (*nopLogger)(nil)

func (nopLogger) Enable(enabled bool)                   {}
func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func NewLogger() core.Logger { return nopLogger{} }

// OpenDB returns a fresh in-memory DB.
func OpenDB(t *testing.T) *dummydb.DB {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("OpenDB(): %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	trainerID, playerID null.String,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		TrainerID: trainerID,
		PlayerID:  playerID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateTemplate(t *testing.T, repo survey.TemplateRepository, name string) survey.Template {
	now := time.Now().UTC()
	tmpl, err := repo.CreateTemplate(context.Background(), survey.Template{
		Name: name,
		Categories: survey.Categories{
			{
				ID:     "c-1",
				Name:   "General",
				Weight: 100,
				Questions: []survey.Question{
					{ID: "q-1", Text: "Overall rating", Weight: 100, Type: "RATING"},
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTemplate(): %v", err)
	}
	return tmpl
}

func CreateAssignment(
	t *testing.T,
	repo survey.AssignmentRepository,
	templateID, assignerID, respondentID, targetID, month string,
) survey.Assignment {
	now := time.Now().UTC()
	a, err := repo.CreateAssignment(context.Background(), survey.Assignment{
		TemplateID:   templateID,
		AssignerID:   assignerID,
		RespondentID: respondentID,
		TargetID:     targetID,
		Month:        month,
		Status:       survey.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment(): %v", err)
	}
	return a
}
