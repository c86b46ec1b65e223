package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/footpulse/core/user"
	dummydb "github.com/trezcool/footpulse/storage/database/dummy"
	testutil "github.com/trezcool/footpulse/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	db := testutil.OpenDB(t)
	usrRepo = dummydb.NewUserRepository(db)

	return &commandLine{
		db:       &sqlx.DB{},
		usrRepo:  usrRepo,
		tmplRepo: dummydb.NewTemplateRepository(db),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "response", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Coach Mike", "mike@test.app", "mdr", user.RoleTrainer, null.String{}, null.String{}, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.app"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.app"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "lol"}},
		{name: "email is case-insensitive", args: []string{"resetpassword", "-email", "Mike@Test.App"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser(): %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"adduser", "-name", "Jo"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-name", "Jo", "-email", "jo@test.app"}, wantErr: errHelp},
		{name: "user created", args: []string{"adduser", "-name", "Jo", "-email", "jo@test.app"}, extra: extra{pwd: "s3cr3t"}},
		{name: "admin created", args: []string{"adduser", "-name", "Boss", "-email", "boss@test.app", "-admin"}, extra: extra{pwd: "s3cr3t"}},
		{name: "existing user updated", args: []string{"adduser", "-name", "Jo Jr.", "-email", "jo@test.app"}, extra: extra{pwd: "n3w"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	ctx := context.Background()
	jo, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "jo@test.app"})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	if jo.Name != "Jo Jr." {
		t.Errorf("name = %v; want %v", jo.Name, "Jo Jr.")
	}
	if jo.CheckPassword("n3w") != nil {
		t.Error("failed to update password")
	}
	boss, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "boss@test.app"})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	if !boss.IsAdmin() {
		t.Errorf("role = %v; want %v", boss.Role, user.RoleAdmin)
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	// running twice must not duplicate anything
	for i := 0; i < 2; i++ {
		if err := cli.seed(); err != nil {
			t.Fatalf("cli.seed(): %v", err)
		}
	}

	users, err := usrRepo.QueryUsers(ctx, nil)
	if err != nil {
		t.Fatalf("QueryUsers(): %v", err)
	}
	if len(users) != 4 {
		t.Errorf("users = %v; want 4", len(users))
	}

	templates, err := cli.tmplRepo.QueryTemplates(ctx)
	if err != nil {
		t.Fatalf("QueryTemplates(): %v", err)
	}
	if len(templates) != 1 {
		t.Errorf("templates = %v; want 1", len(templates))
	}

	// graph edges are wired
	leo, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "leo@footpulse.app"})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	mike, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "mike@footpulse.app"})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	if leo.TrainerID.String != mike.ID {
		t.Errorf("trainerID = %v; want %v", leo.TrainerID.String, mike.ID)
	}
	if leo.CheckPassword(seedPassword) != nil {
		t.Error("seeded password does not check out")
	}
}
