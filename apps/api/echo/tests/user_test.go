package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/footpulse/apps/api/echo"
	"github.com/trezcool/footpulse/core"
	"github.com/trezcool/footpulse/core/user"
	testutil "github.com/trezcool/footpulse/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Coach Mike", "mike@test.app", "s3cr3t", user.RoleTrainer, null.String{}, null.String{}, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog@test.app", "s3cr3t", user.RolePlayer, null.String{}, null.String{}, false) // 😂

	path := "/v1/users/login"
	errAuthFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "unknown email", wantCode: http.StatusBadRequest, wantData: errAuthFailed,
			body: marchallObj(t, LoginRequest{Email: "who@test.app", Password: "s3cr3t"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest, wantData: errAuthFailed,
			body: marchallObj(t, LoginRequest{Email: "mike@test.app", Password: "nope"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
			body:     marchallObj(t, LoginRequest{Email: "ndog@test.app", Password: "s3cr3t"}),
		},
		{
			name: "email is case-insensitive", wantCode: http.StatusOK,
			body: marchallObj(t, LoginRequest{Email: "Mike@Test.App", Password: "s3cr3t"}),
		},
		{
			name: "login successful", wantCode: http.StatusOK,
			body: marchallObj(t, LoginRequest{Email: "mike@test.app", Password: "s3cr3t"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog@test.app", "", user.RolePlayer, null.String{}, null.String{}, false) // 😂
	player := testutil.CreateUser(t, usrRepo, "Leo", "leo@test.app", "", user.RolePlayer, null.String{}, null.String{}, true)

	// original issuance older than the refresh window
	oriat := time.Now().Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix()
	unrefreshableToken, err := GenerateToken(GetUserClaims(player, oriat))
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, player), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Leo", "leo@test.app", "0ldPwd", user.RolePlayer, null.String{}, null.String{}, true)

	wantData := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	// the response never discloses whether the account exists
	tests := []httpTest{
		{name: "known email", body: marchallObj(t, PasswordResetRequest{Email: "leo@test.app"}), wantCode: http.StatusOK, wantData: wantData},
		{name: "unknown email", body: marchallObj(t, PasswordResetRequest{Email: "who@test.app"}), wantCode: http.StatusOK, wantData: wantData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.app", "", user.RoleAdmin, null.String{}, null.String{}, true)
	coach := testutil.CreateUser(t, usrRepo, "Coach Mike", "mike@test.app", "", user.RoleTrainer, null.String{}, null.String{}, true)
	player1 := testutil.CreateUser(t, usrRepo, "Leo", "leo@test.app", "", user.RolePlayer, null.StringFrom(coach.ID), null.String{}, true)
	player2 := testutil.CreateUser(t, usrRepo, "Kylian", "kylian@test.app", "", user.RolePlayer, null.StringFrom(coach.ID), null.String{}, true)
	guardian := testutil.CreateUser(t, usrRepo, "Jorge", "jorge@test.app", "", user.RoleGuardian, null.String{}, null.StringFrom(player1.ID), true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin sees the whole directory", token: getToken(t, admin), wantCode: http.StatusOK,
			wantData: marchallList(t, admin, coach, player1, player2, guardian),
		},
		{
			name: "Coach sees self and roster", token: getToken(t, coach), wantCode: http.StatusOK,
			wantData: marchallList(t, coach, player1, player2),
		},
		{
			name: "Player sees self, trainer and guardians", token: getToken(t, player1), wantCode: http.StatusOK,
			wantData: marchallList(t, player1, coach, guardian),
		},
		{
			name: "Guardian sees self, ward and ward's trainer", token: getToken(t, guardian), wantCode: http.StatusOK,
			wantData: marchallList(t, guardian, player1, coach),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userCreate(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.app", "", user.RoleAdmin, null.String{}, null.String{}, true)
	coach := testutil.CreateUser(t, usrRepo, "Coach Mike", "mike@test.app", "", user.RoleTrainer, null.String{}, null.String{}, true)

	newUsr := func(name, email, role string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            name,
			Email:           email,
			Password:        "s3cr3tPwd!",
			PasswordConfirm: "s3cr3tPwd!",
			Role:            role,
		})
	}

	tests := []httpTest{
		{name: "Auth required", body: newUsr("X", "x@test.app", user.RolePlayer), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, coach), body: newUsr("X", "x@test.app", user.RolePlayer),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Duplicate email rejected", token: getToken(t, admin), body: newUsr("Mike 2", "mike@test.app", user.RoleTrainer),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown role rejected", token: getToken(t, admin), body: newUsr("X", "x@test.app", "INTERN"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "User created", token: getToken(t, admin), body: newUsr("Neymar", "ney@test.app", user.RolePlayer),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusCreated {
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if usr.ID == "" || usr.Email != "ney@test.app" {
					t.Errorf("failed! unexpected user %+v", usr)
				}
			} else if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_userApi_userDetail(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.app", "", user.RoleAdmin, null.String{}, null.String{}, true)
	coach := testutil.CreateUser(t, usrRepo, "Coach Mike", "mike@test.app", "", user.RoleTrainer, null.String{}, null.String{}, true)
	player := testutil.CreateUser(t, usrRepo, "Leo", "leo@test.app", "", user.RolePlayer, null.StringFrom(coach.ID), null.String{}, true)

	adminToken := getToken(t, admin)
	playerToken := getToken(t, player)

	tests := []httpTest{
		{
			name: "Own profile", method: http.MethodGet, path: "/v1/users/" + player.ID, token: playerToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, player),
		},
		{
			name: "Someone else's profile is a 404 for non-admins", method: http.MethodGet, path: "/v1/users/" + coach.ID,
			token: playerToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Admin reads anyone", method: http.MethodGet, path: "/v1/users/" + coach.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, coach),
		},
		{
			name: "Unknown id", method: http.MethodGet, path: "/v1/users/nope", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Non-admin cannot change role", method: http.MethodPut, path: "/v1/users/" + player.ID, token: playerToken,
			body:     marchallObj(t, user.UpdateUser{Role: user.RoleTrainer}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Non-admin cannot re-parent themselves", method: http.MethodPut, path: "/v1/users/" + player.ID, token: playerToken,
			body:     marchallObj(t, user.UpdateUser{TrainerID: null.StringFrom("someone-else")}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Own name change", method: http.MethodPut, path: "/v1/users/" + player.ID, token: playerToken,
			body: marchallObj(t, user.UpdateUser{Name: "Leo Jr."}), wantCode: http.StatusOK,
		},
		{
			name: "Set password requires admin", method: http.MethodPatch, path: "/v1/users/" + player.ID + "/password", token: playerToken,
			body:     marchallObj(t, user.SetUserPassword{Password: "newPwd!", PasswordConfirm: "newPwd!"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Admin sets password", method: http.MethodPatch, path: "/v1/users/" + player.ID + "/password", token: adminToken,
			body: marchallObj(t, user.SetUserPassword{Password: "newPwd!", PasswordConfirm: "newPwd!"}), wantCode: http.StatusOK,
		},
		{
			name: "Delete requires admin", method: http.MethodDelete, path: "/v1/users/" + coach.ID, token: playerToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Admin cannot delete themselves", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Admin deletes a user", method: http.MethodDelete, path: "/v1/users/" + coach.ID, token: adminToken,
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_userApi_destroyMultiple(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.app", "", user.RoleAdmin, null.String{}, null.String{}, true)
	coach := testutil.CreateUser(t, usrRepo, "Coach Mike", "mike@test.app", "", user.RoleTrainer, null.String{}, null.String{}, true)
	player := testutil.CreateUser(t, usrRepo, "Leo", "leo@test.app", "", user.RolePlayer, null.StringFrom(coach.ID), null.String{}, true)

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "Admin cannot delete themselves", path: "/v1/users?id=" + admin.ID + "&id=" + coach.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{name: "No ids is a no-op", path: "/v1/users", token: adminToken, wantCode: http.StatusNoContent},
		{
			name: "Users deleted", path: "/v1/users?id=" + coach.ID + "&id=" + player.ID, token: adminToken,
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}
