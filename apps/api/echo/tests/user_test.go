package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/tests"
)

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	body := func(name, email, role, pwd string) []byte {
		return marchallObj(t, map[string]string{
			"name":             name,
			"email":            email,
			"role":             role,
			"password":         pwd,
			"password_confirm": pwd,
		})
	}

	tests := []httpTest{
		{
			name: "student can register", method: http.MethodPost, path: "/v1/users/register",
			body: body("Awe Some", "awe@test.cd", "student", "LePassw0rd!"), wantCode: http.StatusCreated,
		},
		{
			name: "teacher can register", method: http.MethodPost, path: "/v1/users/register",
			body: body("Tea Cher", "tea@test.cd", "teacher", "LePassw0rd!"), wantCode: http.StatusCreated,
		},
		{
			name: "admin cannot register", method: http.MethodPost, path: "/v1/users/register",
			body: body("Sneaky", "sneaky@test.cd", "admin", "LePassw0rd!"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role must be one of: student, teacher"}),
		},
		{
			name: "unknown role is rejected", method: http.MethodPost, path: "/v1/users/register",
			body: body("Lol", "lol@test.cd", "superuser", "LePassw0rd!"), wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate email is rejected", method: http.MethodPost, path: "/v1/users/register",
			body: body("Awe Bis", "awe@test.cd", "student", "LePassw0rd!"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.wantCode == http.StatusCreated {
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if usr.ID == "" {
					t.Error("created user has no ID")
				}
			}
		})
	}
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awe Some", "awe@test.cd", "LePassw0rd!", access.RoleStudent, true)
	testutil.CreateUser(t, usrRepo, "Gone", "gone@test.cd", "LePassw0rd!", access.RoleStudent, false)

	body := func(email, pwd string) []byte {
		return marchallObj(t, map[string]string{"email": email, "password": pwd})
	}

	tests := []httpTest{
		{
			name: "valid credentials", method: http.MethodPost, path: "/v1/users/login",
			body: body(usr.Email, "LePassw0rd!"), wantCode: http.StatusOK,
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/users/login",
			body: body("lol@test.cd", "LePassw0rd!"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body: body(usr.Email, "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", method: http.MethodPost, path: "/v1/users/login",
			body: body("gone@test.cd", "LePassw0rd!"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.wantCode == http.StatusOK {
				var res struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if res.Token == "" {
					t.Error("login returned an empty token")
				}
			}
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	path := func(search, role string, isActive *bool) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if role != "" {
			v.Add("role", role)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", access.RoleStudent, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", access.RoleTeacher, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", access.RoleAdmin, true)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog@test.cd", "", access.RoleStudent, false)

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required (student)", path: "/v1/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Admin required (teacher)", path: "/v1/users", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, student, teacher, admin, naughty),
		},
		{
			name: "search (unknown)", path: path("lol", "", nil), token: adminToken,
			wantCode: http.StatusOK, wantData: empty,
		},
		{
			name: "search=hero", path: path("hero", "", nil), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, student),
		},
		{
			name: "role=student", path: path("", "student", nil), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, student, naughty),
		},
		{
			name: "is_active=false", path: path("", "", bPtr(false)), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, naughty),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_detail(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", access.RoleStudent, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other@test.cd", "", access.RoleStudent, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", access.RoleAdmin, true)

	studentToken := getToken(t, student)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "own account", path: "/v1/users/" + student.ID, token: studentToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, student),
		},
		{
			// no existence leak: someone else's account reads as absent
			name: "someone else's account", path: "/v1/users/" + other.ID, token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "admin reads any account", path: "/v1/users/" + other.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
		{
			name: "admin reads unknown account", path: "/v1/users/lol", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_expiredToken(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", access.RoleStudent, true)

	claims := echoapi.GetUserClaims(usr)
	claims.StandardClaims.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	claims.StandardClaims.IssuedAt = time.Now().Add(-2 * time.Hour).Unix()
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusUnauthorized)
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", access.RoleStudent, true)

	t.Run("fresh token refreshes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("refresh window expired", func(t *testing.T) {
		oriat := time.Now().Add(-30 * 24 * time.Hour).Unix()
		claims := echoapi.GetUserClaims(usr, oriat)
		token, err := echoapi.GenerateToken(claims)
		if err != nil {
			t.Fatalf("GenerateToken() failed: %v", err)
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})
}

// sanity check: the role claim survives a sign/parse roundtrip
func Test_Claims_roundtrip(t *testing.T) {
	setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", access.RoleTeacher, true)
	token := getToken(t, usr)

	parsed, err := jwt.ParseWithClaims(token, &echoapi.Claims{}, func(token *jwt.Token) (interface{}, error) {
		return core.Conf.SecretKey, nil
	})
	if err != nil {
		t.Fatalf("ParseWithClaims() failed: %v", err)
	}
	claims, ok := parsed.Claims.(*echoapi.Claims)
	if !ok {
		t.Fatal("claims have unexpected type")
	}
	if claims.Role != access.RoleTeacher {
		t.Errorf("claims role = %s, want %s", claims.Role, access.RoleTeacher)
	}
	if claims.Subject != usr.ID {
		t.Errorf("claims subject = %s, want %s", claims.Subject, usr.ID)
	}
}
