package login

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/auth"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/handler"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/session"
)

// fakeAuthenticator accepts hhornblower/pass and fails hard for the login "broken".
type fakeAuthenticator struct {
	scope auth.Scope
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, scope auth.Scope, login, password string) (*auth.Principal, error) {
	f.scope = scope

	switch {
	case login == "broken":
		return nil, auth.ErrPersistence
	case login == "hhornblower" && password == "pass":
		wiki := scope.Wiki
		if wiki == "" {
			wiki = "xwiki"
		}

		return &auth.Principal{
			Name:     wiki + ":XWiki.hhornblower",
			Wiki:     wiki,
			LocalUID: "hhornblower",
			DN:       "cn=Horatio Hornblower,ou=people,o=sevenSeas",
			Source:   auth.SourceLDAP,
		}, nil
	default:
		return nil, nil
	}
}

func newTestApp(t *testing.T) (*fiber.App, *fakeAuthenticator) {
	t.Helper()

	issuer, err := session.NewIssuer("secret", time.Hour, "ldapauth")
	require.NoError(t, err)

	authn := &fakeAuthenticator{}
	app := fiber.New()

	s := &Service{}
	require.NoError(t, s.Init(app, authn, issuer))

	return app, authn
}

func postLogin(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)

	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func TestPost(t *testing.T) {
	app, _ := newTestApp(t)

	testCases := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{
			name:   "accepted",
			body:   `{"login":"hhornblower","password":"pass"}`,
			status: http.StatusOK,
		},
		{
			name:    "refused",
			body:    `{"login":"hhornblower","password":"wrong"}`,
			status:  http.StatusUnauthorized,
			message: ErrInvalidCredentials.Error(),
		},
		{
			name:    "empty password is a refusal",
			body:    `{"login":"hhornblower","password":""}`,
			status:  http.StatusUnauthorized,
			message: ErrInvalidCredentials.Error(),
		},
		{
			name:    "missing login",
			body:    `{"password":"pass"}`,
			status:  http.StatusBadRequest,
			message: ErrInvalidFormData.Error(),
		},
		{
			name:    "qualified wiki name",
			body:    `{"login":"hhornblower","password":"pass","wiki":"a:b"}`,
			status:  http.StatusBadRequest,
			message: ErrInvalidFormData.Error(),
		},
		{
			name:    "malformed body",
			body:    `{"login":`,
			status:  http.StatusBadRequest,
			message: ErrInvalidFormData.Error(),
		},
		{
			name:    "storage failure",
			body:    `{"login":"broken","password":"pass"}`,
			status:  http.StatusInternalServerError,
			message: ErrInternalServerError.Error(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postLogin(t, app, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)

			if tc.message == "" {
				return
			}

			var body handler.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}

func TestLoginThenMe(t *testing.T) {
	app, authn := newTestApp(t)

	resp := postLogin(t, app, `{"login":"hhornblower","password":"pass","wiki":"fleet"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fleet", authn.scope.Wiki)

	var login Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "fleet:XWiki.hhornblower", login.Principal.Name)

	req := httptest.NewRequest(http.MethodGet, MePath, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+login.Token)

	meResp, err := app.Test(req)
	require.NoError(t, err)

	defer meResp.Body.Close()

	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var me auth.Principal
	require.NoError(t, json.NewDecoder(meResp.Body).Decode(&me))
	assert.Equal(t, *login.Principal, me)
}

func TestInitRejectsNilDependencies(t *testing.T) {
	s := &Service{}
	require.Error(t, s.Init(fiber.New(), nil, nil))
}
