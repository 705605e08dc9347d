package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/auth"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/session"
)

type recordingCache struct {
	purged      int
	invalidated []string
}

func (r *recordingCache) Invalidate(wiki, localUID string) {
	r.invalidated = append(r.invalidated, wiki+":"+localUID)
}

func (r *recordingCache) Purge() { r.purged++ }

func TestCacheRoutes(t *testing.T) {
	issuer, err := session.NewIssuer("secret", time.Hour, "ldapauth")
	require.NoError(t, err)

	token, _, err := issuer.Issue(&auth.Principal{
		Name: "xwiki:XWiki.Admin", Wiki: "xwiki", LocalUID: "Admin", Source: auth.SourceLocal,
	})
	require.NoError(t, err)

	directoryToken, _, err := issuer.Issue(&auth.Principal{
		Name: "xwiki:XWiki.hhornblower", Wiki: "xwiki", LocalUID: "hhornblower", Source: auth.SourceLDAP,
	})
	require.NoError(t, err)

	rec := &recordingCache{}
	app := fiber.New()

	s := &Service{}
	require.NoError(t, s.Init(app, rec, issuer))

	do := func(path, token string) int {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		if token != "" {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}

		resp, err := app.Test(req)
		require.NoError(t, err)

		defer resp.Body.Close()

		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, do(Path+"/", ""))
	assert.Equal(t, http.StatusForbidden, do(Path+"/", directoryToken))
	assert.Equal(t, http.StatusForbidden, do(Path+"/fleet/hhornblower", directoryToken))
	assert.Equal(t, http.StatusNoContent, do(Path+"/", token))
	assert.Equal(t, http.StatusNoContent, do(Path+"/fleet/hhornblower", token))

	assert.Equal(t, 1, rec.purged)
	assert.Equal(t, []string{"fleet:hhornblower"}, rec.invalidated)
}
