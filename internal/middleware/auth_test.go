package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/telemedhq/telemed-api/internal/auth"
	"github.com/telemedhq/telemed-api/internal/models"
	"github.com/telemedhq/telemed-api/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLoader struct {
	accounts map[string]*models.Account // key: role + "/" + id
	err      error
}

func (f *fakeLoader) FindAccountByID(_ context.Context, role models.Role, id string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.accounts[string(role)+"/"+id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return acc, nil
}

func newAuthTestRouter(tokens *auth.TokenManager, loader AccountLoader, requiredRole models.Role) *gin.Engine {
	r := gin.New()
	r.GET("/protected", Authenticate(tokens, loader), RequireRole(requiredRole), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		acc, _ := AccountFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": claims.UserID, "role": claims.Role, "email": acc.Email})
	})
	return r
}

func doProtected(t *testing.T, r *gin.Engine, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateMissingHeader(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	r := newAuthTestRouter(tokens, &fakeLoader{}, models.RoleDoctor)

	for _, header := range []string{"", "Basic abc", "token-without-scheme"} {
		w := doProtected(t, r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		assert.Contains(t, w.Body.String(), "Token missing")
	}
}

func TestAuthenticateInvalidToken(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	r := newAuthTestRouter(tokens, &fakeLoader{}, models.RoleDoctor)

	w := doProtected(t, r, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")
}

func TestAuthenticateExpiredToken(t *testing.T) {
	expired := auth.NewTokenManager("secret", time.Hour)
	token := issueExpired(t, "secret")
	r := newAuthTestRouter(expired, &fakeLoader{}, models.RoleDoctor)

	w := doProtected(t, r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")
}

// issueExpired mints a token that is already past its expiry window.
func issueExpired(t *testing.T, secret string) string {
	t.Helper()
	m := auth.NewTokenManager(secret, time.Nanosecond)
	token, err := m.Issue(primitive.NewObjectID().Hex(), models.RoleDoctor)
	require.NoError(t, err)
	// JWT expiry has second precision; step past the boundary.
	time.Sleep(1100 * time.Millisecond)
	return token
}

func TestAuthenticateUserNotFound(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	token, err := tokens.Issue(primitive.NewObjectID().Hex(), models.RoleDoctor)
	require.NoError(t, err)

	r := newAuthTestRouter(tokens, &fakeLoader{}, models.RoleDoctor)
	w := doProtected(t, r, "Bearer "+token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "User not found")
}

func TestAuthenticateLoaderError(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	token, err := tokens.Issue(primitive.NewObjectID().Hex(), models.RoleDoctor)
	require.NoError(t, err)

	r := newAuthTestRouter(tokens, &fakeLoader{err: errors.New("store down")}, models.RoleDoctor)
	w := doProtected(t, r, "Bearer "+token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthenticateSuccessInjectsIdentity(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	id := primitive.NewObjectID()
	token, err := tokens.Issue(id.Hex(), models.RoleDoctor)
	require.NoError(t, err)

	loader := &fakeLoader{accounts: map[string]*models.Account{
		"doctor/" + id.Hex(): {ID: id, Email: "doc@x.com"},
	}}
	r := newAuthTestRouter(tokens, loader, models.RoleDoctor)

	w := doProtected(t, r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, id.Hex(), body["id"])
	assert.Equal(t, "doctor", body["role"])
	assert.Equal(t, "doc@x.com", body["email"])
}

func TestRequireRoleMismatch(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	id := primitive.NewObjectID()
	token, err := tokens.Issue(id.Hex(), models.RoleDoctor)
	require.NoError(t, err)

	loader := &fakeLoader{accounts: map[string]*models.Account{
		"doctor/" + id.Hex(): {ID: id, Email: "doc@x.com"},
	}}

	// A doctor token never passes a patient-gated route.
	r := newAuthTestRouter(tokens, loader, models.RolePatient)
	w := doProtected(t, r, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient role permissions")
}

func TestRequireRoleWithoutAuthenticate(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRole(models.RoleDoctor), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
