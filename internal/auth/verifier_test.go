package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/auth"
	"github.com/aranya-labs/backend-vastra/internal/common"
)

const testSecret = "vastra-test-secret-vastra-test-secret"

func signToken(t *testing.T, subject string, expires time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Subject(subject).
		Issuer("vastra-identity").
		Expiration(expires).
		IssuedAt(time.Now()).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)
	return string(signed)
}

func newVerifier() auth.Verifier {
	return auth.Verifier{
		Secret:    []byte(testSecret),
		Issuer:    "vastra-identity",
		Algorithm: jwa.HS256,
	}
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	token := signToken(t, "5f1c9a2e-user", time.Now().Add(time.Hour))
	subject, err := newVerifier().Subject(token)
	require.NoError(t, err)
	require.Equal(t, "5f1c9a2e-user", subject)
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	token := signToken(t, "u1", time.Now().Add(-time.Hour))
	_, err := newVerifier().Subject(token)
	require.Error(t, err)
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	tok, err := jwt.NewBuilder().Subject("u1").Issuer("vastra-identity").Expiration(time.Now().Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("another-secret-another-secret!!")))
	require.NoError(t, err)

	_, err = newVerifier().Subject(string(signed))
	require.Error(t, err)
}

func TestVerifierRejectsWrongIssuer(t *testing.T) {
	tok, err := jwt.NewBuilder().Subject("u1").Issuer("someone-else").Expiration(time.Now().Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)

	_, err = newVerifier().Subject(string(signed))
	require.Error(t, err)
}

func TestRequireAuthAttachesUser(t *testing.T) {
	m := auth.Middleware{Verifier: newVerifier()}

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = common.UserID(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-42", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()

	m.RequireAuth(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-42", gotUser)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	m := auth.Middleware{Verifier: newVerifier()}
	rec := httptest.NewRecorder()
	m.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler should not run")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
