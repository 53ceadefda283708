package auth

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureapi/authcore/internal/testutil"
	"github.com/secureapi/authcore/tests/integration"
)

const (
	RefreshURL = "/api/user/refresh-token"
	RevokeURL  = "/api/user/revoke-token"
)

// login registers nothing, just exchanges credentials for tokens
func login(t *testing.T, srvURL string, email string) tokenResponse {
	t.Helper()

	data := fmt.Sprintf(`{"email": %q, "password": "StrongEnoughPassword"}`, email)
	resp, body := post(t, srvURL+TokenURL, data)
	require.Equalf(t, http.StatusOK, resp.StatusCode, "login should pass. Body: %s", body)

	return decodeToken(t, body)
}

func Test_Refresh(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("refresh rotates the token", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			register(t, s, "nk")
			session := login(t, srvURL, "nk@x.com")

			data := fmt.Sprintf(`{"refreshToken": %q}`, session.RefreshToken)
			resp, body := post(t, srvURL+RefreshURL, data)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			got := decodeToken(t, body)
			assert.True(t, got.IsAuthenticated)
			assert.Equal(t, "nk", got.Username)
			assert.NotEmpty(t, got.Token)
			assert.NotEqual(t, session.RefreshToken, got.RefreshToken, "refresh should hand out a new token")
		})
	})

	t.Run("refresh twice with same token fails", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			register(t, s, "nk")
			session := login(t, srvURL, "nk@x.com")
			data := fmt.Sprintf(`{"refreshToken": %q}`, session.RefreshToken)

			resp, body := post(t, srvURL+RefreshURL, data)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "first refresh should pass. Body: %s", body)

			resp, body = post(t, srvURL+RefreshURL, data)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"isAuthenticated": false,
					"message": "Token not active"
				}`, body)
		})
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, _ integration.Services) {
			resp, body := post(t, srvURL+RefreshURL, `{"refreshToken": "never-issued"}`)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"isAuthenticated": false,
					"message": "Token did not match any users"
				}`, body)
		})
	})

	t.Run("revoke ends the session", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			register(t, s, "nk")
			session := login(t, srvURL, "nk@x.com")
			data := fmt.Sprintf(`{"refreshToken": %q}`, session.RefreshToken)

			resp, body := post(t, srvURL+RevokeURL, data)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `{"success": true}`, body)

			// Revoked token is no longer exchangeable
			resp, body = post(t, srvURL+RefreshURL, data)
			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("revoke twice reports failure", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			register(t, s, "nk")
			session := login(t, srvURL, "nk@x.com")
			data := fmt.Sprintf(`{"refreshToken": %q}`, session.RefreshToken)

			resp, body := post(t, srvURL+RevokeURL, data)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "first revoke should pass. Body: %s", body)

			resp, body = post(t, srvURL+RevokeURL, data)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `{"success": false}`, body)
		})
	})

	t.Run("replayed rotated token kills its descendants", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			register(t, s, "nk")
			session := login(t, srvURL, "nk@x.com")
			oldData := fmt.Sprintf(`{"refreshToken": %q}`, session.RefreshToken)

			resp, body := post(t, srvURL+RefreshURL, oldData)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "first refresh should pass. Body: %s", body)
			rotated := decodeToken(t, body)

			// The original token comes back, somebody replayed it
			resp, _ = post(t, srvURL+RefreshURL, oldData)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			// Its successor must be dead now too
			resp, body = post(t, srvURL+RefreshURL, fmt.Sprintf(`{"refreshToken": %q}`, rotated.RefreshToken))
			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "descendant should be revoked. Body: %s", body)
		})
	})
}
