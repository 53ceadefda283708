package auth

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureapi/authcore/internal/testutil"
	"github.com/secureapi/authcore/tests/integration"
)

// tokenResponse mirrors the wire shape of the token endpoints
type tokenResponse struct {
	IsAuthenticated bool     `json:"isAuthenticated"`
	Message         string   `json:"message"`
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	Roles           []string `json:"roles"`
	Token           string   `json:"token"`
	RefreshToken    string   `json:"refreshToken"`
}

func decodeToken(t *testing.T, body string) tokenResponse {
	t.Helper()

	var out tokenResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out), "body should decode: %s", body)
	return out
}

func Test_Token(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("login ok", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			register(t, s, "nk")

			resp, body := post(t, srvURL+TokenURL, `{"email": "nk@x.com", "password": "StrongEnoughPassword"}`)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			got := decodeToken(t, body)
			assert.True(t, got.IsAuthenticated)
			assert.Equal(t, "nk", got.Username)
			assert.Equal(t, "nk@x.com", got.Email)
			assert.Equal(t, []string{"User"}, got.Roles)
			assert.NotEmpty(t, got.Token, "access token should be issued")
			assert.NotEmpty(t, got.RefreshToken, "refresh token should be issued")
		})
	})

	t.Run("unknown email", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, _ integration.Services) {
			resp, body := post(t, srvURL+TokenURL, `{"email": "nobody@x.com", "password": "whatever1"}`)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"isAuthenticated": false,
					"message": "No accounts registered with nobody@x.com"
				}`, body)
		})
	})

	t.Run("wrong password", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			register(t, s, "nk")

			resp, body := post(t, srvURL+TokenURL, `{"email": "nk@x.com", "password": "WrongPassword"}`)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"isAuthenticated": false,
					"message": "Incorrect credentials for user nk@x.com"
				}`, body)
		})
	})

	t.Run("second login returns same refresh token", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			register(t, s, "nk")
			login := `{"email": "nk@x.com", "password": "StrongEnoughPassword"}`

			_, firstBody := post(t, srvURL+TokenURL, login)
			_, secondBody := post(t, srvURL+TokenURL, login)

			first := decodeToken(t, firstBody)
			second := decodeToken(t, secondBody)
			assert.Equal(t, first.RefreshToken, second.RefreshToken, "active refresh token should be reused")
		})
	})
}
