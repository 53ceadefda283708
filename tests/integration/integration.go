// Package integration wires the full service stack over a rolled back
// database transaction and serves it through a real HTTP server.
package integration

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/secureapi/authcore/internal/handlers"
	"github.com/secureapi/authcore/internal/logger"
	"github.com/secureapi/authcore/internal/repository"
	"github.com/secureapi/authcore/internal/repository/postgres"
	"github.com/secureapi/authcore/internal/service/auth"
	"github.com/secureapi/authcore/internal/service/auth/lifecycle"
	"github.com/secureapi/authcore/internal/service/auth/signer"
	"github.com/secureapi/authcore/internal/testutil"
)

// SecretKey signs access tokens in the tests. Known so tests may mint
// their own tokens when they need a tampered or expired one
const SecretKey = "integration-secret-0123456789abcdef"

const (
	Issuer     = "authcore"
	Audience   = "authcore-clients"
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

// Services built for a single test run
type Services struct {
	AuthService *auth.Service
	Lifecycle   *lifecycle.Manager
	Storage     repository.Storage
}

// RunTx builds the full stack on one transaction, serves it and rolls
// everything back when fn returns
func RunTx(dbpool *pgxpool.Pool, t *testing.T, fn func(srvURL string, s Services)) {
	t.Helper()

	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		sg, err := signer.New(signer.Config{
			Key:      SecretKey,
			Issuer:   Issuer,
			Audience: Audience,
			TTL:      AccessTTL,
		})
		require.NoError(t, err, "signer should be created without errors")

		lm, err := lifecycle.New(lifecycle.Config{Window: RefreshTTL}, storage, nil)
		require.NoError(t, err, "lifecycle manager should be created without errors")

		authService, err := auth.NewService(auth.Config{}, sg, lm, storage, nil)
		require.NoError(t, err, "auth service should be created without errors")

		srv := httptest.NewServer(handlers.NewRouter(authService, logger.NewNoOp()))
		defer srv.Close()

		fn(srv.URL, Services{
			AuthService: authService,
			Lifecycle:   lm,
			Storage:     storage,
		})
	})
}
