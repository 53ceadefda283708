package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/secureapi/authcore/internal/db"
	"github.com/secureapi/authcore/internal/handlers"
	"github.com/secureapi/authcore/internal/logger"
	"github.com/secureapi/authcore/internal/repository/postgres"
	"github.com/secureapi/authcore/internal/service/auth"
	"github.com/secureapi/authcore/internal/service/auth/lifecycle"
	"github.com/secureapi/authcore/internal/service/auth/signer"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger
}

func NewServerApp(ctx context.Context) (*ServerApp, error) {
	// Gather configuration: defaults, then .env, env and flags
	c := NewConfig()
	if err := c.LoadDotEnv(os.Getwd); err != nil {
		return nil, fmt.Errorf("error while loading .env file: %w", err)
	}
	if err := c.LoadEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("error while loading environment: %w", err)
	}
	if err := c.ParseFlags(os.Args[1:]); err != nil {
		return nil, err
	}

	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	// Initialize services
	sg, err := signer.New(signer.Config{
		Key:      c.SecretKey,
		Issuer:   c.Issuer,
		Audience: c.Audience,
		TTL:      c.AccessTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token signer. Err: %w", err)
	}

	lm, err := lifecycle.New(lifecycle.Config{Window: c.RefreshTokenTTL}, storage, l)
	if err != nil {
		return nil, fmt.Errorf("error while creating lifecycle manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, sg, lm, storage, l)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handlers.NewRouter(authService, l),
		Logger:     l,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully
	s.Logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
