package app

import (
	"context"

	"payshield/internal/auth/credentials"
	"payshield/internal/auth/handler"
	"payshield/internal/config"

	"github.com/gin-gonic/gin"
)

// setupHTTP builds the profile service: the backend profile endpoints
// and the password identity provider the clients sign in against.
func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	credentialService := credentials.NewService(infra.Credentials)

	var opts []handler.Option
	if infra.Redis != nil && cfg.SignInMaxAttempts > 0 {
		opts = append(opts, handler.WithThrottle(credentials.NewRedisThrottle(
			infra.Redis.Client,
			cfg.Origin,
			cfg.SignInMaxAttempts,
			cfg.SignInWindow,
		)))
	}

	authHandler := handler.NewHandler(credentialService, infra.Profiles, opts...)

	// ----------------------------
	// Router
	// ----------------------------

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	authHandler.RegisterRoutes(router)

	return router, infra.Close, nil
}
