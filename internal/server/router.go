package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"github.com/abduss/pinstore/internal/auth"
	"github.com/abduss/pinstore/internal/config"
	"github.com/abduss/pinstore/internal/gateway"
	"github.com/abduss/pinstore/internal/logger"
	"github.com/abduss/pinstore/internal/metrics"
)

type statePinger interface {
	Ping(ctx context.Context) error
}

type bucketLister interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
}

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	State       statePinger
	ObjectStore bucketLister
	AuthService *auth.Service
	Gateway     *gateway.Gateway
	Links       gateway.Linker
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	if deps.Gateway != nil && deps.AuthService != nil {
		api := router.Group("/v1")
		gateway.RegisterRoutes(api, deps.Gateway, auth.AuthMiddleware(deps.AuthService), deps.Links)
	}

	return router
}
