package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"image-service/internal/apperr"
	"image-service/internal/service"
)

// MetaCache is the slice of the Redis client the handlers use for the
// metadata read cache. A nil cache disables caching.
type MetaCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Handler struct {
	images        *service.ImageService
	users         *service.UserService
	issuer        TokenIssuer // nil when an external provider issues tokens
	cache         MetaCache
	maxUploadSize int64
	log           *zap.Logger
}

func New(images *service.ImageService, users *service.UserService, issuer TokenIssuer, cache MetaCache, maxUploadSize int64, log *zap.Logger) *Handler {
	return &Handler{
		images:        images,
		users:         users,
		issuer:        issuer,
		cache:         cache,
		maxUploadSize: maxUploadSize,
		log:           log,
	}
}

// Routes registers all endpoints. Every image route runs behind authn, which
// must put a verified caller id into the context.
func (h *Handler) Routes(r *gin.Engine, authn gin.HandlerFunc) {
	if h.issuer != nil {
		authGroup := r.Group("/auth")
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	api := r.Group("/api", authn)
	api.POST("/images", h.UploadImage)
	api.GET("/images", h.ListImages)
	api.GET("/images/:id", h.GetImage)
	api.GET("/images/:id/meta", h.GetImageMeta)
	api.POST("/images/:id/transform", h.TransformImage)
	api.DELETE("/images/:id", h.DeleteImage)
}

// writeError translates service error kinds into transport status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindAccessDenied:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
		// Server faults keep their details out of the response body.
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
