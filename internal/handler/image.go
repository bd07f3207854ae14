package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"image-service/internal/auth"
	"image-service/internal/models"
)

const (
	defaultPageLimit = 10
	metaCacheTTL     = 10 * time.Minute
)

func metaCacheKey(imageID uuid.UUID) string {
	return fmt.Sprintf("image:meta:%s", imageID)
}

func (h *Handler) imageID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image ID format"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) caller(c *gin.Context) (uuid.UUID, bool) {
	callerID, ok := auth.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return uuid.Nil, false
	}
	return callerID, ok
}

func (h *Handler) GetImage(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	imageID, ok := h.imageID(c)
	if !ok {
		return
	}

	record, data, err := h.images.Fetch(c.Request.Context(), callerID, imageID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", record.OriginalName))
	c.Data(http.StatusOK, record.MimeType, data)
}

// GetImageMeta serves the metadata record through a read-through cache. The
// cached entry carries the owner id, so the ownership check still runs on
// cache hits.
func (h *Handler) GetImageMeta(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	imageID, ok := h.imageID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, metaCacheKey(imageID)); err == nil {
			var record models.Image
			if err := json.Unmarshal([]byte(cached), &record); err == nil {
				if record.OwnerID != callerID {
					c.JSON(http.StatusForbidden, gin.H{"error": "image belongs to another user"})
					return
				}
				c.JSON(http.StatusOK, record)
				return
			}
		}
	}

	record, err := h.images.Stat(ctx, callerID, imageID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.cache != nil {
		if body, err := json.Marshal(record); err == nil {
			if err := h.cache.Set(ctx, metaCacheKey(imageID), string(body), metaCacheTTL); err != nil {
				h.log.Warn("failed to cache image metadata", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) ListImages(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))

	images, err := h.images.List(c.Request.Context(), callerID, page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"images": images,
		"total":  len(images),
		"page":   page,
		"limit":  limit,
	})
}

func (h *Handler) TransformImage(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	imageID, ok := h.imageID(c)
	if !ok {
		return
	}

	var spec models.TransformSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transformation spec"})
		return
	}

	data, mimeType, err := h.images.Transform(c.Request.Context(), callerID, imageID, spec)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Data(http.StatusOK, mimeType, data)
}

func (h *Handler) DeleteImage(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	imageID, ok := h.imageID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	deleted, err := h.images.Delete(ctx, callerID, imageID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.Delete(ctx, metaCacheKey(imageID)); err != nil {
			h.log.Warn("failed to invalidate metadata cache", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
