package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"image-service/internal/auth"
)

func contentTypeFor(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	// Fall back to the extension when the client declared nothing useful.
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

func (h *Handler) UploadImage(c *gin.Context) {
	callerID, ok := auth.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	// Set max upload size
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to get file from request"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image data"})
		return
	}

	contentType := contentTypeFor(header.Header.Get("Content-Type"), header.Filename)

	image, err := h.images.Upload(c.Request.Context(), callerID, header.Filename, contentType, data)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, image)
}
