package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"image-service/internal/apperr"
	"image-service/internal/models"
)

// TokenIssuer signs tokens for locally registered users.
type TokenIssuer interface {
	Issue(userID uuid.UUID, username string) (string, error)
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Username)
	if err != nil {
		h.writeError(c, apperr.Wrap(apperr.KindStorage, "failed to issue token", err))
		return
	}

	c.JSON(http.StatusCreated, authResponse{User: toUserResponse(user), Token: token})
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		// Failed logins are 401, not the usual 403 mapping.
		if apperr.IsKind(err, apperr.KindAccessDenied) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		h.writeError(c, err)
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Username)
	if err != nil {
		h.writeError(c, apperr.Wrap(apperr.KindStorage, "failed to issue token", err))
		return
	}

	c.JSON(http.StatusOK, authResponse{User: toUserResponse(user), Token: token})
}
