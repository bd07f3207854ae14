// Package catalog defines the metadata persistence contracts. Implementations
// return plain errors; the service layer decides what they mean to callers.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"image-service/internal/models"
)

// ErrDuplicate is reported by Users.Create when the username is taken.
var ErrDuplicate = errors.New("duplicate record")

// Images stores image metadata records. GetByID returns (nil, nil) when no
// record exists. Delete is owner-scoped as a second line of defense behind the
// service's ownership check, and reports whether a row was removed.
type Images interface {
	Insert(ctx context.Context, img *models.Image) (*models.Image, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Image, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) (bool, error)
}

// Users stores account records. GetByUsername returns (nil, nil) when no
// record exists.
type Users interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
