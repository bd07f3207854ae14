// Package service holds the orchestrating layer: the image access service and
// the user service. All authorization decisions live here; handlers only
// translate transport and the backends only persist.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"image-service/internal/apperr"
	"image-service/internal/catalog"
	"image-service/internal/events"
	"image-service/internal/models"
	"image-service/internal/storage"
	"image-service/internal/transform"
)

// ImageService composes the blob store, the metadata catalog and the
// transformation pipeline, and enforces that only the owning identity may
// read, transform or delete an image. It holds no call-spanning state and is
// safe for concurrent use.
type ImageService struct {
	store       storage.Store
	images      catalog.Images
	sink        events.Sink // nil disables lifecycle events
	maxPageSize int
	log         *zap.Logger
}

func NewImageService(store storage.Store, images catalog.Images, sink events.Sink, maxPageSize int, log *zap.Logger) *ImageService {
	return &ImageService{
		store:       store,
		images:      images,
		sink:        sink,
		maxPageSize: maxPageSize,
		log:         log,
	}
}

// Upload stores the payload and inserts its metadata record. If the metadata
// insert fails after the blob write succeeded, the blob is deleted again so no
// orphan is left behind.
func (s *ImageService) Upload(ctx context.Context, callerID uuid.UUID, filename, contentType string, data []byte) (*models.Image, error) {
	if len(data) == 0 {
		return nil, apperr.New(apperr.KindValidation, "empty upload payload")
	}

	id := uuid.New()
	storedName := fmt.Sprintf("%s_%s", id, filepath.Base(filename))

	if err := s.store.Put(ctx, storedName, data, contentType); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to store image bytes", err)
	}

	record := &models.Image{
		ID:           id,
		OwnerID:      callerID,
		StoredName:   storedName,
		OriginalName: filename,
		SizeBytes:    int64(len(data)),
		MimeType:     contentType,
	}
	created, err := s.images.Insert(ctx, record)
	if err != nil {
		if delErr := s.store.Delete(ctx, storedName); delErr != nil {
			s.log.Error("failed to remove blob after catalog insert failure",
				zap.String("stored_name", storedName),
				zap.Error(delErr))
		}
		return nil, apperr.Wrap(apperr.KindStorage, "failed to insert image metadata", err)
	}

	s.publish(events.Event{
		Type:       events.TypeUploaded,
		ImageID:    created.ID,
		OwnerID:    created.OwnerID,
		SizeBytes:  created.SizeBytes,
		OccurredAt: time.Now().UTC(),
	})

	s.log.Info("image uploaded",
		zap.String("image_id", created.ID.String()),
		zap.String("owner_id", created.OwnerID.String()),
		zap.Int64("size_bytes", created.SizeBytes))
	return created, nil
}

// Stat loads the metadata record and verifies ownership without touching the
// blob store. Existence is checked before ownership, so a missing id is
// NotFound for any caller while a foreign id is AccessDenied.
func (s *ImageService) Stat(ctx context.Context, callerID, imageID uuid.UUID) (*models.Image, error) {
	record, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to load image metadata", err)
	}
	if record == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "image %s not found", imageID)
	}
	if record.OwnerID != callerID {
		return nil, apperr.New(apperr.KindAccessDenied, "image belongs to another user")
	}
	return record, nil
}

// Fetch returns the metadata record and the original bytes. The ownership
// check runs before any byte I/O, so denied callers never trigger a storage
// read.
func (s *ImageService) Fetch(ctx context.Context, callerID, imageID uuid.UUID) (*models.Image, []byte, error) {
	record, err := s.Stat(ctx, callerID, imageID)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.store.Get(ctx, record.StoredName)
	if err != nil {
		// A record without its blob is an invariant breach, so even
		// storage.ErrNotFound is a server fault here.
		return nil, nil, apperr.Wrap(apperr.KindStorage, "failed to load image bytes", err)
	}
	return record, data, nil
}

// List returns the caller's images, most recent first. Page is 1-based and
// the limit is clamped to the configured maximum regardless of client input.
func (s *ImageService) List(ctx context.Context, callerID uuid.UUID, page, limit int) ([]models.Image, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	images, err := s.images.ListByOwner(ctx, callerID, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to list images", err)
	}
	return images, nil
}

// Transform pipes the original bytes through the transformation pipeline.
// Output is recomputed on every call and never persisted.
func (s *ImageService) Transform(ctx context.Context, callerID, imageID uuid.UUID, spec models.TransformSpec) ([]byte, string, error) {
	_, data, err := s.Fetch(ctx, callerID, imageID)
	if err != nil {
		return nil, "", err
	}
	return transform.Apply(data, spec)
}

// Delete removes the metadata record and the blob, in that order, after the
// same ownership check Fetch performs. Reports whether a record was removed;
// a row vanishing between check and delete yields (false, nil) rather than an
// error.
func (s *ImageService) Delete(ctx context.Context, callerID, imageID uuid.UUID) (bool, error) {
	record, err := s.Stat(ctx, callerID, imageID)
	if err != nil {
		return false, err
	}

	removed, err := s.images.Delete(ctx, imageID, callerID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindStorage, "failed to delete image metadata", err)
	}
	if !removed {
		return false, nil
	}

	if err := s.store.Delete(ctx, record.StoredName); err != nil {
		return false, apperr.Wrap(apperr.KindStorage, "failed to delete image bytes", err)
	}

	s.publish(events.Event{
		Type:       events.TypeDeleted,
		ImageID:    record.ID,
		OwnerID:    record.OwnerID,
		SizeBytes:  record.SizeBytes,
		OccurredAt: time.Now().UTC(),
	})

	s.log.Info("image deleted",
		zap.String("image_id", imageID.String()),
		zap.String("owner_id", callerID.String()))
	return true, nil
}

func (s *ImageService) publish(ev events.Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ev); err != nil {
		s.log.Warn("failed to publish lifecycle event",
			zap.String("type", ev.Type),
			zap.String("image_id", ev.ImageID.String()),
			zap.Error(err))
	}
}
