package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"image-service/internal/models"
)

type Images struct {
	pool *pgxpool.Pool
}

func NewImages(pool *pgxpool.Pool) *Images {
	return &Images{pool: pool}
}

func (r *Images) Insert(ctx context.Context, img *models.Image) (*models.Image, error) {
	query := `
		INSERT INTO images (id, owner_id, stored_name, original_name, size_bytes, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	created := *img
	err := r.pool.QueryRow(ctx, query,
		img.ID, img.OwnerID, img.StoredName, img.OriginalName, img.SizeBytes, img.MimeType,
	).Scan(&created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert image: %w", err)
	}
	return &created, nil
}

func (r *Images) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	query := `
		SELECT id, owner_id, stored_name, original_name, size_bytes, mime_type, created_at
		FROM images
		WHERE id = $1
	`
	var img models.Image
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&img.ID,
		&img.OwnerID,
		&img.StoredName,
		&img.OriginalName,
		&img.SizeBytes,
		&img.MimeType,
		&img.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find image by id: %w", err)
	}
	return &img, nil
}

func (r *Images) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Image, error) {
	query := `
		SELECT id, owner_id, stored_name, original_name, size_bytes, mime_type, created_at
		FROM images
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list images by owner: %w", err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(
			&img.ID,
			&img.OwnerID,
			&img.StoredName,
			&img.OriginalName,
			&img.SizeBytes,
			&img.MimeType,
			&img.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate image rows: %w", err)
	}
	return images, nil
}

func (r *Images) Delete(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM images WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete image: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
