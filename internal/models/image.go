package models

import (
	"time"

	"github.com/google/uuid"
)

// Image is the catalog record for one stored asset. OwnerID never changes
// after upload; StoredName is the storage-layer key and is distinct from the
// user-supplied OriginalName so uploads with the same filename never collide.
type Image struct {
	ID           uuid.UUID `json:"id" db:"id"`
	OwnerID      uuid.UUID `json:"owner_id" db:"owner_id"`
	StoredName   string    `json:"stored_name" db:"stored_name"`
	OriginalName string    `json:"original_name" db:"original_name"`
	SizeBytes    int64     `json:"size_bytes" db:"size_bytes"`
	MimeType     string    `json:"mime_type" db:"mime_type"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
