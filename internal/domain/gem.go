package domain

import (
	"time"

	"github.com/google/uuid"
)

type Gem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;uniqueIndex"`
	CreatedAt time.Time
}
