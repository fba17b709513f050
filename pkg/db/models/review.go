package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	ProfileID uuid.UUID `gorm:"column:profile_id;type:uuid;not null"`
	Rating    int       `gorm:"column:rating;not null"`
	Body      string    `gorm:"column:body;not null"`
	Language  string    `gorm:"column:language;not null;default:'en'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
