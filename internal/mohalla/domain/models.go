package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Mohalla is an administrative grouping of houses.
type Mohalla struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Code        string       `json:"code" gorm:"type:text;not null;uniqueIndex:ux_mohallas_code"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Description string       `json:"description" gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (Mohalla) TableName() string { return "mohallas" }
