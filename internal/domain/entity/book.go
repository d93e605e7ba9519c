package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Book 系列中的一本书
type Book struct {
	ID        string     `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID string     `json:"project_id" gorm:"type:uuid;index;not null"`
	Project   *Project   `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Number    int        `json:"number" gorm:"not null"`
	Title     string     `json:"title" gorm:"type:varchar(255);not null"`
	Chapters  []*Chapter `json:"chapters,omitempty" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Book) TableName() string {
	return "books"
}

// NewBook 创建书籍
func NewBook(projectID string, number int, title string) *Book {
	now := time.Now()
	return &Book{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Number:    number,
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
