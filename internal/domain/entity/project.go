// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultGenre 未指定体裁时的默认值
const DefaultGenre = "fantasy"

// Project 写作项目（一部作品或一个系列）
type Project struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Genre       string    `json:"genre" gorm:"type:varchar(100);not null;default:'fantasy'"`
	TotalBooks  *int      `json:"total_books,omitempty"`
	Books       []*Book   `json:"books,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Project) TableName() string {
	return "projects"
}

// NewProject 创建项目，genre 为空时使用 DefaultGenre
func NewProject(name, description, genre string) *Project {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		genre = DefaultGenre
	}
	now := time.Now()
	return &Project{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: description,
		Genre:       genre,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
