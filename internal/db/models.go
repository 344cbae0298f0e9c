package db

import (
	"time"

	"gorm.io/gorm"
)

// Book represents a row of the books table
type Book struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string    `gorm:"type:varchar(255);not null" json:"title"`
	Author          string    `gorm:"type:varchar(255);not null;index:idx_books_author" json:"author"`
	ISBN            string    `gorm:"column:isbn;type:varchar(13);not null;index:idx_books_isbn" json:"isbn"` // not unique
	PublicationYear int       `gorm:"column:publication_year;not null" json:"publicationYear"`
	Genre           string    `gorm:"type:varchar(100);not null;index:idx_books_genre" json:"genre"`
	CreatedAt       time.Time `gorm:"not null" json:"createdAt,omitzero"`
}

// TableName specifies the table name for Book model
func (Book) TableName() string {
	return "books"
}

// BeforeCreate hook to set the creation timestamp
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return nil
}
