package repo

import (
	"context"
	"errors"
	"time"

	"github.com/ErickPolzin/Crud/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrBookNotFound is returned when no row matches the requested id
var ErrBookNotFound = errors.New("book not found")

// BookRepository runs single-statement operations against the books table,
// each bounded by the configured store timeout
type BookRepository struct {
	db      *db.DB
	log     *zap.Logger
	timeout time.Duration
}

// NewBookRepository creates a new book repository
func NewBookRepository(database *db.DB, logger *zap.Logger, timeout time.Duration) *BookRepository {
	return &BookRepository{
		db:      database,
		log:     logger,
		timeout: timeout,
	}
}

func (r *BookRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// ListBooks returns one page of books in id order together with the total row count
func (r *BookRepository) ListBooks(ctx context.Context, limit, offset int) ([]db.Book, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.WithContext(ctx).Model(&db.Book{}).Count(&total).Error; err != nil {
		r.log.Error("Failed to count books", zap.Error(err))
		return nil, 0, err
	}

	books := []db.Book{}
	if int64(offset) >= total {
		return books, total, nil
	}

	if err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&books).Error; err != nil {
		r.log.Error("Failed to list books", zap.Int("limit", limit), zap.Int("offset", offset), zap.Error(err))
		return nil, 0, err
	}

	return books, total, nil
}

// GetBook retrieves a book by id
func (r *BookRepository) GetBook(ctx context.Context, id int64) (*db.Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var book db.Book
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &book, nil
}

// CreateBook inserts a new row; the store assigns ID and CreatedAt
func (r *BookRepository) CreateBook(ctx context.Context, book *db.Book) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	book.ID = 0
	book.CreatedAt = time.Time{}

	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		r.log.Error("Failed to create book", zap.String("isbn", book.ISBN), zap.Error(err))
		return err
	}

	r.log.Info("Book created", zap.Int64("id", book.ID), zap.String("title", book.Title))
	return nil
}

// UpdateBook replaces every mutable column of the row identified by id
func (r *BookRepository) UpdateBook(ctx context.Context, id int64, book *db.Book) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Model(&db.Book{}).Where("id = ?", id).Updates(map[string]interface{}{
		"title":            book.Title,
		"author":           book.Author,
		"isbn":             book.ISBN,
		"publication_year": book.PublicationYear,
		"genre":            book.Genre,
	})
	if result.Error != nil {
		r.log.Error("Failed to update book", zap.Int64("id", id), zap.Error(result.Error))
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}

	r.log.Info("Book updated", zap.Int64("id", id))
	return nil
}

// DeleteBook permanently removes a book
func (r *BookRepository) DeleteBook(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&db.Book{})
	if result.Error != nil {
		r.log.Error("Failed to delete book", zap.Int64("id", id), zap.Error(result.Error))
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}

	r.log.Info("Book deleted", zap.Int64("id", id))
	return nil
}

// CountBooks returns the number of stored books, used for metrics
func (r *BookRepository) CountBooks(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.WithContext(ctx).Model(&db.Book{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
