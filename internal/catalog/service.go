// Package catalog implements the book record service: validation,
// pagination and the create/read/update/delete state transitions of the
// books table.
package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ErickPolzin/Crud/internal/db"
	"github.com/ErickPolzin/Crud/internal/events"
	"github.com/ErickPolzin/Crud/internal/repo"
	"go.uber.org/zap"
)

const (
	DefaultPage     = 1
	DefaultLimit    = 10
	DefaultMaxLimit = 100

	eventTimeout = 10 * time.Second
)

// Repository is the storage contract the service runs against.
type Repository interface {
	ListBooks(ctx context.Context, limit, offset int) ([]db.Book, int64, error)
	GetBook(ctx context.Context, id int64) (*db.Book, error)
	CreateBook(ctx context.Context, book *db.Book) error
	UpdateBook(ctx context.Context, id int64, book *db.Book) error
	DeleteBook(ctx context.Context, id int64) error
	CountBooks(ctx context.Context) (int64, error)
}

// Recorder observes the outcome of each service operation.
type Recorder interface {
	ObserveOperation(operation, result string)
}

// Pagination describes the page returned by List.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Page is one slice of the catalog.
type Page struct {
	Data       []db.Book  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Service owns the books table semantics.
type Service struct {
	repo      Repository
	publisher events.Publisher
	validator *Validator
	recorder  Recorder
	log       *zap.Logger
	maxLimit  int

	pending sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithMaxLimit caps the page size accepted by List.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithClock replaces the clock used for the publication year bound.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.validator = NewValidator(now)
	}
}

// WithRecorder reports operation outcomes, typically to prometheus.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// NewService creates a book service. A nil publisher disables events.
func NewService(repository Repository, publisher events.Publisher, log *zap.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	s := &Service{
		repo:      repository,
		publisher: publisher,
		validator: NewValidator(time.Now),
		log:       log,
		maxLimit:  DefaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks a payload without touching the store.
func (s *Service) Validate(in Input) (db.Book, error) {
	return s.validator.Validate(in)
}

// NormalizePage applies the defaults and the limit cap used by List.
func (s *Service) NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return page, limit
}

// List returns the requested page in insertion order. A page past the end
// is empty, not an error.
func (s *Service) List(ctx context.Context, page, limit int) (Page, error) {
	page, limit = s.NormalizePage(page, limit)
	offset := (page - 1) * limit

	books, total, err := s.repo.ListBooks(ctx, limit, offset)
	if err != nil {
		return Page{}, s.finish("list", storeError("list books", err))
	}
	if books == nil {
		books = []db.Book{}
	}

	totalPages := int(total / int64(limit))
	if total%int64(limit) > 0 {
		totalPages++
	}

	s.finish("list", nil)
	return Page{
		Data: books,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// GetByID looks up a single book.
func (s *Service) GetByID(ctx context.Context, id int64) (db.Book, error) {
	if id < 1 {
		return db.Book{}, s.finish("get", notFound())
	}

	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return db.Book{}, s.finish("get", s.mapStoreErr("get book", err))
	}

	s.finish("get", nil)
	return *book, nil
}

// Create validates and stores a new book. ISBN duplicates are allowed.
func (s *Service) Create(ctx context.Context, in Input) (db.Book, error) {
	book, err := s.validator.Validate(in)
	if err != nil {
		return db.Book{}, s.finish("create", err)
	}

	if err := s.repo.CreateBook(ctx, &book); err != nil {
		return db.Book{}, s.finish("create", storeError("create book", err))
	}

	s.publish(ctx, "created", func(ctx context.Context) error {
		return s.publisher.PublishBookCreated(ctx, book)
	})

	s.finish("create", nil)
	return book, nil
}

// Update replaces every mutable field of an existing book. There is no
// merge: callers always send the complete record.
func (s *Service) Update(ctx context.Context, id int64, in Input) (db.Book, error) {
	book, err := s.validator.Validate(in)
	if err != nil {
		return db.Book{}, s.finish("update", err)
	}
	if id < 1 {
		return db.Book{}, s.finish("update", notFound())
	}

	if err := s.repo.UpdateBook(ctx, id, &book); err != nil {
		return db.Book{}, s.finish("update", s.mapStoreErr("update book", err))
	}
	book.ID = id

	s.publish(ctx, "updated", func(ctx context.Context) error {
		return s.publisher.PublishBookUpdated(ctx, book)
	})

	s.finish("update", nil)
	return book, nil
}

// Delete removes a book permanently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return s.finish("delete", notFound())
	}

	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return s.finish("delete", s.mapStoreErr("delete book", err))
	}

	s.publish(ctx, "deleted", func(ctx context.Context) error {
		return s.publisher.PublishBookDeleted(ctx, id)
	})

	s.finish("delete", nil)
	return nil
}

// Stats returns the number of stored books.
func (s *Service) Stats(ctx context.Context) (int64, error) {
	total, err := s.repo.CountBooks(ctx)
	if err != nil {
		return 0, storeError("count books", err)
	}
	return total, nil
}

// Drain waits for in-flight event publications.
func (s *Service) Drain() {
	s.pending.Wait()
}

func (s *Service) mapStoreErr(op string, err error) error {
	if errors.Is(err, repo.ErrBookNotFound) {
		return notFound()
	}
	return storeError(op, err)
}

// publish runs fn in the background; failures are logged and never reach
// the caller.
func (s *Service) publish(ctx context.Context, what string, fn func(context.Context) error) {
	correlationID := events.CorrelationID(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		eventCtx, cancel := context.WithTimeout(events.WithCorrelationID(context.Background(), correlationID), eventTimeout)
		defer cancel()

		if err := fn(eventCtx); err != nil {
			s.log.Error("Failed to publish book event",
				zap.String("event", what),
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) finish(operation string, err error) error {
	if s.recorder != nil {
		result := "ok"
		if err != nil {
			result = string(KindOf(err))
		}
		s.recorder.ObserveOperation(operation, result)
	}
	if err != nil && KindOf(err) == KindStore {
		s.log.Error("Book store operation failed", zap.String("operation", operation), zap.Error(err))
	}
	return err
}
