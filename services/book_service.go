package services

import (
	"bookstore/cache"
	"bookstore/metrics"
	"bookstore/models"
	"bookstore/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const msgBookNotFound = "Book not found"

type BookService struct {
	books repository.BookRepository
	cache cache.BookCache
	log   *zap.Logger
	now   func() time.Time
}

func NewBookService(books repository.BookRepository, c cache.BookCache, log *zap.Logger) *BookService {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookService{books: books, cache: c, log: log, now: time.Now}
}

// List returns the books matching every non-empty field of filter.
func (s *BookService) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	key := cache.ListKey(filter)
	entry, err := s.cache.EntryKey(ctx, key)
	if err != nil {
		s.log.Warn("book cache unavailable", zap.String("key", key), zap.Error(err))
		metrics.RecordBookCacheLookup(false)
		return s.listFromStore(ctx, filter)
	}

	books, hit, err := s.cache.GetList(ctx, entry)
	if err != nil {
		s.log.Warn("book cache read failed", zap.String("entry", entry), zap.Error(err))
	}
	metrics.RecordBookCacheLookup(hit)
	if hit {
		return books, nil
	}

	books, err = s.listFromStore(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetList(ctx, entry, books); err != nil {
		s.log.Warn("book cache write failed", zap.String("entry", entry), zap.Error(err))
	}
	return books, nil
}

func (s *BookService) listFromStore(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	books, err := s.books.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *BookService) Get(ctx context.Context, id string) (*models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound(msgBookNotFound)
	}
	book, err := s.books.FindByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(msgBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find book %s: %w", id, err)
	}
	return book, nil
}

func (s *BookService) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if book.Price < 0 || book.Stock < 0 {
		return nil, validation("Price and stock must not be negative")
	}
	now := s.now()
	book.ID = primitive.NewObjectID()
	book.Ratings = []models.Rating{}
	book.CreatedAt = now
	book.UpdatedAt = now

	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	s.Invalidate(ctx)
	return book, nil
}

func (s *BookService) Update(ctx context.Context, id string, update models.BookUpdate) (*models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound(msgBookNotFound)
	}
	if (update.Price != nil && *update.Price < 0) || (update.Stock != nil && *update.Stock < 0) {
		return nil, validation("Price and stock must not be negative")
	}

	book, err := s.books.Update(ctx, oid, update)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(msgBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update book %s: %w", id, err)
	}
	s.Invalidate(ctx)
	return book, nil
}

func (s *BookService) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound(msgBookNotFound)
	}
	err = s.books.Delete(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(msgBookNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete book %s: %w", id, err)
	}
	s.Invalidate(ctx)
	return nil
}

// AddReview appends one rating per user. The duplicate check and the write
// are separate store calls, so two concurrent reviews from the same user
// can both be stored.
func (s *BookService) AddReview(ctx context.Context, bookID string, userID primitive.ObjectID, rating int, review string) error {
	if rating < 1 || rating > 5 {
		return validation("Rating must be between 1 and 5")
	}
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if book.HasRatingFrom(userID) {
		return validation("Book already reviewed")
	}

	err = s.books.AddRating(ctx, book.ID, models.Rating{
		User:      userID,
		Rating:    rating,
		Review:    review,
		CreatedAt: s.now(),
	})
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(msgBookNotFound)
	}
	if err != nil {
		return fmt.Errorf("add rating to %s: %w", bookID, err)
	}
	s.Invalidate(ctx)
	return nil
}

// Invalidate drops cached listings after a book write.
func (s *BookService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("book cache invalidation failed", zap.Error(err))
	}
}
