// Package repository holds the persistence interfaces of the bookstore and
// their MongoDB and in-memory implementations.
package repository

import (
	"bookstore/models"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

type BookRepository interface {
	List(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Book, error)
	Create(ctx context.Context, book *models.Book) error
	Update(ctx context.Context, id primitive.ObjectID, update models.BookUpdate) (*models.Book, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// SetStock overwrites the stock counter with an absolute value.
	SetStock(ctx context.Context, id primitive.ObjectID, stock int) error
	AddRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenRepository remembers logged out tokens until they expire.
type TokenRepository interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type Store struct {
	Books  BookRepository
	Orders OrderRepository
	Users  UserRepository
	Tokens TokenRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
