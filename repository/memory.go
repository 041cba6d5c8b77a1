package repository

import (
	"bookstore/models"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewMemoryStore returns a process-local store with the same semantics as
// the Mongo store. Data is lost on restart.
func NewMemoryStore() *Store {
	return &Store{
		Books:  &MemoryBookRepository{books: map[primitive.ObjectID]*models.Book{}},
		Orders: &MemoryOrderRepository{orders: map[primitive.ObjectID]*models.Order{}},
		Users:  &MemoryUserRepository{users: map[primitive.ObjectID]*models.User{}},
		Tokens: &MemoryTokenRepository{tokens: map[string]time.Time{}},
	}
}

func copyBook(b *models.Book) models.Book {
	out := *b
	out.Ratings = append([]models.Rating{}, b.Ratings...)
	return out
}

func copyOrder(o *models.Order) models.Order {
	out := *o
	out.Items = append([]models.OrderItem{}, o.Items...)
	return out
}

func matchesBook(b *models.Book, f models.BookFilter) bool {
	if f.Category != "" && b.Category != f.Category {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(b.Title), needle) &&
			!strings.Contains(strings.ToLower(b.Author), needle) {
			return false
		}
	}
	if f.Featured != nil && b.Featured != *f.Featured {
		return false
	}
	return true
}

type MemoryBookRepository struct {
	mu    sync.RWMutex
	books map[primitive.ObjectID]*models.Book
	order []primitive.ObjectID
}

func (r *MemoryBookRepository) List(_ context.Context, filter models.BookFilter) ([]models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	books := []models.Book{}
	for _, id := range r.order {
		b, ok := r.books[id]
		if ok && matchesBook(b, filter) {
			books = append(books, copyBook(b))
		}
	}
	return books, nil
}

func (r *MemoryBookRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyBook(b)
	return &out, nil
}

func (r *MemoryBookRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	books := []models.Book{}
	for _, id := range ids {
		if b, ok := r.books[id]; ok {
			books = append(books, copyBook(b))
		}
	}
	return books, nil
}

func (r *MemoryBookRepository) Create(_ context.Context, book *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if book.ID.IsZero() {
		book.ID = primitive.NewObjectID()
	}
	if _, exists := r.books[book.ID]; exists {
		return ErrDuplicate
	}
	stored := copyBook(book)
	r.books[book.ID] = &stored
	r.order = append(r.order, book.ID)
	return nil
}

func (r *MemoryBookRepository) Update(_ context.Context, id primitive.ObjectID, u models.BookUpdate) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Author != nil {
		b.Author = *u.Author
	}
	if u.Description != nil {
		b.Description = *u.Description
	}
	if u.Price != nil {
		b.Price = *u.Price
	}
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.ImageURL != nil {
		b.ImageURL = *u.ImageURL
	}
	if u.Stock != nil {
		b.Stock = *u.Stock
	}
	if u.Featured != nil {
		b.Featured = *u.Featured
	}
	b.UpdatedAt = time.Now()

	out := copyBook(b)
	return &out, nil
}

func (r *MemoryBookRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[id]; !ok {
		return ErrNotFound
	}
	delete(r.books, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryBookRepository) SetStock(_ context.Context, id primitive.ObjectID, stock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[id]
	if !ok {
		return ErrNotFound
	}
	b.Stock = stock
	b.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryBookRepository) AddRating(_ context.Context, id primitive.ObjectID, rating models.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[id]
	if !ok {
		return ErrNotFound
	}
	b.Ratings = append(b.Ratings, rating)
	b.UpdatedAt = time.Now()
	return nil
}

type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[primitive.ObjectID]*models.Order
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	stored := copyOrder(order)
	r.orders[order.ID] = &stored
	return nil
}

func (r *MemoryOrderRepository) collect(keep func(*models.Order) bool) []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []models.Order{}
	for _, o := range r.orders {
		if keep(o) {
			orders = append(orders, copyOrder(o))
		}
	}
	// newest first, ObjectIDs break ties between orders created in the same instant
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID.Hex() > orders[j].ID.Hex()
	})
	return orders
}

func (r *MemoryOrderRepository) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.collect(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (r *MemoryOrderRepository) FindAll(_ context.Context) ([]models.Order, error) {
	return r.collect(func(*models.Order) bool { return true }), nil
}

func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	out := copyOrder(o)
	return &out, nil
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*models.User
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *MemoryUserRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := []models.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

type MemoryTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

func (r *MemoryTokenRepository) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for t, exp := range r.tokens {
		if !exp.After(now) {
			delete(r.tokens, t)
		}
	}
	r.tokens[token] = expiresAt
	return nil
}

func (r *MemoryTokenRepository) IsRevoked(_ context.Context, token string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exp, ok := r.tokens[token]
	return ok && exp.After(time.Now()), nil
}
