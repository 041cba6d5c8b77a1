package services

import (
	"bookstore/metrics"
	"bookstore/models"
	"bookstore/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const msgOrderNotFound = "Order not found"

// ListingInvalidator is told when book stock changed.
type ListingInvalidator interface {
	Invalidate(ctx context.Context)
}

type OrderLine struct {
	Book     string
	Quantity int
}

type PlaceOrderInput struct {
	UserID          primitive.ObjectID
	Items           []OrderLine
	ShippingAddress models.ShippingAddress
}

type OrderService struct {
	books    repository.BookRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
	listings ListingInvalidator
	now      func() time.Time
}

func NewOrderService(books repository.BookRepository, orders repository.OrderRepository, users repository.UserRepository, listings ListingInvalidator) *OrderService {
	return &OrderService{books: books, orders: orders, users: users, listings: listings, now: time.Now}
}

// PlaceOrder checks and decrements stock item by item, then stores the order.
//
// Stock is written as soon as an item passes its check. A later item that
// fails leaves the earlier decrements in place, and nothing stops two
// concurrent orders from both passing the check for the same book.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		metrics.RecordOrderFailure("empty")
		return nil, validation("No order items")
	}

	stockChanged := false
	defer func() {
		if stockChanged && s.listings != nil {
			s.listings.Invalidate(ctx)
		}
	}()

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		if line.Quantity <= 0 {
			metrics.RecordOrderFailure("invalid_quantity")
			return nil, validation("Invalid quantity for book %s", line.Book)
		}

		book, err := s.lookupBook(ctx, line.Book)
		if err != nil {
			return nil, err
		}
		if book.Stock < line.Quantity {
			metrics.RecordOrderFailure("out_of_stock")
			return nil, validation("%s is out of stock", book.Title)
		}

		total = total.Add(decimal.NewFromFloat(book.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))

		if err := s.books.SetStock(ctx, book.ID, book.Stock-line.Quantity); err != nil {
			metrics.RecordOrderFailure("error")
			return nil, fmt.Errorf("decrement stock of %s: %w", book.ID.Hex(), err)
		}
		stockChanged = true

		items = append(items, models.OrderItem{
			BookID:   book.ID,
			Quantity: line.Quantity,
			Price:    book.Price,
		})
	}

	now := s.now()
	order := &models.Order{
		ID:              primitive.NewObjectID(),
		UserID:          in.UserID,
		Items:           items,
		TotalAmount:     total.InexactFloat64(),
		ShippingAddress: in.ShippingAddress,
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		metrics.RecordOrderFailure("error")
		return nil, fmt.Errorf("create order: %w", err)
	}

	metrics.RecordOrderPlaced()
	return order, nil
}

func (s *OrderService) lookupBook(ctx context.Context, id string) (*models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		metrics.RecordOrderFailure("not_found")
		return nil, notFound("Book not found: %s", id)
	}
	book, err := s.books.FindByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordOrderFailure("not_found")
		return nil, notFound("Book not found: %s", id)
	}
	if err != nil {
		metrics.RecordOrderFailure("error")
		return nil, fmt.Errorf("find book %s: %w", id, err)
	}
	return book, nil
}

// MyOrders returns the user's orders with each line's book populated.
func (s *OrderService) MyOrders(ctx context.Context, userID primitive.ObjectID) ([]models.OrderView, error) {
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find orders of %s: %w", userID.Hex(), err)
	}
	return s.populate(ctx, orders, false)
}

// AllOrders returns every order with users and books populated.
func (s *OrderService) AllOrders(ctx context.Context) ([]models.OrderView, error) {
	orders, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	return s.populate(ctx, orders, true)
}

func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, validation("Invalid status value")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound(msgOrderNotFound)
	}
	order, err := s.orders.UpdateStatus(ctx, oid, status)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(msgOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}
	return order, nil
}

func (s *OrderService) populate(ctx context.Context, orders []models.Order, withUsers bool) ([]models.OrderView, error) {
	bookIDs := map[primitive.ObjectID]struct{}{}
	userIDs := map[primitive.ObjectID]struct{}{}
	for _, o := range orders {
		userIDs[o.UserID] = struct{}{}
		for _, it := range o.Items {
			bookIDs[it.BookID] = struct{}{}
		}
	}

	books, err := s.books.FindByIDs(ctx, keys(bookIDs))
	if err != nil {
		return nil, fmt.Errorf("populate books: %w", err)
	}
	bookByID := make(map[primitive.ObjectID]*models.BookSummary, len(books))
	for i := range books {
		bookByID[books[i].ID] = books[i].Summary()
	}

	userByID := map[primitive.ObjectID]*models.UserSummary{}
	if withUsers {
		users, err := s.users.FindByIDs(ctx, keys(userIDs))
		if err != nil {
			return nil, fmt.Errorf("populate users: %w", err)
		}
		for i := range users {
			userByID[users[i].ID] = users[i].Summary()
		}
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		view := models.OrderView{
			ID:              o.ID,
			User:            o.UserID,
			Items:           make([]models.OrderItemView, 0, len(o.Items)),
			TotalAmount:     o.TotalAmount,
			ShippingAddress: o.ShippingAddress,
			Status:          o.Status,
			CreatedAt:       o.CreatedAt,
			UpdatedAt:       o.UpdatedAt,
		}
		if u, ok := userByID[o.UserID]; ok {
			view.User = u
		}
		for _, it := range o.Items {
			item := models.OrderItemView{Book: it.BookID, Quantity: it.Quantity, Price: it.Price}
			if b, ok := bookByID[it.BookID]; ok {
				item.Book = b
			}
			view.Items = append(view.Items, item)
		}
		views = append(views, view)
	}
	return views, nil
}

func keys(set map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
