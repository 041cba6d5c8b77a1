package services

import (
	"bookstore/models"
	"bookstore/repository"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

type orderFixture struct {
	store    *repository.Store
	svc      *OrderService
	listings *countingInvalidator
	user     primitive.ObjectID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	inv := &countingInvalidator{}
	return &orderFixture{
		store:    store,
		svc:      NewOrderService(store.Books, store.Orders, store.Users, inv),
		listings: inv,
		user:     primitive.NewObjectID(),
	}
}

func (f *orderFixture) addBook(t *testing.T, title string, price float64, stock int) *models.Book {
	t.Helper()
	b := &models.Book{Title: title, Author: "Someone", Category: "Fiction", Price: price, Stock: stock}
	require.NoError(t, f.store.Books.Create(context.Background(), b))
	return b
}

func (f *orderFixture) stockOf(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	b, err := f.store.Books.FindByID(context.Background(), id)
	require.NoError(t, err)
	return b.Stock
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var svcErr *Error
	require.True(t, errors.As(err, &svcErr), "expected *services.Error, got %v", err)
	require.Equal(t, kind, svcErr.Kind)
	return svcErr
}

var address = models.ShippingAddress{Street: "1 Bag End", City: "Hobbiton", State: "Shire", ZipCode: "00001", Country: "Middle-earth"}

func TestPlaceOrderComputesTotalAndDecrementsStock(t *testing.T) {
	f := newOrderFixture(t)
	hobbit := f.addBook(t, "The Hobbit", 12.99, 5)
	dune := f.addBook(t, "Dune", 7.5, 4)

	order, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID: f.user,
		Items: []OrderLine{
			{Book: hobbit.ID.Hex(), Quantity: 2},
			{Book: dune.ID.Hex(), Quantity: 3},
		},
		ShippingAddress: address,
	})
	require.NoError(t, err)

	assert.Equal(t, 48.48, order.TotalAmount)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, f.user, order.UserID)
	assert.Equal(t, address, order.ShippingAddress)
	assert.Equal(t, []models.OrderItem{
		{BookID: hobbit.ID, Quantity: 2, Price: 12.99},
		{BookID: dune.ID, Quantity: 3, Price: 7.5},
	}, order.Items)

	assert.Equal(t, 3, f.stockOf(t, hobbit.ID))
	assert.Equal(t, 1, f.stockOf(t, dune.ID))
	assert.Equal(t, 1, f.listings.calls)

	stored, err := f.store.Orders.FindByUser(context.Background(), order.UserID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, order.TotalAmount, stored[0].TotalAmount)
}

func TestPlaceOrderTotalMatchesLineSum(t *testing.T) {
	prices := []float64{0.1, 0.2, 19.99, 3.33, 100}
	for qty := 1; qty <= 4; qty++ {
		f := newOrderFixture(t)
		var lines []OrderLine
		want := 0.0
		for _, p := range prices {
			b := f.addBook(t, "Book", p, 10)
			lines = append(lines, OrderLine{Book: b.ID.Hex(), Quantity: qty})
			want += p * float64(qty)
		}

		order, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{UserID: f.user, Items: lines})
		require.NoError(t, err)
		assert.InDelta(t, want, order.TotalAmount, 1e-9)

		sum := 0.0
		for _, it := range order.Items {
			sum += it.Price * float64(it.Quantity)
		}
		assert.InDelta(t, sum, order.TotalAmount, 1e-9)
	}
}

func TestPlaceOrderRejectsEmptyItems(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{UserID: f.user})
	e := requireKind(t, err, KindValidation)
	assert.Equal(t, "No order items", e.Message)
}

func TestPlaceOrderOutOfStockLeavesStockUnchanged(t *testing.T) {
	f := newOrderFixture(t)
	book := f.addBook(t, "Dune", 10, 0)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID: f.user,
		Items:  []OrderLine{{Book: book.ID.Hex(), Quantity: 1}},
	})
	e := requireKind(t, err, KindValidation)
	assert.Equal(t, "Dune is out of stock", e.Message)
	assert.Equal(t, 0, f.stockOf(t, book.ID))
	assert.Zero(t, f.listings.calls)

	orders, err := f.store.Orders.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderUnknownBook(t *testing.T) {
	f := newOrderFixture(t)
	missing := primitive.NewObjectID().Hex()

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID: f.user,
		Items:  []OrderLine{{Book: missing, Quantity: 1}},
	})
	e := requireKind(t, err, KindNotFound)
	assert.Equal(t, "Book not found: "+missing, e.Message)

	_, err = f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID: f.user,
		Items:  []OrderLine{{Book: "not-an-id", Quantity: 1}},
	})
	requireKind(t, err, KindNotFound)
}

func TestPlaceOrderRejectsNonPositiveQuantity(t *testing.T) {
	f := newOrderFixture(t)
	book := f.addBook(t, "Dune", 10, 3)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID: f.user,
		Items:  []OrderLine{{Book: book.ID.Hex(), Quantity: 0}},
	})
	requireKind(t, err, KindValidation)
	assert.Equal(t, 3, f.stockOf(t, book.ID))
}

func TestPlaceOrderKeepsEarlierDecrementsOnLaterFailure(t *testing.T) {
	f := newOrderFixture(t)
	first := f.addBook(t, "The Hobbit", 10, 5)
	second := f.addBook(t, "Dune", 10, 1)

	_, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID: f.user,
		Items: []OrderLine{
			{Book: first.ID.Hex(), Quantity: 2},
			{Book: second.ID.Hex(), Quantity: 2},
		},
	})
	requireKind(t, err, KindValidation)

	assert.Equal(t, 3, f.stockOf(t, first.ID))
	assert.Equal(t, 1, f.stockOf(t, second.ID))
	assert.Equal(t, 1, f.listings.calls)
}

func TestPlaceOrderResubmissionDecrementsAgain(t *testing.T) {
	f := newOrderFixture(t)
	book := f.addBook(t, "Dune", 10, 5)
	in := PlaceOrderInput{UserID: f.user, Items: []OrderLine{{Book: book.ID.Hex(), Quantity: 2}}}

	first, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, f.stockOf(t, book.ID))
}

func TestUpdateStatus(t *testing.T) {
	f := newOrderFixture(t)
	book := f.addBook(t, "Dune", 10, 5)
	order, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID: f.user,
		Items:  []OrderLine{{Book: book.ID.Hex(), Quantity: 1}},
	})
	require.NoError(t, err)

	for _, status := range []models.OrderStatus{models.StatusShipped, models.StatusPending, models.StatusDelivered, models.StatusProcessing} {
		updated, err := f.svc.UpdateStatus(context.Background(), order.ID.Hex(), status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	_, err = f.svc.UpdateStatus(context.Background(), order.ID.Hex(), "Lost")
	requireKind(t, err, KindValidation)

	_, err = f.svc.UpdateStatus(context.Background(), primitive.NewObjectID().Hex(), models.StatusShipped)
	e := requireKind(t, err, KindNotFound)
	assert.Equal(t, "Order not found", e.Message)
}

func TestOrderListingsPopulate(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	buyer := &models.User{Name: "Bilbo", Email: "bilbo@example.com", Role: models.RoleCustomer}
	require.NoError(t, f.store.Users.Create(ctx, buyer))
	other := primitive.NewObjectID()

	kept := f.addBook(t, "The Hobbit", 10, 5)
	gone := f.addBook(t, "Dune", 8, 5)

	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: buyer.ID,
		Items:  []OrderLine{{Book: kept.ID.Hex(), Quantity: 1}, {Book: gone.ID.Hex(), Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, PlaceOrderInput{UserID: other, Items: []OrderLine{{Book: kept.ID.Hex(), Quantity: 1}}})
	require.NoError(t, err)
	require.NoError(t, f.store.Books.Delete(ctx, gone.ID))

	mine, err := f.svc.MyOrders(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, buyer.ID, mine[0].User)
	require.Len(t, mine[0].Items, 2)
	assert.Equal(t, kept.Summary(), mine[0].Items[0].Book)
	assert.Equal(t, gone.ID, mine[0].Items[1].Book)

	all, err := f.svc.AllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	var sawSummary, sawBareID bool
	for _, o := range all {
		switch u := o.User.(type) {
		case *models.UserSummary:
			sawSummary = true
			assert.Equal(t, "Bilbo", u.Name)
			assert.Equal(t, "bilbo@example.com", u.Email)
		case primitive.ObjectID:
			sawBareID = true
			assert.Equal(t, other, u)
		}
	}
	assert.True(t, sawSummary)
	assert.True(t, sawBareID)
}
