package controllers

import (
	"bookstore/middleware"
	"bookstore/models"
	"bookstore/services"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderController struct {
	orders *services.OrderService
	log    *zap.Logger
}

func NewOrderController(orders *services.OrderService, log *zap.Logger) *OrderController {
	return &OrderController{orders: orders, log: log}
}

type orderItemRequest struct {
	Book     string `json:"book" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type placeOrderRequest struct {
	Items           []orderItemRequest     `json:"items" binding:"dive"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

func (oc *OrderController) PlaceOrder(c *gin.Context) {
	var body placeOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Each order item needs a book and a positive quantity")
		return
	}

	lines := make([]services.OrderLine, 0, len(body.Items))
	for _, it := range body.Items {
		lines = append(lines, services.OrderLine{Book: it.Book, Quantity: it.Quantity})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	order, err := oc.orders.PlaceOrder(ctx, services.PlaceOrderInput{
		UserID:          middleware.CurrentUserID(c),
		Items:           lines,
		ShippingAddress: body.ShippingAddress,
	})
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (oc *OrderController) MyOrders(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	orders, err := oc.orders.MyOrders(ctx, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (oc *OrderController) AllOrders(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	orders, err := oc.orders.AllOrders(ctx)
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := oc.orders.UpdateStatus(ctx, c.Param("id"), body.Status)
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
