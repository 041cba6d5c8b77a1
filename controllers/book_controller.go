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

type BookController struct {
	books *services.BookService
	log   *zap.Logger
}

func NewBookController(books *services.BookService, log *zap.Logger) *BookController {
	return &BookController{books: books, log: log}
}

type createBookRequest struct {
	Title       string  `json:"title" binding:"required"`
	Author      string  `json:"author" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"gte=0"`
	Category    string  `json:"category" binding:"required"`
	ImageURL    string  `json:"imageUrl"`
	Stock       int     `json:"stock" binding:"gte=0"`
	Featured    bool    `json:"featured"`
}

type reviewRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review"`
}

func (bc *BookController) ListBooks(c *gin.Context) {
	filter := models.BookFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	// only featured=true filters; any other value lists everything
	if c.Query("featured") == "true" {
		featured := true
		filter.Featured = &featured
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	books, err := bc.books.List(ctx, filter)
	if err != nil {
		respondError(c, bc.log, err)
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.JSON(http.StatusOK, books)
}

func (bc *BookController) GetBook(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := bc.books.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, bc.log, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (bc *BookController) CreateBook(c *gin.Context) {
	var body createBookRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Title, author, category and a non-negative price and stock are required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := bc.books.Create(ctx, &models.Book{
		Title:       body.Title,
		Author:      body.Author,
		Description: body.Description,
		Price:       body.Price,
		Category:    body.Category,
		ImageURL:    body.ImageURL,
		Stock:       body.Stock,
		Featured:    body.Featured,
	})
	if err != nil {
		respondError(c, bc.log, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (bc *BookController) UpdateBook(c *gin.Context) {
	var body models.BookUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := bc.books.Update(ctx, c.Param("id"), body)
	if err != nil {
		respondError(c, bc.log, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (bc *BookController) DeleteBook(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := bc.books.Delete(ctx, c.Param("id")); err != nil {
		respondError(c, bc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book removed"})
}

func (bc *BookController) AddReview(c *gin.Context) {
	var body reviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Rating must be between 1 and 5")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	err := bc.books.AddReview(ctx, c.Param("id"), middleware.CurrentUserID(c), body.Rating, body.Review)
	if err != nil {
		respondError(c, bc.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review added"})
}
