package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Rating struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Rating    int                `bson:"rating" json:"rating"`
	Review    string             `bson:"review" json:"review"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Book struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Author      string             `bson:"author" json:"author"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	Category    string             `bson:"category" json:"category"`
	ImageURL    string             `bson:"imageUrl" json:"imageUrl"`
	Stock       int                `bson:"stock" json:"stock"`
	Featured    bool               `bson:"featured" json:"featured"`
	Ratings     []Rating           `bson:"ratings" json:"ratings"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasRatingFrom reports whether userID already rated the book.
func (b *Book) HasRatingFrom(userID primitive.ObjectID) bool {
	for _, r := range b.Ratings {
		if r.User == userID {
			return true
		}
	}
	return false
}

// BookFilter narrows a book listing. Empty fields do not filter.
type BookFilter struct {
	Category string
	Search   string
	Featured *bool
}

// BookUpdate holds the fields an admin may change. Nil fields are left as is.
type BookUpdate struct {
	Title       *string  `json:"title"`
	Author      *string  `json:"author"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	Category    *string  `json:"category"`
	ImageURL    *string  `json:"imageUrl"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
	Featured    *bool    `json:"featured"`
}

// BookSummary is the populated view of a book inside an order.
type BookSummary struct {
	ID       primitive.ObjectID `json:"_id"`
	Title    string             `json:"title"`
	Price    float64            `json:"price"`
	ImageURL string             `json:"imageUrl"`
}

func (b *Book) Summary() *BookSummary {
	return &BookSummary{ID: b.ID, Title: b.Title, Price: b.Price, ImageURL: b.ImageURL}
}
