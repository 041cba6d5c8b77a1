package routes

import (
	"bookstore/controllers"
	"bookstore/metrics"
	"bookstore/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Dependencies struct {
	Auth        *controllers.AuthController
	Books       *controllers.BookController
	Orders      *controllers.OrderController
	Verifier    middleware.TokenVerifier
	AuthLimiter *middleware.RateLimiter
	Store       controllers.Pinger
	Log         *zap.Logger
}

// NewRouter builds the engine with the shared middleware chain and every
// API route registered.
func NewRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Log),
		middleware.Metrics(),
		middleware.Recovery(d.Log),
	)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})

	r.GET("/healthz", controllers.Health(d.Store, d.Log))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Dependencies) {
	protect := middleware.AuthMiddleware(d.Verifier)
	admin := middleware.AdminMiddleware()

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", d.AuthLimiter.Handler(), d.Auth.Register)
			auth.POST("/login", d.AuthLimiter.Handler(), d.Auth.Login)
			auth.GET("/profile", protect, d.Auth.Profile)
			auth.POST("/logout", protect, d.Auth.Logout)
		}

		books := api.Group("/books")
		{
			books.GET("", d.Books.ListBooks)
			books.GET("/:id", d.Books.GetBook)
			books.POST("", protect, admin, d.Books.CreateBook)
			books.PUT("/:id", protect, admin, d.Books.UpdateBook)
			books.DELETE("/:id", protect, admin, d.Books.DeleteBook)
			books.POST("/:id/reviews", protect, d.Books.AddReview)
		}

		orders := api.Group("/orders")
		{
			orders.POST("", protect, d.Orders.PlaceOrder)
			orders.GET("/myorders", protect, d.Orders.MyOrders)
			orders.GET("", protect, admin, d.Orders.AllOrders)
			orders.PUT("/:id/status", protect, admin, d.Orders.UpdateOrderStatus)
		}
	}
}
