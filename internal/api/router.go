package api

import (
	"net/http"

	"taxi-booking/internal/api/middleware"
	"taxi-booking/internal/modules/booking"
	"taxi-booking/internal/modules/events"
	"taxi-booking/internal/modules/geocoding"
	"taxi-booking/internal/modules/notify"
	"taxi-booking/internal/modules/orders"
	"taxi-booking/internal/modules/payments"
	"taxi-booking/internal/modules/profiles"
	"taxi-booking/internal/modules/routing"

	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Profiles  *profiles.Handler
	Geocoding *geocoding.Handler
	Routing   *routing.Handler
	Booking   *booking.Handler
	Orders    *orders.Handler
	Payments  *payments.CallbackHandler
	Email     *notify.EmailHandler
	Stream    *events.StreamHandler
}

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(e *echo.Echo, h Handlers, roles middleware.RoleLookup, jwtSecret string) {
	// Initialize the JWT authentication middleware
	authMiddleware := middleware.JWTMAuth(jwtSecret)
	optionalAuth := middleware.OptionalJWTAuth(jwtSecret)
	loadRole := middleware.LoadRole(roles)
	// Initialize an Admin role authorization middleware
	adminRequired := middleware.AdminRequired()

	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to the taxi booking API!"})
	})
	e.GET("/login", h.Profiles.LoginPage)

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/signup", h.Profiles.Signup)
		authGroup.POST("/login", h.Profiles.Login)
		authGroup.POST("/logout", h.Profiles.Logout)
		authGroup.GET("/google/login", h.Profiles.GoogleLogin)
		authGroup.GET("/google/callback", h.Profiles.GoogleCallback)
		authGroup.GET("/me", h.Profiles.GetMe, authMiddleware)
	}

	apiGroup := e.Group("/api")
	{
		apiGroup.GET("/health", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "Server is running"})
		})

		apiGroup.GET("/geocode/search", h.Geocoding.Search)
		apiGroup.GET("/geocode/reverse", h.Geocoding.Reverse)
		apiGroup.POST("/quote", h.Routing.Quote)

		apiGroup.POST("/send-email", h.Email.SendEmail)
		apiGroup.POST("/gopay-callback", h.Payments.HandleCallback)
		apiGroup.GET("/payment-result", h.Orders.PaymentResult)
	}

	// --- Booking flow ---
	bookingGroup := apiGroup.Group("/bookings", optionalAuth, loadRole)
	{
		bookingGroup.POST("", h.Booking.CreateDraft)
		bookingGroup.GET("/:id", h.Booking.GetDraft)
		bookingGroup.GET("/:id/suggest/:which", h.Booking.Suggest)
		bookingGroup.PUT("/:id/endpoints/:which", h.Booking.SetEndpoint)
		bookingGroup.POST("/:id/route", h.Booking.ComputeRoute)
		bookingGroup.PUT("/:id/details", h.Booking.SetDetails)
		bookingGroup.GET("/:id/summary", h.Booking.Summary)
		bookingGroup.POST("/:id/submit", h.Booking.Submit)
	}

	// --- Order Routes ---
	orderGroup := apiGroup.Group("/orders")
	{
		orderGroup.POST("", h.Orders.CreateOrder, optionalAuth, loadRole)
		orderGroup.GET("", h.Orders.ListOrders, authMiddleware, loadRole)
		orderGroup.GET("/:orderId", h.Orders.GetOrder, optionalAuth, loadRole)
	}

	// --- Admin Routes ---
	// The dashboard page redirects to the login page instead of answering 401.
	e.GET("/admin", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Admin dashboard"})
	}, middleware.PageAuth(jwtSecret), loadRole, adminRequired)

	adminGroup := e.Group("/admin", authMiddleware, loadRole, adminRequired)
	{
		adminGroup.GET("/orders", h.Orders.AdminListOrders)
		adminGroup.GET("/orders/stream", h.Stream.HandleStream)
		adminGroup.GET("/orders/:orderId", h.Orders.AdminGetOrder)
		adminGroup.PUT("/orders/:orderId/status", h.Orders.AdminUpdateStatus)
		adminGroup.DELETE("/orders/:orderId", h.Orders.AdminDeleteOrder)
	}
}
