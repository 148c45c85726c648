package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taxi-booking/internal/api"
	"taxi-booking/internal/config"
	"taxi-booking/internal/modules/booking"
	"taxi-booking/internal/modules/events"
	"taxi-booking/internal/modules/geocoding"
	"taxi-booking/internal/modules/notify"
	"taxi-booking/internal/modules/orders"
	"taxi-booking/internal/modules/payments"
	"taxi-booking/internal/modules/profiles"
	"taxi-booking/internal/modules/routing"
	"taxi-booking/migrations"
	"taxi-booking/pkg/email"
	"taxi-booking/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// 1. --- Configuration ---
	// Load application configuration from app.env and environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	e := echo.New()
	e.Validator = utils.GetValidator()

	// 2. --- Middleware ---
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"http://localhost:5173", cfg.ClientOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// 3. --- Database Connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database configuration: %v", err)
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v\n", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}
	e.Logger.Info("Successfully connected to the database!")

	if cfg.AutoMigrate {
		if err := migrations.Apply(context.Background(), dbPool); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	// 4. --- External services ---
	var transports []email.ServiceInterface
	if cfg.AWSRegion != "" && cfg.FromEmail != "" {
		sesSender, err := email.NewSESV2Sender(context.Background(), cfg.AWSRegion, cfg.FromEmail)
		if err != nil {
			log.Printf("SES disabled: %v", err)
		} else {
			transports = append(transports, sesSender)
		}
	}
	if cfg.SMTPHost != "" {
		smtpSender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromEmail)
		if err != nil {
			log.Printf("SMTP disabled: %v", err)
		} else {
			transports = append(transports, smtpSender)
		}
	}
	emailSender := email.NewFallbackSender(transports...)

	templates, err := email.NewTemplateManager()
	if err != nil {
		log.Fatalf("Failed to load email templates: %v", err)
	}

	var alerter notify.Alerter
	if cfg.TelegramToken != "" && cfg.TelegramAdminChatID != 0 {
		tg, err := notify.NewTelegramAlerter(cfg.TelegramToken, cfg.TelegramAdminChatID)
		if err != nil {
			log.Printf("Telegram alerts disabled: %v", err)
		} else {
			alerter = tg
		}
	}

	hub := events.NewHub(32)
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Printf("RabbitMQ publishing disabled: %v", err)
		} else {
			stopForward := hub.Forward(amqpPublisher.Send)
			defer amqpPublisher.Close()
			defer stopForward()
		}
	}

	var gateway payments.Gateway
	switch cfg.PaymentMode {
	case config.PaymentModeGoPay:
		gateway = payments.NewGoPayGateway(context.Background(), payments.GoPayConfig{
			APIURL:          cfg.GoPayAPIURL,
			ClientID:        cfg.GoPayClientID,
			ClientSecret:    cfg.GoPayClientSecret,
			GoID:            cfg.GoPayGoID,
			ClientOrigin:    cfg.ClientOrigin,
			NotificationURL: cfg.GoPayNotificationURL,
		})
	default:
		gateway = payments.NewMockGateway(cfg.ClientOrigin, cfg.MockPaymentStatus, nil)
	}

	var googleOAuthConfig *oauth2.Config
	if cfg.GoogleClientID != "" {
		googleOAuthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		}
	}

	// 5. --- Dependency Injection (Wiring everything up) ---
	// --- Profiles Module ---
	profileRepo := profiles.NewRepository(dbPool)
	profileService := profiles.NewService(profileRepo, cfg.JWTSecret, cfg.ClientOrigin, googleOAuthConfig)
	profileHandler := profiles.NewHandler(profileService)

	// --- Maps ---
	geocoder := geocoding.NewNominatim(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderLimit)
	router := routing.NewOSRMService(cfg.RouterURL)
	quoter := routing.NewQuoter(geocoder, router, cfg.PriceRatePerKm, cfg.Currency)

	// --- Notifications ---
	dispatcher := notify.NewDispatcher(emailSender, templates, alerter, notify.Config{
		AdminEmail:   cfg.AdminEmail,
		FromEmail:    cfg.FromEmail,
		Currency:     cfg.Currency,
		ClientOrigin: cfg.ClientOrigin,
	})

	// --- Orders Module ---
	orderRepo := orders.NewRepository(dbPool)
	orderService := orders.NewService(orderRepo, gateway, dispatcher, hub, orders.Options{
		Router:       router,
		RatePerKm:    cfg.PriceRatePerKm,
		Currency:     cfg.Currency,
		ClientOrigin: cfg.ClientOrigin,
		Access:       orders.AccessPolicy{AnonymousRead: cfg.AnonymousRead},
	})

	// --- Booking Module ---
	bookingService := booking.NewService(geocoder, quoter, orderService, cfg.BookingDraftTTL)

	// 6. --- Initialize Router ---
	api.SetupRoutes(e, api.Handlers{
		Profiles:  profileHandler,
		Geocoding: geocoding.NewHandler(geocoder),
		Routing:   routing.NewHandler(quoter),
		Booking:   booking.NewHandler(bookingService),
		Orders:    orders.NewHandler(orderService),
		Payments:  payments.NewCallbackHandler(gateway, orderService),
		Email:     notify.NewEmailHandler(emailSender),
		Stream:    events.NewStreamHandler(hub, cfg.ClientOrigin),
	}, profileService, cfg.JWTSecret)

	// 7. --- Start Server with graceful shutdown logic ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server an error occurred:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exiting")
}
