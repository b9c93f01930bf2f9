package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"ereft/internal/infra/config"
	"ereft/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	BulkUpsert(c *gin.Context)
	SetDate(c *gin.Context)
	RemoveDate(c *gin.Context)
	ListRules(c *gin.Context)
	CreateRule(c *gin.Context)
	UpdateRule(c *gin.Context)
	DeleteRule(c *gin.Context)
}

type BookingHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	UpdateStatus(c *gin.Context)
}

type PropertyHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Delete(c *gin.Context)
}

type Handlers struct {
	Availability   AvailabilityHTTP
	Booking        BookingHTTP
	Property       PropertyHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Property != nil {
		api.POST("/properties", h.Property.Create)
		api.GET("/properties/:id", h.Property.Get)
		api.DELETE("/properties/:id", h.Property.Delete)
	}
	if h.Availability != nil {
		api.GET("/properties/:id/availability", h.Availability.Calendar)
		api.POST("/properties/:id/availability", h.Availability.BulkUpsert)
		api.PUT("/properties/:id/availability/:date", h.Availability.SetDate)
		api.DELETE("/properties/:id/availability/:date", h.Availability.RemoveDate)
		api.GET("/properties/:id/availability-rules", h.Availability.ListRules)
		api.POST("/properties/:id/availability-rules", h.Availability.CreateRule)
		api.PATCH("/availability-rules/:ruleID", h.Availability.UpdateRule)
		api.DELETE("/availability-rules/:ruleID", h.Availability.DeleteRule)
	}
	if h.Booking != nil {
		api.POST("/properties/:id/bookings", h.Booking.Create)
		api.GET("/properties/:id/bookings", h.Booking.List)
		api.GET("/bookings/:bookingID", h.Booking.Get)
		api.PUT("/bookings/:bookingID/status", h.Booking.UpdateStatus)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

var _ AvailabilityHTTP = AvailabilityHandler{}
var _ BookingHTTP = BookingHandler{}
var _ PropertyHTTP = PropertyHandler{}
