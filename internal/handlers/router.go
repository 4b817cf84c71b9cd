package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telemedhq/telemed-api/internal/auth"
	"github.com/telemedhq/telemed-api/internal/middleware"
	"github.com/telemedhq/telemed-api/internal/models"
)

// NewRouter assembles the gin engine: logging, recovery, CORS and every
// role-scoped route.
func NewRouter(
	logger *zap.Logger,
	h *Handler,
	tokens *auth.TokenManager,
	accounts middleware.AccountLoader,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(logger), recovery(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	if len(allowedOrigins) > 0 {
		corsCfg.AllowOrigins = allowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		respondOK(c, "OK", gin.H{"time": time.Now().UTC().Format(time.RFC3339)})
	})

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/doctor/register", h.Register(models.RoleDoctor))
		authRoutes.POST("/doctor/login", h.Login(models.RoleDoctor))
		authRoutes.POST("/doctor/google", h.GoogleLogin(models.RoleDoctor))

		authRoutes.POST("/patient/register", h.Register(models.RolePatient))
		authRoutes.POST("/patient/login", h.Login(models.RolePatient))
		authRoutes.POST("/patient/google", h.GoogleLogin(models.RolePatient))
	}

	authenticated := middleware.Authenticate(tokens, accounts)

	doctor := r.Group("/doctor")
	{
		doctor.GET("/list", h.ListDoctors)
		doctor.GET("/me", authenticated, middleware.RequireRole(models.RoleDoctor), h.DoctorMe)
		doctor.PUT("/onboarding/update", authenticated, middleware.RequireRole(models.RoleDoctor), h.UpdateDoctorOnboarding)
	}

	patient := r.Group("/patient")
	{
		patient.GET("/me", authenticated, middleware.RequireRole(models.RolePatient), h.PatientMe)
		patient.PUT("/onboarding/update", authenticated, middleware.RequireRole(models.RolePatient), h.UpdatePatientOnboarding)
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// recovery converts a panic anywhere below into the uniform 500 envelope
// instead of leaking a stack trace to the client.
func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		logger.Error("panic recovered", zap.Any("error", err), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal Server Error",
		})
	})
}
