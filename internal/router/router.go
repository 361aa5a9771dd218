package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/fleetverify-backend/config"
	"github.com/ikkim/fleetverify-backend/internal/app/controller"
	"github.com/ikkim/fleetverify-backend/internal/middleware"
	"github.com/ikkim/fleetverify-backend/pkg/util"
)

type Router struct {
	verificationController *controller.VerificationController
	kycController          *controller.KycController
	documentController     *controller.DocumentController
	reviewFeedController   *controller.ReviewFeedController
	authMiddleware         *middleware.AuthMiddleware
	throttle               *middleware.Throttle
	config                 *config.Config
}

func NewRouter(
	verificationController *controller.VerificationController,
	kycController *controller.KycController,
	documentController *controller.DocumentController,
	reviewFeedController *controller.ReviewFeedController,
	authMiddleware *middleware.AuthMiddleware,
	throttle *middleware.Throttle,
	cfg *config.Config,
) *Router {
	return &Router{
		verificationController: verificationController,
		kycController:          kycController,
		documentController:     documentController,
		reviewFeedController:   reviewFeedController,
		authMiddleware:         authMiddleware,
		throttle:               throttle,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "FleetVerify API is running",
		})
	})

	v1 := router.Group("/api/v1", r.throttle.Middleware())
	{
		kyc := v1.Group("/kyc/:driver_id/steps/:step")
		{
			kyc.GET("/check", r.kycController.CheckStep)
			kyc.POST("", r.kycController.SubmitStep)
		}

		admin := v1.Group("/admin",
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole(util.RoleReviewer, util.RoleAdmin),
		)
		{
			drivers := admin.Group("/drivers/:id")
			{
				drivers.POST("/verify", r.verificationController.Verify)
				drivers.POST("/verification/approve", r.verificationController.Approve)
				drivers.POST("/verification/reject", r.verificationController.Reject)
				drivers.POST("/verification/retry", r.verificationController.Retry)
				drivers.GET("/verification/report", r.verificationController.Report)
				drivers.GET("/verification/attempts", r.verificationController.Attempts)

				drivers.GET("/kyc", r.kycController.Status)
				drivers.POST("/kyc/approve", r.kycController.Approve)
				drivers.POST("/kyc/reject", r.kycController.Reject)

				drivers.POST("/documents/upload-url", r.documentController.UploadURL)
			}

			verifications := admin.Group("/verifications")
			{
				verifications.GET("/queue", r.verificationController.Queue)
				verifications.GET("/export", r.verificationController.Export)
				verifications.POST("/bulk-approve",
					r.authMiddleware.RequireRole(util.RoleAdmin),
					r.verificationController.BulkApprove,
				)
			}

			if r.reviewFeedController != nil {
				admin.GET("/ws/review-feed", r.reviewFeedController.Connect)
			}
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, X-Timezone")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
