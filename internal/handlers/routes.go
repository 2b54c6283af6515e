package handlers

import (
	"github.com/farmconnect/contracts-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Register mounts every route under v1
func (h *Handlers) Register(v1 *gin.RouterGroup, jwtSecret string) {
	// Health check (public)
	v1.GET("/health", h.Health.Index)

	// Protected routes (requires authentication)
	protected := v1.Group("")
	protected.Use(middleware.Auth(jwtSecret))
	{
		// Admin-only routes
		admin := protected.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/users/:user_id", h.User.Show)
			admin.PUT("/users/:user_id", h.User.Upsert)
			admin.POST("/users/:user_id/verify", h.User.SetVerified)

			admin.DELETE("/contracts/:contract_id", h.Contract.Delete)
			admin.POST("/contracts/:contract_id/expire", h.Contract.Expire)

			admin.GET("/jobs/status", h.Job.Status)
			admin.POST("/jobs/expire_tenders", h.Job.ExpireTenders)
		}

		contracts := protected.Group("/contracts")
		{
			contracts.GET("", h.Contract.Index)
			contracts.POST("", h.Contract.Create)
			contracts.GET("/:contract_id", h.Contract.Show)
			contracts.POST("/:contract_id/publish", h.Contract.Publish)
			contracts.PUT("/:contract_id/status", h.Contract.UpdateStatus)
			contracts.GET("/:contract_id/audits", h.Audit.Index)
			contracts.GET("/:contract_id/chat", h.Chat.Messages)

			// Bidding
			contracts.GET("/:contract_id/bids", h.Bid.Index)
			contracts.POST("/:contract_id/bids", h.Bid.Create)
			contracts.POST("/:contract_id/bids/:bid_id/accept", h.Bid.Accept)
			contracts.POST("/:contract_id/bids/:bid_id/reject", h.Bid.Reject)

			// Ledger
			contracts.GET("/:contract_id/deliveries", h.Ledger.Deliveries)
			contracts.POST("/:contract_id/deliveries", h.Ledger.AddDelivery)
			contracts.PATCH("/:contract_id/deliveries/:delivery_id", h.Ledger.UpdateDelivery)
			contracts.GET("/:contract_id/payments", h.Ledger.Payments)
			contracts.POST("/:contract_id/payments", h.Ledger.AddPayment)
			contracts.PATCH("/:contract_id/payments/:payment_id", h.Ledger.UpdatePayment)
			contracts.GET("/:contract_id/summary", h.Ledger.Summary)
			contracts.GET("/:contract_id/ledger.xlsx", h.Ledger.ExportXLSX)
			contracts.GET("/:contract_id/ledger.csv", h.Ledger.ExportCSV)
		}
	}
}
