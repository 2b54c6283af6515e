package handlers

import (
	"fmt"
	"net/http"

	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	ledgerService *services.LedgerService
	exportService *services.ExportService
}

func NewLedgerHandler(ledgerService *services.LedgerService, exportService *services.ExportService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService, exportService: exportService}
}

// Deliveries lists the contract's deliveries
// @Summary List Deliveries
// @Description List the deliveries recorded on a contract
// @Tags Ledger
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/deliveries [get]
func (h *LedgerHandler) Deliveries(c *gin.Context) {
	deliveries, err := h.ledgerService.ListDeliveries(c.Request.Context(), c.Param("contract_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": deliveries})
}

// AddDelivery records a delivery
// @Summary Add Delivery
// @Description Record a delivery on an active contract
// @Tags Ledger
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Param request body services.DeliveryInput true "Delivery Data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/deliveries [post]
func (h *LedgerHandler) AddDelivery(c *gin.Context) {
	var in services.DeliveryInput
	if err := bindEnvelope(c, "delivery", &in); err != nil {
		badRequest(c, "invalid delivery payload: "+err.Error())
		return
	}
	delivery, err := h.ledgerService.AddDelivery(c.Request.Context(), c.Param("contract_id"), actorFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"delivery": delivery})
}

type deliveryStatusRequest struct {
	Status string `json:"status" binding:"required"`
	services.DeliveryMetadata
}

// UpdateDelivery sets a delivery's status and merges metadata
// @Summary Update Delivery
// @Description Set a delivery's status and merge its metadata
// @Tags Ledger
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Param delivery_id path string true "Delivery ID"
// @Param request body deliveryStatusRequest true "Status Data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/deliveries/{delivery_id} [patch]
func (h *LedgerHandler) UpdateDelivery(c *gin.Context) {
	var req deliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	delivery, err := h.ledgerService.UpdateDeliveryStatus(c.Request.Context(), c.Param("contract_id"),
		c.Param("delivery_id"), actorFrom(c), req.Status, req.DeliveryMetadata)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery": delivery})
}

// Payments lists the contract's payments
// @Summary List Payments
// @Description List the payments recorded on a contract
// @Tags Ledger
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/payments [get]
func (h *LedgerHandler) Payments(c *gin.Context) {
	payments, err := h.ledgerService.ListPayments(c.Request.Context(), c.Param("contract_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// AddPayment records a payment
// @Summary Add Payment
// @Description Record a payment on an active contract
// @Tags Ledger
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Param request body services.PaymentInput true "Payment Data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/payments [post]
func (h *LedgerHandler) AddPayment(c *gin.Context) {
	var in services.PaymentInput
	if err := bindEnvelope(c, "payment", &in); err != nil {
		badRequest(c, "invalid payment payload: "+err.Error())
		return
	}
	payment, err := h.ledgerService.AddPayment(c.Request.Context(), c.Param("contract_id"), actorFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

type paymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
	services.PaymentMetadata
}

// UpdatePayment sets a payment's status and merges metadata
// @Summary Update Payment
// @Description Set a payment's status and merge its metadata
// @Tags Ledger
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Param payment_id path string true "Payment ID"
// @Param request body paymentStatusRequest true "Status Data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/payments/{payment_id} [patch]
func (h *LedgerHandler) UpdatePayment(c *gin.Context) {
	var req paymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	payment, err := h.ledgerService.UpdatePaymentStatus(c.Request.Context(), c.Param("contract_id"),
		c.Param("payment_id"), actorFrom(c), req.Status, req.PaymentMetadata)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// Summary returns progress, payment totals and delivered quantity
// @Summary Ledger Summary
// @Description Progress, payment totals and delivered quantity of a contract
// @Tags Ledger
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/summary [get]
func (h *LedgerHandler) Summary(c *gin.Context) {
	summary, err := h.ledgerService.Summary(c.Request.Context(), c.Param("contract_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// ExportXLSX downloads the ledger workbook
// @Summary Export Ledger (XLSX)
// @Description Download the contract ledger as an Excel workbook
// @Tags Ledger
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param contract_id path string true "Contract ID"
// @Success 200 {file} file
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/ledger.xlsx [get]
func (h *LedgerHandler) ExportXLSX(c *gin.Context) {
	data, filename, err := h.exportService.ExportXLSX(c.Request.Context(), c.Param("contract_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ExportCSV downloads the ledger as CSV
// @Summary Export Ledger (CSV)
// @Description Download the contract ledger as CSV
// @Tags Ledger
// @Produce text/csv
// @Param contract_id path string true "Contract ID"
// @Success 200 {file} file
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/ledger.csv [get]
func (h *LedgerHandler) ExportCSV(c *gin.Context) {
	data, filename, err := h.exportService.ExportCSV(c.Request.Context(), c.Param("contract_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
