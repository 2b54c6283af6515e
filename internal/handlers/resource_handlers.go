package handlers

import (
	"net/http"
	"time"

	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/gin-gonic/gin"
)

// ============================================================================
// HEALTH HANDLER
// ============================================================================

type HealthHandler struct {
	started time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now()}
}

// Index reports liveness
// @Summary Health Check
// @Description Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}

// ============================================================================
// AUDIT HANDLER
// ============================================================================

type AuditHandler struct {
	auditService    *services.AuditService
	contractService *services.ContractService
}

func NewAuditHandler(auditService *services.AuditService, contractService *services.ContractService) *AuditHandler {
	return &AuditHandler{auditService: auditService, contractService: contractService}
}

// Index returns the audit trail of a contract the caller can see
// @Summary List Audit Logs
// @Description Audit trail of a contract the caller can see
// @Tags Audits
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	contractID := c.Param("contract_id")
	if _, err := h.contractService.GetContract(c.Request.Context(), contractID, actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	logs, err := h.auditService.List(c.Request.Context(), contractID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": logs, "total": len(logs)})
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

type ChatHandler struct {
	chatService     *services.ChatService
	contractService *services.ContractService
}

func NewChatHandler(chatService *services.ChatService, contractService *services.ContractService) *ChatHandler {
	return &ChatHandler{chatService: chatService, contractService: contractService}
}

// Messages lists the messages of the contract's chat channel. Only the
// parties and admins can read it.
// @Summary List Chat Messages
// @Description Messages of the contract's chat channel (parties and admins)
// @Tags Chat
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/chat [get]
func (h *ChatHandler) Messages(c *gin.Context) {
	actor := actorFrom(c)
	contract, err := h.contractService.GetContract(c.Request.Context(), c.Param("contract_id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	if !contract.IsParty(actor.ID) && !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the contract parties can read its chat", "kind": services.KindAuthorization})
		return
	}
	if contract.ChatID == "" {
		c.JSON(http.StatusOK, gin.H{"chatId": "", "messages": []interface{}{}})
		return
	}

	messages, err := h.chatService.Messages(c.Request.Context(), contract.ChatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatId": contract.ChatID, "messages": messages})
}
