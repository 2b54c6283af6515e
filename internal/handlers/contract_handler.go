package handlers

import (
	"net/http"
	"strings"

	"github.com/farmconnect/contracts-api/internal/models"
	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	contractService *services.ContractService
}

func NewContractHandler(contractService *services.ContractService) *ContractHandler {
	return &ContractHandler{contractService: contractService}
}

// Index lists the contracts the caller is a party to plus open tenders.
// GET /contracts?status=pending&type=farming&tender=true
// @Summary List Contracts
// @Description List the contracts the caller is a party to plus open tenders
// @Tags Contracts
// @Accept json
// @Produce json
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by contract type"
// @Param tender query bool false "Only tenders (true) or only direct contracts (false)"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts [get]
func (h *ContractHandler) Index(c *gin.Context) {
	contracts, err := h.contractService.ListContractsForUser(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	status := c.Query("status")
	contractType := c.Query("type")
	tender := c.Query("tender")

	filtered := make([]*models.Contract, 0, len(contracts))
	for _, contract := range contracts {
		if status != "" && contract.Status != status {
			continue
		}
		if contractType != "" && contract.Type != contractType {
			continue
		}
		if tender != "" && contract.IsTender != (tender == "true") {
			continue
		}
		filtered = append(filtered, contract)
	}

	c.JSON(http.StatusOK, gin.H{"contracts": filtered, "total": len(filtered)})
}

// Show returns one contract with the bids visible to the caller
// @Summary Get Contract
// @Description Get a contract with the bids visible to the caller
// @Tags Contracts
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id} [get]
func (h *ContractHandler) Show(c *gin.Context) {
	contract, err := h.contractService.GetContract(c.Request.Context(), c.Param("contract_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

// Create accepts {"contract": {...}} or the flat contract object
// @Summary Create Contract
// @Description Create a tender or a direct contract with a named second party
// @Tags Contracts
// @Accept json
// @Produce json
// @Param request body services.ContractInput true "Contract Data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts [post]
func (h *ContractHandler) Create(c *gin.Context) {
	var in services.ContractInput
	if err := bindEnvelope(c, "contract", &in); err != nil {
		badRequest(c, "invalid contract payload: "+err.Error())
		return
	}

	contract, err := h.contractService.CreateContract(c.Request.Context(), in, actorFrom(c))
	if err != nil {
		if contract != nil {
			respondPartial(c, err, "contract", contract)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contract": contract})
}

// Publish moves a draft to pending (tender) or active (direct)
// @Summary Publish Contract
// @Description Move a draft contract to pending (tender) or active (direct)
// @Tags Contracts
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/publish [post]
func (h *ContractHandler) Publish(c *gin.Context) {
	contract, err := h.contractService.PublishContract(c.Request.Context(), c.Param("contract_id"), actorFrom(c))
	if err != nil {
		if contract != nil {
			respondPartial(c, err, "contract", contract)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus applies an owner-requested status change
// @Summary Update Contract Status
// @Description Apply an owner-requested status change
// @Tags Contracts
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Param request body updateStatusRequest true "Target status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/status [put]
func (h *ContractHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	contract, err := h.contractService.UpdateContractStatus(c.Request.Context(), c.Param("contract_id"),
		actorFrom(c), strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

// Expire forces expiry of one contract (admin)
// @Summary Expire Contract
// @Description Force expiry of a contract (admin only)
// @Tags Contracts
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/expire [post]
func (h *ContractHandler) Expire(c *gin.Context) {
	contract, err := h.contractService.ExpireContract(c.Request.Context(), c.Param("contract_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

// Delete removes a contract and its ledger (admin)
// @Summary Delete Contract
// @Description Delete a contract and its ledger (admin only)
// @Tags Contracts
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id} [delete]
func (h *ContractHandler) Delete(c *gin.Context) {
	if err := h.contractService.DeleteContract(c.Request.Context(), c.Param("contract_id"), actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "contract deleted"})
}
