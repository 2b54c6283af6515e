package handlers

import (
	"net/http"

	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/gin-gonic/gin"
)

type BidHandler struct {
	contractService *services.ContractService
}

func NewBidHandler(contractService *services.ContractService) *BidHandler {
	return &BidHandler{contractService: contractService}
}

// Index lists the bids of a contract visible to the caller
// @Summary List Bids
// @Description List the bids of a contract visible to the caller
// @Tags Bids
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/bids [get]
func (h *BidHandler) Index(c *gin.Context) {
	bids, err := h.contractService.ListBids(c.Request.Context(), c.Param("contract_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// Create submits a bid; accepts {"bid": {...}} or the flat bid object
// @Summary Submit Bid
// @Description Submit a bid on an open tender
// @Tags Bids
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Param request body services.BidInput true "Bid Data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/bids [post]
func (h *BidHandler) Create(c *gin.Context) {
	var in services.BidInput
	if err := bindEnvelope(c, "bid", &in); err != nil {
		badRequest(c, "invalid bid payload: "+err.Error())
		return
	}

	bid, err := h.contractService.SubmitBid(c.Request.Context(), c.Param("contract_id"), actorFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bid": bid})
}

// Accept awards the tender to the bid and returns the chat channel
// @Summary Accept Bid
// @Description Award the tender to a bid and open the parties' chat channel
// @Tags Bids
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Param bid_id path string true "Bid ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Failure 504 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/bids/{bid_id}/accept [post]
func (h *BidHandler) Accept(c *gin.Context) {
	chatID, err := h.contractService.AcceptBid(c.Request.Context(), c.Param("contract_id"), c.Param("bid_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatId": chatID})
}

// Reject marks the bid rejected
// @Summary Reject Bid
// @Description Mark a pending bid rejected
// @Tags Bids
// @Accept json
// @Produce json
// @Param contract_id path string true "Contract ID"
// @Param bid_id path string true "Bid ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /contracts/{contract_id}/bids/{bid_id}/reject [post]
func (h *BidHandler) Reject(c *gin.Context) {
	bid, err := h.contractService.RejectBid(c.Request.Context(), c.Param("contract_id"), c.Param("bid_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bid": bid})
}
