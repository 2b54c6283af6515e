package handlers

import (
	"net/http"

	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/gin-gonic/gin"
)

// UserHandler maintains the directory records (admin only). Accounts and
// credentials live with the identity provider.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Show returns a directory record
// @Summary Get User
// @Description Get a directory record (admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /users/{user_id} [get]
func (h *UserHandler) Show(c *gin.Context) {
	user, err := h.userService.FindByID(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Upsert registers or replaces the record at PUT /users/:user_id.
// Accepts {"user": {...}} or the flat object.
// @Summary Upsert User
// @Description Register or replace a directory record (admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Param request body services.UserInput true "User Data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /users/{user_id} [put]
func (h *UserHandler) Upsert(c *gin.Context) {
	var in services.UserInput
	if err := bindEnvelope(c, "user", &in); err != nil {
		badRequest(c, "invalid user payload: "+err.Error())
		return
	}
	in.ID = c.Param("user_id")

	user, err := h.userService.Register(c.Request.Context(), in, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type verifyRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// SetVerified flips the verification flag
// @Summary Set User Verification
// @Description Set or clear a user's verified flag (admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Param request body verifyRequest true "Verification"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /users/{user_id}/verify [post]
func (h *UserHandler) SetVerified(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "verified is required")
		return
	}
	if err := h.userService.SetVerified(c.Request.Context(), c.Param("user_id"), *req.Verified, actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification updated"})
}
