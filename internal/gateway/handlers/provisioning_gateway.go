package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"veltra-system/internal/service"
)

type ProvisioningHTTPHandler struct {
	provisioning *service.ProvisioningService
}

func NewProvisioningHTTPHandler(provisioning *service.ProvisioningService) *ProvisioningHTTPHandler {
	return &ProvisioningHTTPHandler{provisioning: provisioning}
}

type initializeRequest struct {
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
}

// Initialize provisions inventory records for a product at every active
// location. Partial failures still answer 200 with the per-location errors
// listed.
func (h *ProvisioningHTTPHandler) Initialize(c *gin.Context) {
	productID, err := parseID(c, "productID")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid product ID"})
		return
	}

	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.provisioning.Initialize(c.Request.Context(), productID, req.InitialQuantity)
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, result)
}

func (h *ProvisioningHTTPHandler) CheckStatus(c *gin.Context) {
	productID, err := parseID(c, "productID")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid product ID"})
		return
	}

	result, err := h.provisioning.CheckStatus(c.Request.Context(), productID)
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, result)
}
