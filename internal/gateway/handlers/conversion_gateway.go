package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"veltra-system/internal/database/models"
	"veltra-system/internal/port"
	"veltra-system/internal/service"
)

type ConversionHTTPHandler struct {
	workflow *service.ConversionWorkflow
}

func NewConversionHTTPHandler(workflow *service.ConversionWorkflow) *ConversionHTTPHandler {
	return &ConversionHTTPHandler{workflow: workflow}
}

type validateRequest struct {
	RecipeID       int64           `json:"recipe_id"`
	InputProductID int64           `json:"input_product_id"`
	LocationID     int64           `json:"location_id"`
	InputQuantity  decimal.Decimal `json:"input_quantity"`
}

type initiateRequest struct {
	RecipeID        int64            `json:"recipe_id"`
	InputProductID  int64            `json:"input_product_id"`
	LocationID      int64            `json:"location_id"`
	InputQuantity   decimal.Decimal  `json:"input_quantity"`
	OutputProductID *int64           `json:"output_product_id"`
	TargetQuantity  *decimal.Decimal `json:"target_quantity"`
	Notes           *string          `json:"notes"`
}

type completeRequest struct {
	ActualOutput    decimal.Decimal `json:"actual_output"`
	VarianceReasons []string        `json:"variance_reasons"`
	Notes           *string         `json:"notes"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *ConversionHTTPHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.workflow.Validate(c.Request.Context(), req.RecipeID, req.InputProductID, req.LocationID, req.InputQuantity)
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, result)
}

func (h *ConversionHTTPHandler) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	record, err := h.workflow.Initiate(c.Request.Context(), service.InitiateRequest{
		RecipeID:        req.RecipeID,
		InputProductID:  req.InputProductID,
		LocationID:      req.LocationID,
		InputQuantity:   req.InputQuantity,
		OutputProductID: req.OutputProductID,
		TargetQuantity:  req.TargetQuantity,
		Notes:           req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusCreated, record)
}

func (h *ConversionHTTPHandler) Complete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid conversion ID"})
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.workflow.Complete(c.Request.Context(), id, req.ActualOutput, req.VarianceReasons, req.Notes)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"data":     result.Record,
		"warnings": result.Warnings,
	})
}

func (h *ConversionHTTPHandler) Cancel(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid conversion ID"})
		return
	}

	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
			return
		}
	}

	if err := h.workflow.Cancel(c.Request.Context(), id, req.Reason); err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, gin.H{"cancelled": true})
}

func (h *ConversionHTTPHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid conversion ID"})
		return
	}

	record, err := h.workflow.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, record)
}

func (h *ConversionHTTPHandler) List(c *gin.Context) {
	filter := port.ConversionFilter{
		InputProductID: parseInt64Query(c, "input_product_id"),
		LocationID:     parseInt64Query(c, "location_id"),
		Status:         models.ConversionStatus(c.Query("status")),
	}

	records, err := h.workflow.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}

	success(c, http.StatusOK, records)
}
