package check

import (
	"errors"
	"net/http"

	"alercheck-api/internal/core/ai/ollama"
	checkService "alercheck-api/internal/core/check"
	"alercheck-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler serves the allergen-check endpoint.
type Handler struct {
	service *checkService.Service
}

// NewHandler creates the allergen-check handler.
func NewHandler(service *checkService.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// HandleAllergenCheck handles POST /api/allergen-check. Validation failures
// come back as 400 and backend transport failures as 502. A successful call
// always yields a structured result, even when the model reply had to be
// replaced by the recovery fallback.
func (h *Handler) HandleAllergenCheck(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}

	var req common.AllergenCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("invalid request body",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidRequest.Message,
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	common.LogInfo("allergen check request received",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
		zap.Int("allergens", len(req.Allergens)),
		zap.String("image_type", getImageType(req.ImageBase64)),
	)

	result, err := h.service.Check(c.Request.Context(), &req)
	if err != nil {
		var verr *common.ValidationError
		if errors.As(err, &verr) {
			common.LogWarn("allergen check rejected",
				zap.String("request_id", requestID),
				zap.String("code", verr.Code),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": verr.Error(),
				"code":  verr.Code,
			})
			return
		}

		var apiErr *ollama.APIError
		if errors.As(err, &apiErr) {
			common.LogError("inference backend error",
				zap.String("request_id", requestID),
				zap.Int("backend_status", apiErr.StatusCode),
			)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "ollama_error",
				"code":    common.ErrCodeOllamaError,
				"details": apiErr.Body,
			})
			return
		}

		common.LogError("allergen check failed",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "ollama_error",
			"code":  common.ErrCodeOllamaError,
		})
		return
	}

	common.LogInfo("allergen check responded",
		zap.String("request_id", requestID),
		zap.Bool("has_risk", result.HasRisk),
		zap.Bool("fallback", result.RawText != ""),
	)

	c.JSON(http.StatusOK, result)
}
