package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-inventory/internal/models"
)

func respondOK(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// respondError writes err as a failure body. Every failure carries success,
// code and error; domain details are merged in at the top level.
func respondError(c *gin.Context, err error) {
	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"success":               false,
			"code":                  models.CodeCartChanged,
			"error":                 "Cart items have changed",
			"changes":               conflict.Changes,
			"requires_confirmation": true,
			"subtotal":              conflict.Subtotal,
		})
		return
	}

	var de *models.Error
	if !errors.As(err, &de) {
		de = models.Internal(err)
	}

	body := gin.H{"success": false, "code": de.Code, "error": de.Message}
	for k, v := range de.Details {
		body[k] = v
	}

	status := statusFor(de.Kind)
	switch de.Code {
	case models.CodeDuplicateRequest:
		status = http.StatusAlreadyReported
		body["status"] = "already_processed"
	case models.CodeInternal:
		if de.Err != nil {
			body["detail"] = de.Err.Error()
		}
	}

	c.JSON(status, body)
}

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindBadRequest:
		return http.StatusBadRequest
	case models.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func bindError(err error) error {
	return models.BadRequestf("Invalid request: %v", err)
}
