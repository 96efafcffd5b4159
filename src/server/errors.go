package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pair-analytics/src/helpers"
	"pair-analytics/src/models"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind helpers.ErrorKind) int {
	switch kind {
	case helpers.KindInvalidTimeframe, helpers.KindInvalidParameter:
		return http.StatusBadRequest
	case helpers.KindInsufficientData, helpers.KindMisalignedSeries, helpers.KindDegenerateRegression:
		return http.StatusUnprocessableEntity
	case helpers.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) *models.MErrorBody {
	return &models.MErrorBody{Kind: string(helpers.KindOf(err)), Message: err.Error()}
}

func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(helpers.KindOf(err)), errorBody(err))
}
