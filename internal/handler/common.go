package handler

import (
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error         string                  `json:"error"`
	Kind          string                  `json:"kind,omitempty"`
	CurrentStatus string                  `json:"current_status,omitempty"`
	Shortages     []usecase.StockShortage `json:"shortages,omitempty"`
}

var kindStatus = map[usecase.ErrorKind]int{
	usecase.KindValidation:             http.StatusBadRequest,
	usecase.KindNotFound:               http.StatusNotFound,
	usecase.KindInvalidStateTransition: http.StatusConflict,
	usecase.KindInsufficientStock:      http.StatusConflict,
	usecase.KindConcurrentModification: http.StatusConflict,
	usecase.KindSignatureInvalid:       http.StatusBadRequest,
	usecase.KindGatewayTimeout:         http.StatusBadGateway,
	usecase.KindPersistence:            http.StatusInternalServerError,
}

func writeError(c echo.Context, err error) error {
	ue, ok := usecase.AsError(err)
	if !ok {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	status, ok := kindStatus[ue.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, ErrorResponse{
		Error:         ue.Message,
		Kind:          string(ue.Kind),
		CurrentStatus: ue.CurrentStatus,
		Shortages:     ue.Shortages,
	})
}
