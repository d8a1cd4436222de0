package handler

import (
	"net/http"
	"strconv"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type InventoryHandler struct {
	uc *usecase.InventoryUsecase
}

func NewInventoryHandler(uc *usecase.InventoryUsecase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

func (h *InventoryHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/inventory/:product_id/availability", h.availability)
}

// 空き＝on-hand−ACTIVE予約合計。予約中の分は見えない。
func (h *InventoryHandler) availability(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id"})
	}

	var variantID *int64
	if v := c.QueryParam("variant_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid variant id"})
		}
		variantID = &id
	}

	available, err := h.uc.Availability(c.Request().Context(), productID, variantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"product_id": productID,
		"variant_id": variantID,
		"available":  available,
	})
}
