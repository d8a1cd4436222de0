package handler

import (
	"net/http"
	"strconv"

	"app/internal/infra/gateway"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	uc *usecase.PaymentUsecase
}

func NewWebhookHandler(uc *usecase.PaymentUsecase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/payment", h.paymentCallback)
	e.GET("/orders/:id/payments", h.listPayments)
	e.GET("/payments/:request_id", h.paymentStatus)
}

// ゲートウェイは2xx以外を受け取ると再送する。
// 署名不正と金額不一致だけ400で突き返し、それ以外（重複・未知のref）は
// 204で再送を止める。
func (h *WebhookHandler) paymentCallback(c echo.Context) error {
	var payload gateway.CallbackPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	err := h.uc.HandleCallback(c.Request().Context(), payload)
	if err != nil {
		if usecase.IsKind(err, usecase.KindSignatureInvalid) || usecase.IsKind(err, usecase.KindValidation) {
			return writeError(c, err)
		}
		if usecase.IsKind(err, usecase.KindNotFound) {
			return c.NoContent(http.StatusNoContent)
		}
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// チェックアウト後、クライアントが支払い結果をポーリングする
func (h *WebhookHandler) paymentStatus(c echo.Context) error {
	payment, err := h.uc.GetPaymentByRequestID(c.Request().Context(), c.Param("request_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

func (h *WebhookHandler) listPayments(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	payments, err := h.uc.GetPayments(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, payments)
}
