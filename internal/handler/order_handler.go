package handler

import (
	"net/http"
	"strconv"
	"time"

	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderCreateRequest struct {
	CartRef       string                   `json:"cart_ref,omitempty"`
	Customer      usecase.CustomerInfo     `json:"customer"`
	Items         []usecase.OrderItemInput `json:"items,omitempty"`
	Addresses     []usecase.AddressInput   `json:"addresses"`
	PaymentMethod string                   `json:"payment_method"`
	Currency      string                   `json:"currency"`
	Tax           int64                    `json:"tax"`
	ShippingFee   int64                    `json:"shipping_fee"`
	Discount      int64                    `json:"discount"`
}

type TransitionRequest struct {
	Note        string `json:"note,omitempty"`
	TrackingRef string `json:"tracking_ref,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/orders")

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.GET("/:id/history", h.history)
	g.GET("/number/:number", h.byNumber)

	g.POST("/:id/confirm", h.confirm)
	g.POST("/:id/process", h.process)
	g.POST("/:id/ship", h.ship)
	g.POST("/:id/deliver", h.deliver)
	g.POST("/:id/cancel", h.cancel)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	var (
		out usecase.CreateOrderOutput
		err error
	)
	if req.CartRef != "" {
		out, err = h.uc.CheckoutFromCart(c.Request().Context(), req.CartRef, req.Customer, req.Addresses,
			req.PaymentMethod, req.Currency, req.Tax, req.ShippingFee, req.Discount)
	} else {
		out, err = h.uc.CreateOrder(c.Request().Context(), usecase.CreateOrderInput{
			Customer:      req.Customer,
			Items:         req.Items,
			Addresses:     req.Addresses,
			PaymentMethod: req.PaymentMethod,
			Currency:      req.Currency,
			Tax:           req.Tax,
			ShippingFee:   req.ShippingFee,
			Discount:      req.Discount,
		})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page == 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit == 0 {
		limit = 50
	}

	f := repo.OrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	}
	if from, ok := parseDateTimeRFC3339(c.QueryParam("from")); ok {
		f.From = from
	}
	if to, ok := parseDateTimeRFC3339(c.QueryParam("to")); ok {
		f.To = to
	}

	outs, total, err := h.uc.ListOrders(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": outs, "total": total})
}

func (h *OrderHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	out, err := h.uc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) byNumber(c echo.Context) error {
	out, err := h.uc.GetOrderByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) history(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	out, err := h.uc.GetOrderHistory(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) confirm(c echo.Context) error {
	return h.transition(c, func(id int64, req TransitionRequest) error {
		return h.uc.ConfirmOrder(c.Request().Context(), id, req.Note, nil)
	})
}

func (h *OrderHandler) process(c echo.Context) error {
	return h.transition(c, func(id int64, req TransitionRequest) error {
		return h.uc.ProcessOrder(c.Request().Context(), id, req.Note, nil)
	})
}

func (h *OrderHandler) ship(c echo.Context) error {
	return h.transition(c, func(id int64, req TransitionRequest) error {
		return h.uc.ShipOrder(c.Request().Context(), id, req.TrackingRef, nil)
	})
}

func (h *OrderHandler) deliver(c echo.Context) error {
	return h.transition(c, func(id int64, req TransitionRequest) error {
		return h.uc.DeliverOrder(c.Request().Context(), id, nil)
	})
}

func (h *OrderHandler) cancel(c echo.Context) error {
	return h.transition(c, func(id int64, req TransitionRequest) error {
		return h.uc.CancelOrder(c.Request().Context(), id, req.Reason, nil)
	})
}

func (h *OrderHandler) transition(c echo.Context, fn func(id int64, req TransitionRequest) error) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := fn(id, req); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parseDateTimeRFC3339(s string) (*time.Time, bool) {
	if s == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
