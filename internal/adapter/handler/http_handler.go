package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const maxWebhookBody = 1 << 20

type HTTPHandler struct {
	paymentService *service.PaymentService
	logger         *slog.Logger
}

type InitializeHTTPRequest struct {
	Email      string         `json:"email"`
	Amount     any            `json:"amount"`
	AmountUnit string         `json:"amountUnit,omitempty"`
	Reference  string         `json:"reference,omitempty"`
	OrderID    string         `json:"orderId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type InitializeData struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

type OrderSummary struct {
	ID        string             `json:"id"`
	Reference string             `json:"reference"`
	Status    domain.OrderStatus `json:"status"`
}

type APIResponse struct {
	Success bool          `json:"success"`
	Status  string        `json:"status,omitempty"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
	Data    any           `json:"data,omitempty"`
	Order   *OrderSummary `json:"order,omitempty"`
}

func NewHTTPHandler(paymentService *service.PaymentService, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{paymentService: paymentService, logger: logger}
}

// Routes registers the payment endpoints on mux.
func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/payment/initialize", h.InitializePayment)
	mux.HandleFunc("GET /api/payment/verify/{reference}", h.VerifyPayment)
	mux.HandleFunc("GET /api/payment/callback", h.PaymentCallback)
	mux.HandleFunc("POST /api/payment/webhook", h.PaymentWebhook)
	mux.HandleFunc("GET /api/payment/banks", h.ListBanks)
	mux.HandleFunc("GET /api/payment/fee", h.QuoteFee)
}

func (h *HTTPHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	var req InitializeHTTPRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if req.Email == "" || req.Amount == nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Missing required fields: email, amount, orderId",
		})
		return
	}

	auth, err := h.paymentService.Initialize(r.Context(), service.InitializeInput{
		Email:      req.Email,
		Amount:     req.Amount,
		AmountUnit: domain.AmountUnit(req.AmountUnit),
		Reference:  req.Reference,
		OrderID:    req.OrderID,
		Metadata:   req.Metadata,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "Invalid amount format"})
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: err.Error()})
			return
		}
		h.logger.ErrorContext(r.Context(), "payment initialization", "error", err)
		writeJSON(w, http.StatusInternalServerError, APIResponse{
			Success: false,
			Message: "Payment initialization failed",
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: InitializeData{
			AuthorizationURL: auth.AuthorizationURL,
			AccessCode:       auth.AccessCode,
			Reference:        auth.Reference,
		},
	})
}

func (h *HTTPHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	order, err := h.paymentService.Verify(r.Context(), r.PathValue("reference"))
	if err != nil {
		status := http.StatusInternalServerError
		resp := APIResponse{Success: false, Message: "Payment verification failed"}

		switch {
		case errors.Is(err, service.ErrInvalidInput):
			status = http.StatusBadRequest
			resp.Message = err.Error()
		case errors.Is(err, service.ErrOrderNotFound):
			status = http.StatusNotFound
			resp.Message = "Order not found"
		case errors.Is(err, service.ErrPaymentFailed):
			status = http.StatusBadRequest
			resp.Status = "failed"
		default:
			h.logger.ErrorContext(r.Context(), "payment verification", "error", err)
			resp.Error = err.Error()
		}

		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Status:  "success",
		Message: "Payment verified successfully",
		Order: &OrderSummary{
			ID:        order.ID,
			Reference: order.Reference,
			Status:    order.Status,
		},
	})
}

func (h *HTTPHandler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := h.paymentService.Callback(r.Context(), q.Get("reference"), q.Get("trxref"))
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *HTTPHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		// unreadable bodies cannot be authenticated
		writeText(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	ack, err := h.paymentService.Webhook(r.Context(), body, r.Header.Get(service.SignatureHeader))
	if errors.Is(err, service.ErrInvalidSignature) {
		h.logger.WarnContext(r.Context(), "webhook rejected", "remote", r.RemoteAddr)
		writeText(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	writeText(w, http.StatusOK, ack)
}

func (h *HTTPHandler) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.paymentService.Banks(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list banks", "error", err)
		writeJSON(w, http.StatusInternalServerError, APIResponse{
			Success: false,
			Message: "Failed to fetch banks",
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: banks})
}

func (h *HTTPHandler) QuoteFee(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil || amount.IsNegative() {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "Invalid amount format"})
		return
	}
	method := r.URL.Query().Get("method")
	if method == "" {
		method = "card"
	}

	fee := service.CardFee(amount, method)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]string{
			"amount": amount.StringFixed(2),
			"fee":    fee.StringFixed(2),
			"total":  amount.Add(fee).StringFixed(2),
		},
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
