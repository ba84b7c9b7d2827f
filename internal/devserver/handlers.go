package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/f0rthspace/refinance-go/internal/models"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refinance_devserver_requests_total",
		Help: "Total devserver HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refinance_devserver_request_duration_seconds",
		Help:    "Latency distribution of devserver HTTP requests",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}, []string{"method", "endpoint"})
)

// Handler serves the dev backend API.
type Handler struct {
	store *Store
	log   *zap.Logger
	// token, when set, must match the X-Token header on every request.
	token string
	// devMode gates the deposit force-complete endpoint.
	devMode bool
	// devPaymentURL is attached to every keepz deposit this stub creates.
	devPaymentURL string
}

// NewHandler builds the handler over a store.
func NewHandler(store *Store, token, devPaymentURL string, devMode bool, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, log: log, token: token, devMode: devMode, devPaymentURL: devPaymentURL}
}

// Router mounts all API routes under /api.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.authMiddleware)
	api.HandleFunc("/transactions", h.createTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", h.getTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", h.patchTransaction).Methods(http.MethodPatch)
	api.HandleFunc("/balances/{id}", h.getBalances).Methods(http.MethodGet)
	api.HandleFunc("/currency_exchange/rates", h.getRates).Methods(http.MethodGet)
	api.HandleFunc("/currency_exchange/preview", h.previewExchange).Methods(http.MethodPost)
	api.HandleFunc("/currency_exchange/exchange", h.executeExchange).Methods(http.MethodPost)
	api.HandleFunc("/deposits/providers/keepz", h.createKeepzDeposit).Methods(http.MethodPost)
	api.HandleFunc("/deposits/{id}", h.getDeposit).Methods(http.MethodGet)
	api.HandleFunc("/deposits/{id}/complete-dev", h.completeDepositDev).Methods(http.MethodPost)
	return r
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" && r.Header.Get("X-Token") != h.token {
			respondWithError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createTransactionRequest struct {
	FromEntityID int64   `json:"from_entity_id"`
	ToEntityID   int64   `json:"to_entity_id"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency"`
	Comment      string  `json:"comment"`
	Status       string  `json:"status"`
	TagIDs       []int64 `json:"tag_ids"`
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/transactions"))
	defer timer.ObserveDuration()

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond(w, "POST", "/transactions", http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		h.respond(w, "POST", "/transactions", http.StatusUnprocessableEntity, map[string]string{"error": "positive amount required"})
		return
	}
	if req.FromEntityID == req.ToEntityID {
		h.respond(w, "POST", "/transactions", http.StatusUnprocessableEntity, map[string]string{"error": "self-transfer not allowed"})
		return
	}
	tx, err := h.store.CreateTransaction(req.FromEntityID, req.ToEntityID, amount, req.Currency, req.Comment, req.Status, req.TagIDs)
	if err != nil {
		h.respondStoreError(w, "POST", "/transactions", err)
		return
	}
	h.respond(w, "POST", "/transactions", http.StatusCreated, tx)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	tx, err := h.store.Transaction(id)
	if err != nil {
		h.respondStoreError(w, "GET", "/transactions/{id}", err)
		return
	}
	h.respond(w, "GET", "/transactions/{id}", http.StatusOK, tx)
}

type patchTransactionRequest struct {
	Status string `json:"status"`
}

func (h *Handler) patchTransaction(w http.ResponseWriter, r *http.Request) {
	var req patchTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond(w, "PATCH", "/transactions/{id}", http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}
	if req.Status != models.StatusCompleted {
		h.respond(w, "PATCH", "/transactions/{id}", http.StatusUnprocessableEntity, map[string]string{"error": "only status=completed is accepted"})
		return
	}
	tx, err := h.store.CompleteTransaction(pathID(r))
	if err != nil {
		h.respondStoreError(w, "PATCH", "/transactions/{id}", err)
		return
	}
	h.respond(w, "PATCH", "/transactions/{id}", http.StatusOK, tx)
}

func (h *Handler) getBalances(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.Balances(pathID(r))
	if err != nil {
		h.respondStoreError(w, "GET", "/balances/{id}", err)
		return
	}
	h.respond(w, "GET", "/balances/{id}", http.StatusOK, b)
}

func (h *Handler) getRates(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "GET", "/currency_exchange/rates", http.StatusOK, h.store.RateSheets())
}

type exchangeRequest struct {
	EntityID       int64  `json:"entity_id"`
	SourceCurrency string `json:"source_currency"`
	SourceAmount   string `json:"source_amount"`
	TargetCurrency string `json:"target_currency"`
	TargetAmount   string `json:"target_amount"`
}

// amounts returns the driving-side pointer pair, nil when unparsable.
func (req exchangeRequest) amounts() (source, target *decimal.Decimal, ok bool) {
	parse := func(s string) (*decimal.Decimal, bool) {
		if s == "" {
			return nil, true
		}
		d, err := decimal.NewFromString(s)
		if err != nil || !d.IsPositive() {
			return nil, false
		}
		return &d, true
	}
	source, ok = parse(req.SourceAmount)
	if !ok {
		return nil, nil, false
	}
	target, ok = parse(req.TargetAmount)
	if !ok {
		return nil, nil, false
	}
	return source, target, true
}

func (h *Handler) previewExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond(w, "POST", "/currency_exchange/preview", http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}
	source, target, ok := req.amounts()
	if !ok {
		h.respond(w, "POST", "/currency_exchange/preview", http.StatusUnprocessableEntity, map[string]string{"error": "positive amount required"})
		return
	}
	conv := h.store.Convert(req.SourceCurrency, req.TargetCurrency, source, target)
	if conv == nil {
		h.respond(w, "POST", "/currency_exchange/preview", http.StatusUnprocessableEntity, map[string]string{"error": "no conversion for given currencies and amounts"})
		return
	}
	h.respond(w, "POST", "/currency_exchange/preview", http.StatusOK, models.ExchangePreview{
		SourceCurrency: req.SourceCurrency,
		SourceAmount:   conv.SourceAmount.StringFixed(2),
		TargetCurrency: req.TargetCurrency,
		TargetAmount:   conv.TargetAmount.StringFixed(2),
		Rate:           conv.Rate.StringFixed(2),
	})
}

func (h *Handler) executeExchange(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/currency_exchange/exchange"))
	defer timer.ObserveDuration()

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond(w, "POST", "/currency_exchange/exchange", http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}
	source, target, ok := req.amounts()
	if !ok {
		h.respond(w, "POST", "/currency_exchange/exchange", http.StatusUnprocessableEntity, map[string]string{"error": "positive amount required"})
		return
	}
	receipt, err := h.store.Exchange(req.EntityID, req.SourceCurrency, req.TargetCurrency, source, target)
	if err != nil {
		h.respondStoreError(w, "POST", "/currency_exchange/exchange", err)
		return
	}
	h.log.Info("exchange executed",
		zap.Int64("entity_id", req.EntityID),
		zap.String("source", receipt.SourceCurrency),
		zap.String("target", receipt.TargetCurrency),
		zap.String("rate", receipt.Rate))
	h.respond(w, "POST", "/currency_exchange/exchange", http.StatusOK, receipt)
}

func (h *Handler) createKeepzDeposit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	toID, err := strconv.ParseInt(q.Get("to_entity_id"), 10, 64)
	if err != nil {
		h.respond(w, "POST", "/deposits/providers/keepz", http.StatusUnprocessableEntity, map[string]string{"error": "to_entity_id required"})
		return
	}
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil || !amount.IsPositive() {
		h.respond(w, "POST", "/deposits/providers/keepz", http.StatusUnprocessableEntity, map[string]string{"error": "positive amount required"})
		return
	}
	currency := q.Get("currency")
	if currency == "" {
		h.respond(w, "POST", "/deposits/providers/keepz", http.StatusUnprocessableEntity, map[string]string{"error": "currency required"})
		return
	}
	dep, err := h.store.CreateKeepzDeposit(toID, amount, currency, h.devPaymentURL)
	if err != nil {
		h.respondStoreError(w, "POST", "/deposits/providers/keepz", err)
		return
	}
	h.respond(w, "POST", "/deposits/providers/keepz", http.StatusCreated, dep)
}

func (h *Handler) getDeposit(w http.ResponseWriter, r *http.Request) {
	dep, err := h.store.Deposit(pathID(r))
	if err != nil {
		h.respondStoreError(w, "GET", "/deposits/{id}", err)
		return
	}
	h.respond(w, "GET", "/deposits/{id}", http.StatusOK, dep)
}

func (h *Handler) completeDepositDev(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		h.respond(w, "POST", "/deposits/{id}/complete-dev", http.StatusForbidden, map[string]string{"error": "not available outside development"})
		return
	}
	dep, err := h.store.CompleteDeposit(pathID(r))
	if err != nil {
		h.respondStoreError(w, "POST", "/deposits/{id}/complete-dev", err)
		return
	}
	h.respond(w, "POST", "/deposits/{id}/complete-dev", http.StatusOK, dep)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func (h *Handler) respond(w http.ResponseWriter, method, endpoint string, code int, payload any) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, payload)
}

func (h *Handler) respondStoreError(w http.ResponseWriter, method, endpoint string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.respond(w, method, endpoint, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrDepositSettled):
		h.respond(w, method, endpoint, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.respond(w, method, endpoint, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
