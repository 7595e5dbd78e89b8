// Package api exposes the card ledger over HTTP. The handlers are thin: all
// ledger semantics live in the engine, all failures map to stable error
// codes.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cardledger/internal/common/api"
	"cardledger/internal/common/database"
	"cardledger/internal/common/money"
	"cardledger/internal/customer"
	"cardledger/internal/ledger"
	"cardledger/internal/ledger/domain"
)

// Handler handles card ledger HTTP requests.
type Handler struct {
	ledger    *ledger.Service
	customers *customer.Service
}

// NewHandler creates a new handler.
func NewHandler(ledgerService *ledger.Service, customerService *customer.Service) *Handler {
	return &Handler{ledger: ledgerService, customers: customerService}
}

// Routes returns the API routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/customers", h.CreateCustomer)
	r.Get("/customers/{id}", h.GetCustomer)
	r.Get("/customers/{id}/cards", h.ListCards)

	r.Post("/cards", h.IssueCard)
	r.Get("/cards/{id}", h.GetCard)
	r.Patch("/cards/{id}", h.UpdateCard)
	r.Delete("/cards/{id}", h.DeleteCard)
	r.Post("/cards/{id}/debit", h.Debit)
	r.Post("/cards/{id}/credit", h.Credit)
	r.Get("/cards/{id}/transactions", h.ListTransactions)

	return r
}

// CreateCustomer handles POST /customers.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customer.CreateRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	c, err := h.customers.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			api.Conflict(w, "customer with this email already exists")
			return
		}
		api.InternalError(w, "failed to create customer")
		return
	}

	api.WriteData(w, http.StatusCreated, c)
}

// GetCustomer handles GET /customers/{id}.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			api.NotFound(w, "customer not found")
			return
		}
		api.InternalError(w, "failed to load customer")
		return
	}
	api.WriteData(w, http.StatusOK, c)
}

// ListCards handles GET /customers/{id}/cards.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.ledger.ListCardsByOwner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, cards)
}

// IssueCard handles POST /cards.
func (h *Handler) IssueCard(w http.ResponseWriter, r *http.Request) {
	var req ledger.IssueCardRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		if errors.Is(err, money.ErrPrecision) {
			api.WriteError(w, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
			return
		}
		api.ValidationError(w, err)
		return
	}

	card, err := h.ledger.IssueCard(r.Context(), req)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	api.WriteData(w, http.StatusCreated, card)
}

// GetCard handles GET /cards/{id}.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.ledger.GetCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, card)
}

// UpdateCardRequest is the request for PATCH /cards/{id}. Only the fields
// present are applied.
type UpdateCardRequest struct {
	HolderName *string `json:"holder_name,omitempty" validate:"omitempty,min=1,max=255"`
	Active     *bool   `json:"active,omitempty"`
}

// UpdateCard handles PATCH /cards/{id}.
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req UpdateCardRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}
	if req.HolderName == nil && req.Active == nil {
		api.BadRequest(w, "nothing to update")
		return
	}

	card, err := h.ledger.UpdateCard(r.Context(), chi.URLParam(r, "id"), req.HolderName, req.Active)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, card)
}

// DeleteCard handles DELETE /cards/{id}.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeLedgerError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, map[string]string{"deleted": chi.URLParam(r, "id")})
}

// AmountRequest is the request body for debit and credit.
type AmountRequest struct {
	Amount money.Amount `json:"amount"`
}

// Debit handles POST /cards/{id}/debit.
func (h *Handler) Debit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.Debit)
}

// Credit handles POST /cards/{id}/credit.
func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.Credit)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, cardID string, amount money.Amount) (*domain.Card, error)) {
	var req AmountRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		if errors.Is(err, money.ErrPrecision) {
			api.WriteError(w, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
			return
		}
		api.ValidationError(w, err)
		return
	}

	card, err := op(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, card)
}

// ListTransactions handles GET /cards/{id}/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := api.GetPaginationParams(r, 50, 100)

	recs, total, err := h.ledger.ListTransactions(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	api.WritePaginated(w, recs, &api.Pagination{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasMore: int64(offset+len(recs)) < total,
	})
}

// writeLedgerError maps an engine failure to an HTTP status and stable code.
func writeLedgerError(w http.ResponseWriter, err error) {
	code := ledger.ErrorCode(err)

	var status int
	switch code {
	case "NOT_FOUND":
		status = http.StatusNotFound
	case "INVALID_AMOUNT":
		status = http.StatusBadRequest
	case "CARD_INACTIVE", "CONCURRENCY_EXHAUSTED":
		status = http.StatusConflict
	case "INSUFFICIENT_BALANCE", "LIMIT_EXCEEDED":
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusServiceUnavailable
	}

	api.WriteError(w, status, code, err.Error())
}
