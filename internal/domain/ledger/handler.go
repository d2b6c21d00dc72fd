package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/servis/recharge-bot/internal/pkg/logger"
	"github.com/servis/recharge-bot/internal/pkg/response"
	"github.com/servis/recharge-bot/internal/pkg/validator"
)

// Handler serves read-only ledger views to staff.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /transactions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := ListQuery{
		Account: r.URL.Query().Get("account"),
		Status:  r.URL.Query().Get("status"),
		Limit:   50,
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil {
			response.BadRequest(w, "Invalid limit")
			return
		}
		q.Limit = v
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		v, err := strconv.Atoi(o)
		if err != nil {
			response.BadRequest(w, "Invalid offset")
			return
		}
		q.Offset = v
	}
	if errs := validator.Validate(q); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	// Fetch one extra row to know whether another page exists.
	txs, err := h.repo.List(r.Context(), Filter{
		Account: q.Account,
		Status:  Status(q.Status),
		Limit:   q.Limit + 1,
		Offset:  q.Offset,
	})
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("list transactions failed")
		response.InternalError(w)
		return
	}

	hasNext := len(txs) > q.Limit
	if hasNext {
		txs = txs[:q.Limit]
	}

	items := make([]*TransactionResponse, len(txs))
	for i, tx := range txs {
		items[i] = TransactionResponseFromEntity(tx)
	}

	response.WithMeta(w, items, response.Meta{
		Limit:   q.Limit,
		Offset:  q.Offset,
		Count:   len(items),
		HasNext: hasNext,
	})
}

// Get handles GET /transactions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid transaction ID")
		return
	}

	tx, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			response.NotFound(w, "Transaction not found")
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Int64("transaction_id", id).Msg("get transaction failed")
		response.InternalError(w)
		return
	}

	response.OK(w, TransactionResponseFromEntity(tx))
}

// Routes returns the ledger router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler, roleMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(roleMiddleware)

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	return r
}
