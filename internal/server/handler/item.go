package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mintrail/phygmarket/internal/domain"
)

// ItemService defines the methods that the item handler requires from the
// service layer.
type ItemService interface {
	ListItems(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Item, error)
	QuoteItem(ctx context.Context, itemID string) (domain.ItemQuote, error)
}

// ItemHandler serves item listing and per-item quote endpoints.
type ItemHandler struct {
	items  ItemService
	logger *slog.Logger
}

// NewItemHandler creates an ItemHandler with the given service and logger.
func NewItemHandler(items ItemService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		items:  items,
		logger: logHandler(logger, "item"),
	}
}

// listItemsResponse wraps the list endpoint output with metadata.
type listItemsResponse struct {
	Items  []domain.Item `json:"items"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListItems returns a market's items with pagination.
// GET /api/markets/{id}/items?limit=50&offset=0
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}
	opts := parseListOpts(r)

	items, err := h.items.ListItems(r.Context(), marketID, opts)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: list items failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	writeJSON(w, http.StatusOK, listItemsResponse{
		Items:  items,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// QuoteItem returns the assembled quote for one item: phase countdown state,
// current price with fiat mirror, eligibility, discount, and reward estimate.
// GET /api/items/{id}/quote
func (h *ItemHandler) QuoteItem(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	quote, err := h.items.QuoteItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: quote item failed",
			slog.String("item_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to quote item")
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
