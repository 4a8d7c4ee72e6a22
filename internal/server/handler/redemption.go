package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
)

// RedemptionService defines the methods that the redemption handler requires
// from the service layer.
type RedemptionService interface {
	Redeem(ctx context.Context, itemID, holder string, topUpPaid decimal.Decimal) (domain.Redemption, error)
	Confirm(ctx context.Context, redemptionID, txHash string) (domain.Redemption, error)
	Fail(ctx context.Context, redemptionID, txHash string) error
	Get(ctx context.Context, id string) (domain.Redemption, error)
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Redemption, error)
}

// RedemptionHandler serves the physical-item claim endpoints.
type RedemptionHandler struct {
	redemptions RedemptionService
	logger      *slog.Logger
}

// NewRedemptionHandler creates a RedemptionHandler with the given service and
// logger.
func NewRedemptionHandler(redemptions RedemptionService, logger *slog.Logger) *RedemptionHandler {
	return &RedemptionHandler{
		redemptions: redemptions,
		logger:      logHandler(logger, "redemption"),
	}
}

// redeemRequest is the POST /api/redemptions body.
type redeemRequest struct {
	ItemID    string `json:"item_id"`
	Holder    string `json:"holder"`
	TopUpPaid string `json:"top_up_paid"` // decimal string, optional
}

// Redeem validates and records a claim for an item.
// POST /api/redemptions
func (h *RedemptionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID == "" || req.Holder == "" {
		writeError(w, http.StatusBadRequest, "item_id and holder are required")
		return
	}

	topUp := decimal.Zero
	if req.TopUpPaid != "" {
		var err error
		topUp, err = decimal.NewFromString(req.TopUpPaid)
		if err != nil || topUp.Sign() < 0 {
			writeError(w, http.StatusBadRequest, "invalid top_up_paid")
			return
		}
	}

	redemption, err := h.redemptions.Redeem(r.Context(), req.ItemID, req.Holder, topUp)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "item not found")
		case errors.Is(err, domain.ErrAlreadyRedeemed):
			writeError(w, http.StatusConflict, "item already redeemed")
		case errors.Is(err, domain.ErrLockHeld):
			writeError(w, http.StatusConflict, "redemption already in progress")
		case errors.Is(err, domain.ErrNotInitialized):
			writeError(w, http.StatusUnprocessableEntity, "market not initialized")
		case errors.Is(err, domain.ErrMarketExpired):
			writeError(w, http.StatusUnprocessableEntity, "market expired and pool does not cover the claim")
		case errors.Is(err, domain.ErrNotRedeemable):
			writeError(w, http.StatusUnprocessableEntity, "item not redeemable")
		default:
			h.logger.ErrorContext(r.Context(), "handler: redeem failed",
				slog.String("item_id", req.ItemID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to redeem item")
		}
		return
	}

	writeJSON(w, http.StatusCreated, redemption)
}

// confirmRequest is the confirm/fail endpoint body.
type confirmRequest struct {
	TxHash string `json:"tx_hash"`
}

// Confirm settles a pending redemption once its transaction lands.
// POST /api/redemptions/{id}/confirm
func (h *RedemptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing redemption id")
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TxHash == "" {
		writeError(w, http.StatusBadRequest, "tx_hash is required")
		return
	}

	redemption, err := h.redemptions.Confirm(r.Context(), id, req.TxHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "redemption not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: confirm redemption failed",
			slog.String("redemption_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to confirm redemption")
		return
	}

	writeJSON(w, http.StatusOK, redemption)
}

// Fail marks a pending redemption as failed; the item stays claimable.
// POST /api/redemptions/{id}/fail
func (h *RedemptionHandler) Fail(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing redemption id")
		return
	}
	var req confirmRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.redemptions.Fail(r.Context(), id, req.TxHash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "redemption not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: fail redemption failed",
			slog.String("redemption_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update redemption")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "failed"})
}

// Get returns a single redemption by its ID.
// GET /api/redemptions/{id}
func (h *RedemptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing redemption id")
		return
	}

	redemption, err := h.redemptions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "redemption not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get redemption failed",
			slog.String("redemption_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get redemption")
		return
	}

	writeJSON(w, http.StatusOK, redemption)
}

// listRedemptionsResponse wraps the list endpoint output with metadata.
type listRedemptionsResponse struct {
	Redemptions []domain.Redemption `json:"redemptions"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// ListByMarket returns a market's redemptions with pagination.
// GET /api/markets/{id}/redemptions?limit=50&offset=0
func (h *RedemptionHandler) ListByMarket(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}
	opts := parseListOpts(r)

	redemptions, err := h.redemptions.ListByMarket(r.Context(), marketID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list redemptions failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}

	writeJSON(w, http.StatusOK, listRedemptionsResponse{
		Redemptions: redemptions,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	})
}
