package httpx

import (
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-storefront-orders.git/internal/cart"
	"github.com/ariefcatur/go-storefront-orders.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders.git/internal/orders"
	"github.com/ariefcatur/go-storefront-orders.git/internal/selection"
	"go.uber.org/zap"
	"net/http"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

// writeError maps domain errors to status codes. Write failures never tell
// the client which step broke.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		ve *orders.ValidationError
		we *orders.WriteError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, selection.ErrQuantityCap),
		errors.Is(err, selection.ErrInvalidQuantity),
		errors.Is(err, selection.ErrRowIndex),
		errors.Is(err, selection.ErrLastRow),
		errors.Is(err, selection.ErrUnknownVariant),
		errors.Is(err, cart.ErrInvalidItem),
		errors.Is(err, cart.ErrIncompleteSelection),
		errors.Is(err, catalog.ErrShortQuery),
		errors.Is(err, catalog.ErrInvalidPage),
		errors.Is(err, orders.ErrInvalidNumber),
		errors.Is(err, orders.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrTransition), errors.Is(err, orders.ErrStatusConflict), errors.Is(err, cart.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &we):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "order could not be placed, please try again"})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
