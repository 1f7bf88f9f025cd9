package handlers

import (
	"net/http"

	"github.com/ivankudzin/blinddate/internal/services/ledger"
	"github.com/ivankudzin/blinddate/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/blinddate/internal/transport/http/errors"
)

type WalletHandler struct {
	ledger   *ledger.Service
	reporter ErrorReporter
}

func NewWalletHandler(ledgerService *ledger.Service, reporter ErrorReporter) *WalletHandler {
	return &WalletHandler{ledger: ledgerService, reporter: reporter}
}

func (h *WalletHandler) MyStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	snapshot, err := h.ledger.Snapshot(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WalletStatusResponse{
		Success: true,
		Wallet:  mapSnapshot(snapshot),
	})
}

func (h *WalletHandler) BuyLikes(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	wallet, err := h.ledger.BuyLikes(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WalletStatusResponse{
		Success: true,
		Wallet:  mapWallet(wallet, h.ledger.MaxLikes()),
	})
}

func (h *WalletHandler) BuyChatSlot(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	wallet, err := h.ledger.BuyChatSlot(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WalletStatusResponse{
		Success: true,
		Wallet:  mapWallet(wallet, h.ledger.MaxLikes()),
	})
}

func (h *WalletHandler) PurchaseCoins(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	var req dto.PurchaseCoinsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	wallet, credited, err := h.ledger.PurchaseCoins(r.Context(), identity.UserID, req.Pack)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PurchaseCoinsResponse{
		Success:  true,
		Credited: credited,
		Wallet:   mapWallet(wallet, h.ledger.MaxLikes()),
	})
}

// GrantCoins is mounted behind the OWNER/SUPPORT role check.
func (h *WalletHandler) GrantCoins(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	userID, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	var req dto.GrantCoinsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	wallet, err := h.ledger.GrantCoins(r.Context(), identity.UserID, userID, req.Amount)
	if err != nil {
		writeServiceError(w, r, h.reporter, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.GrantCoinsResponse{
		Success: true,
		UserID:  userID,
		Wallet:  mapWallet(wallet, h.ledger.MaxLikes()),
	})
}
