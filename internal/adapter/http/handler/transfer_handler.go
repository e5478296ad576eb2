package handler

import (
	"net/http"

	"github.com/iho/famledger/internal/adapter/http/dto"
)

// TransferHandler handles transfer requests.
type TransferHandler struct {
	commands LedgerCommands
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(commands LedgerCommands) *TransferHandler {
	return &TransferHandler{commands: commands}
}

// Create moves money between two accounts of one ledger.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, err := requestID(r)
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	var req dto.TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	res, err := h.commands.Transfer(r.Context(), req.ToCommand(rid))
	if err != nil {
		writeDomainError(w, "failed to create transfer", err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}
