package http

import (
	"net/http"
	"strconv"

	"moneta/internal/core"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, f, err := parsePaging(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.transactions.List(r.Context(), userID, f, p.Page, p.Size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(page))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.transactions.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	w.Header().Set("Location", "/api/transactions/"+strconv.FormatInt(t.ID, 10))
	writeJSON(w, http.StatusCreated, newTransactionResponse(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.transactions.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.transactions.Update(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, newTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransactionsByType(w http.ResponseWriter, r *http.Request) {
	typ, err := core.ParseTransactionType(r.PathValue("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.findTransactions(w, r, core.TransactionFilter{Type: typ})
}

func (s *Server) handleTransactionsByCategory(w http.ResponseWriter, r *http.Request) {
	category := sanitizeInput(r.PathValue("category"))
	if category == "" {
		writeError(w, r, core.Validationf("category is required"))
		return
	}
	s.findTransactions(w, r, core.TransactionFilter{Category: category})
}

func (s *Server) handleTransactionsByDateRange(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r.URL.Query(), true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.findTransactions(w, r, core.TransactionFilter{DateRange: rng})
}

func (s *Server) handleTransactionsByTypeAndDateRange(w http.ResponseWriter, r *http.Request) {
	typ, err := core.ParseTransactionType(r.PathValue("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := parseDateRange(r.URL.Query(), true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.findTransactions(w, r, core.TransactionFilter{Type: typ, DateRange: rng})
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	txs, err := s.transactions.Recent(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionList(txs))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	cats, err := s.transactions.Categories(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// findTransactions serves the unpaged filtered listings, newest first.
func (s *Server) findTransactions(w http.ResponseWriter, r *http.Request, f core.TransactionFilter) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	f, err := f.Normalize()
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.transactions.Find(r.Context(), userID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionList(txs))
}
