package http

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"apartment/internal/core"
	"apartment/internal/log"

	"github.com/google/uuid"
)

type transactionRequest struct {
	RegisterID    string  `json:"registerId"`
	Amount        Amount  `json:"amount"`
	Direction     string  `json:"direction"`
	Description   *string `json:"description"`
	ApartmentID   *string `json:"apartmentId"`
	FeeCategoryID *string `json:"feeCategoryId"`
}

func (req transactionRequest) toNewTransaction() (core.NewTransaction, error) {
	rawRegister := strings.TrimSpace(req.RegisterID)
	if rawRegister == "" {
		return core.NewTransaction{}, core.NewValidationError("registerId", "is required")
	}
	registerID, err := uuid.Parse(rawRegister)
	if err != nil {
		return core.NewTransaction{}, core.NewValidationError("registerId", "must be a valid UUID")
	}
	amount, err := req.Amount.Decimal()
	if err != nil {
		return core.NewTransaction{}, err
	}
	direction, err := core.ParseDirection(req.Direction)
	if err != nil {
		return core.NewTransaction{}, err
	}
	apartmentID, err := OptionalUUID(req.ApartmentID, "apartmentId")
	if err != nil {
		return core.NewTransaction{}, err
	}
	feeCategoryID, err := OptionalUUID(req.FeeCategoryID, "feeCategoryId")
	if err != nil {
		return core.NewTransaction{}, err
	}

	n := core.NewTransaction{
		RegisterID:    registerID,
		ApartmentID:   apartmentID,
		FeeCategoryID: feeCategoryID,
		Amount:        amount,
		Direction:     direction,
		Description:   sanitizeInput(optionalString(req.Description)),
	}
	return n, n.Validate()
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}
	n, err := req.toNewTransaction()
	if err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" {
		tx, err := s.ledger.Record(r.Context(), n)
		if err != nil {
			s.recordFailed(w, r, err)
			return
		}
		atomic.AddInt64(&s.appMetrics.transactionsRecorded, 1)
		writeCreatedTransaction(w, tx, false)
		return
	}

	if err := validIdempotencyKey(key); err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}
	tx, replayed, err := s.idempotency.Do(key, n, func() (core.Transaction, error) {
		return s.ledger.Record(r.Context(), n)
	})
	if err != nil {
		s.recordFailed(w, r, err)
		return
	}
	if replayed {
		atomic.AddInt64(&s.appMetrics.idempotentReplays, 1)
		s.requestLogger(r).InfoContext(r.Context(), "Idempotent submission replayed",
			log.FieldTransactionID, tx.ID.String())
	} else {
		atomic.AddInt64(&s.appMetrics.transactionsRecorded, 1)
	}
	writeCreatedTransaction(w, tx, replayed)
}

func (s *Server) recordFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrLimitExceeded) {
		atomic.AddInt64(&s.appMetrics.limitRejections, 1)
	}
	s.writeError(w, r, log.OpRecord, err)
}

func writeCreatedTransaction(w http.ResponseWriter, tx core.Transaction, replayed bool) {
	b := NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID.String())
	if replayed {
		b.Header(IdempotentReplayHeader, "true")
	}
	b.Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsDeleted, 1)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	txs, err := s.ledger.ListByRegister(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpSummary, err)
		return
	}
	sum, err := s.ledger.Summary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpSummary, err)
		return
	}
	NewJSONResponse().Body(sum).Write(w)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpMonthly, err)
		return
	}
	period, err := ParseMonthParams(r)
	if err != nil {
		s.writeError(w, r, log.OpMonthly, err)
		return
	}
	sum, err := s.ledger.MonthlySummary(r.Context(), id, period.Year, period.Month)
	if err != nil {
		s.writeError(w, r, log.OpMonthly, err)
		return
	}
	NewJSONResponse().Body(sum).Write(w)
}
