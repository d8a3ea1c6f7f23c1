package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/holiman/uint256"
	"github.com/sheikh-saqib/token-ledger/internal/jsonx"
	"github.com/sheikh-saqib/token-ledger/internal/ledger"
	"github.com/sheikh-saqib/token-ledger/internal/logx"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/monitoring"
	"github.com/shopspring/decimal"
)

const (
	CallerHeader      = "X-Caller-Address"
	IdempotencyHeader = "Idempotency-Key"
)

// Server is the HTTP front end of one Ledger.
type Server struct {
	ledger      *ledger.Ledger
	idempotency *idempotencyCache
	mux         *http.ServeMux
}

// NewServer exposes l over HTTP. The caller identity is taken from
// CallerHeader as-is; authenticating it is the job of whatever sits in front.
func NewServer(l *ledger.Ledger) *Server {
	s := &Server{
		ledger:      l,
		idempotency: newIdempotencyCache(defaultIdempotencyCapacity),
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.HandleFunc("GET /token", s.handleToken)
	s.mux.HandleFunc("GET /accounts/balance", s.handleBalance)
	s.mux.HandleFunc("GET /allowances", s.handleAllowance)
	s.mux.HandleFunc("GET /ledgerEntries", s.handleEntries)
	s.mux.HandleFunc("GET /audit", s.handleAudit)

	s.mux.HandleFunc("POST /transfers", s.mutation(s.transfer))
	s.mux.HandleFunc("POST /transfers/delegated", s.mutation(s.transferFrom))
	s.mux.HandleFunc("POST /approvals", s.mutation(s.approve))
	s.mux.HandleFunc("POST /approvals/increase", s.mutation(s.increaseApproval))
	s.mux.HandleFunc("POST /approvals/decrease", s.mutation(s.decreaseApproval))

	monitoring.RegisterMetrics(s.mux)
}

type amountView struct {
	Atomic  string          `json:"atomic"`
	Display decimal.Decimal `json:"display"`
}

func (s *Server) view(v *uint256.Int) amountView {
	return amountView{Atomic: v.Dec(), Display: models.DisplayAmount(v, s.ledger.Decimals())}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Name        string     `json:"name"`
		Symbol      string     `json:"symbol"`
		Decimals    uint8      `json:"decimals"`
		TotalSupply amountView `json:"total_supply"`
	}{
		Name:        s.ledger.Name(),
		Symbol:      s.ledger.Symbol(),
		Decimals:    s.ledger.Decimals(),
		TotalSupply: s.view(s.ledger.TotalSupply()),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("account_id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "account_id is a mandatory field")
		return
	}
	account, err := models.ParseAddress(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_address", err.Error())
		return
	}

	balance, err := s.ledger.BalanceOf(r.Context(), account)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		AccountID models.Address `json:"account_id"`
		Balance   amountView     `json:"balance"`
	}{account, s.view(balance)})
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, err := requireAddress(q.Get("owner"), "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_address", err.Error())
		return
	}
	spender, err := requireAddress(q.Get("spender"), "spender")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_address", err.Error())
		return
	}

	allowance, err := s.ledger.Allowance(r.Context(), owner, spender)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Owner     models.Address `json:"owner"`
		Spender   models.Address `json:"spender"`
		Allowance amountView     `json:"allowance"`
	}{owner, spender, s.view(allowance)})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	var account models.Address
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		var err error
		if account, err = models.ParseAddress(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_address", err.Error())
			return
		}
	}

	entries, err := s.ledger.Entries(r.Context(), account)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.ledger.Audit(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Holders     int        `json:"holders"`
		Sum         amountView `json:"sum"`
		TotalSupply amountView `json:"total_supply"`
	}{report.Holders, s.view(report.Sum), s.view(report.TotalSupply)})
}

// mutationRequest is the union of every mutation body; each operation reads
// the fields it needs.
type mutationRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
	Delta   string `json:"delta"`
}

type operation func(ctx context.Context, caller models.Address, req mutationRequest) (*models.Receipt, error)

type receiptView struct {
	*models.Receipt
	Amount    *amountView `json:"amount,omitempty"`
	Allowance *amountView `json:"allowance,omitempty"`
}

func (s *Server) mutation(op operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := requireAddress(r.Header.Get(CallerHeader), CallerHeader)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_caller", err.Error())
			return
		}
		// "0" and "0x0" parse to the null address, which can never act
		if caller.IsNull() {
			writeError(w, http.StatusUnauthorized, "invalid_caller", CallerHeader+": null address cannot act")
			return
		}

		route := r.URL.Path
		key := r.Header.Get(IdempotencyHeader)
		if key != "" {
			if prior, ok := s.idempotency.get(route, caller, key); ok {
				writeJSON(w, http.StatusOK, s.receiptView(prior))
				return
			}
		}

		var req mutationRequest
		if err := jsonx.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
			return
		}

		receipt, err := op(r.Context(), caller, req)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		if key != "" {
			s.idempotency.put(route, caller, key, receipt)
		}
		writeJSON(w, http.StatusCreated, s.receiptView(receipt))
	}
}

func (s *Server) receiptView(r *models.Receipt) receiptView {
	v := receiptView{Receipt: r}
	if r.Amount != nil {
		a := s.view(r.Amount)
		v.Amount = &a
	}
	if r.Allowance != nil {
		a := s.view(r.Allowance)
		v.Allowance = &a
	}
	return v
}

func (s *Server) transfer(ctx context.Context, caller models.Address, req mutationRequest) (*models.Receipt, error) {
	to, err := models.ParseAddress(req.To)
	if err != nil {
		return nil, badRequest("to", err)
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return nil, err
	}
	return s.ledger.Transfer(ctx, caller, to, amount)
}

func (s *Server) transferFrom(ctx context.Context, caller models.Address, req mutationRequest) (*models.Receipt, error) {
	from, err := models.ParseAddress(req.From)
	if err != nil {
		return nil, badRequest("from", err)
	}
	to, err := models.ParseAddress(req.To)
	if err != nil {
		return nil, badRequest("to", err)
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return nil, err
	}
	return s.ledger.TransferFrom(ctx, caller, from, to, amount)
}

func (s *Server) approve(ctx context.Context, caller models.Address, req mutationRequest) (*models.Receipt, error) {
	spender, err := models.ParseAddress(req.Spender)
	if err != nil {
		return nil, badRequest("spender", err)
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return nil, err
	}
	return s.ledger.Approve(ctx, caller, spender, amount)
}

func (s *Server) increaseApproval(ctx context.Context, caller models.Address, req mutationRequest) (*models.Receipt, error) {
	spender, err := models.ParseAddress(req.Spender)
	if err != nil {
		return nil, badRequest("spender", err)
	}
	delta, err := parseAmount(req.Delta, "delta")
	if err != nil {
		return nil, err
	}
	return s.ledger.IncreaseApproval(ctx, caller, spender, delta)
}

func (s *Server) decreaseApproval(ctx context.Context, caller models.Address, req mutationRequest) (*models.Receipt, error) {
	spender, err := models.ParseAddress(req.Spender)
	if err != nil {
		return nil, badRequest("spender", err)
	}
	delta, err := parseAmount(req.Delta, "delta")
	if err != nil {
		return nil, err
	}
	return s.ledger.DecreaseApproval(ctx, caller, spender, delta)
}

// requestError is an input problem found before the ledger is called.
type requestError struct {
	field string
	err   error
}

func (e *requestError) Error() string { return fmt.Sprintf("%s: %v", e.field, e.err) }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(field string, err error) error {
	return &requestError{field: field, err: err}
}

func parseAmount(raw, field string) (*uint256.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, badRequest(field, errors.New("required"))
	}
	v, err := models.ParseAmount(strings.TrimSpace(raw))
	if err != nil {
		return nil, badRequest(field, err)
	}
	return v, nil
}

func requireAddress(raw, field string) (models.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return "", badRequest(field, errors.New("required"))
	}
	addr, err := models.ParseAddress(raw)
	if err != nil {
		return "", badRequest(field, err)
	}
	return addr, nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func writeLedgerError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ledger.ErrInvalidRecipient):
		writeError(w, http.StatusBadRequest, "invalid_recipient", err.Error())
	case errors.Is(err, ledger.ErrInvalidSender):
		writeError(w, http.StatusBadRequest, "invalid_sender", err.Error())
	case errors.Is(err, ledger.ErrInvalidSpender):
		writeError(w, http.StatusBadRequest, "invalid_spender", err.Error())
	case errors.Is(err, ledger.ErrInvalidOwner):
		writeError(w, http.StatusBadRequest, "invalid_owner", err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error())
	case errors.Is(err, ledger.ErrInsufficientAllowance):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_allowance", err.Error())
	case errors.Is(err, ledger.ErrArithmeticOverflow):
		writeError(w, http.StatusUnprocessableEntity, "arithmetic_overflow", err.Error())
	case errors.Is(err, ledger.ErrInvariantViolated):
		logx.Error("API", "Ledger invariant violated: ", err)
		writeError(w, http.StatusInternalServerError, "invariant_violated", err.Error())
	default:
		logx.Error("API", "Request failed: ", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonx.NewEncoder(w).Encode(body); err != nil {
		logx.Warn("API", "Failed to encode response: ", err)
	}
}
