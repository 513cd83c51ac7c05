package guardianvault

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/spf13/cast"
	"github.com/twitchtv/twirp"
)

func (s *Server) Handler() http.Handler {
	m := chi.NewMux()
	m.Use(middleware.Recoverer)
	m.Use(middleware.RealIP)
	m.Use(middleware.Logger)
	m.Use(middleware.Heartbeat("/hc"))
	m.Use(cors.AllowAll().Handler)
	m.Use(handleAuth(s.cfg.Issuer, s.cfg.Secret))

	m.Post("/vaults", s.createVault)
	m.Get("/vaults/{vault}", s.getVault)
	m.Post("/vaults/{vault}/deposits", s.deposit)
	m.Put("/vaults/{vault}/config", s.updateConfig)
	m.Put("/vaults/{vault}/active", s.setActive)
	m.Post("/vaults/{vault}/spends", s.agentSpend)
	m.Post("/vaults/{vault}/withdrawals", s.createWithdrawal)
	m.Get("/vaults/{vault}/withdrawals", s.listWithdrawals)
	m.Get("/vaults/{vault}/withdrawals/{nonce}", s.getWithdrawal)
	m.Post("/vaults/{vault}/withdrawals/{nonce}/approve", s.approveWithdrawal)
	m.Post("/vaults/{vault}/withdrawals/{nonce}/execute", s.executeWithdrawal)
	m.Post("/vaults/{vault}/withdrawals/{nonce}/cancel", s.cancelWithdrawal)
	m.Post("/vaults/{vault}/emergency", s.emergencyWithdraw)
	m.Get("/accounts/{account}", s.getAccount)

	return m
}

func renderJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)

	_ = json.NewEncoder(w).Encode(v)
}

func errorCode(err error) twirp.ErrorCode {
	switch {
	case errors.Is(err, ErrUnauthorizedAdmin),
		errors.Is(err, ErrUnauthorizedAgent),
		errors.Is(err, ErrUnauthorizedSigner),
		errors.Is(err, ErrUnauthorizedInitiator):
		return twirp.PermissionDenied
	case errors.Is(err, ErrVaultNotFound),
		errors.Is(err, ErrWithdrawalNotFound):
		return twirp.NotFound
	case errors.Is(err, ErrVaultExists),
		errors.Is(err, ErrWithdrawalExists):
		return twirp.AlreadyExists
	case errors.Is(err, ErrZeroAmount),
		errors.Is(err, ErrTooManySigners),
		errors.Is(err, ErrDuplicateSigner),
		errors.Is(err, ErrInvalidThreshold),
		errors.Is(err, ErrInvalidGuardianID):
		return twirp.InvalidArgument
	case errors.Is(err, ErrOverflow):
		return twirp.OutOfRange
	case errors.Is(err, ErrVaultNotActive),
		errors.Is(err, ErrPerTxLimitExceeded),
		errors.Is(err, ErrDailyLimitExceeded),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrThresholdNotMet),
		errors.Is(err, ErrAlreadyApproved),
		errors.Is(err, ErrAlreadyExecuted),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrPendingWithdrawals):
		return twirp.FailedPrecondition
	default:
		return twirp.Internal
	}
}

// renderErr writes the error with its taxonomy name attached, so callers
// can branch on cause instead of a generic denial.
func renderErr(w http.ResponseWriter, err error) {
	var twerr twirp.Error
	if errors.As(err, &twerr) {
		_ = twirp.WriteError(w, twerr)
		return
	}

	e := twirp.NewError(errorCode(err), err.Error())
	if name := ErrorName(err); name != "" {
		e = e.WithMeta("code", name)
	}

	_ = twirp.WriteError(w, e)
}

func vaultParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "vault"))
	if err != nil {
		return uuid.Nil, twirp.InvalidArgumentError("vault", "invalid vault id")
	}

	return id, nil
}

func nonceParam(r *http.Request) uint64 {
	return cast.ToUint64(chi.URLParam(r, "nonce"))
}

func (s *Server) createVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	var body struct {
		GuardianID uint8    `json:"guardian_id"`
		Agent      string   `json:"agent"`
		PerTxLimit string   `json:"per_tx_limit"`
		DailyLimit string   `json:"daily_limit"`
		Threshold  uint8    `json:"threshold"`
		Signers    []string `json:"signers"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderErr(w, twirp.InvalidArgumentError("body", err.Error()))
		return
	}

	if !govalidator.IsUUID(body.Agent) {
		renderErr(w, twirp.InvalidArgumentError("agent", "invalid agent id"))
		return
	}

	for _, signer := range body.Signers {
		if !govalidator.IsUUID(signer) {
			renderErr(w, twirp.InvalidArgumentError("signers", "invalid signer id"))
			return
		}
	}

	perTx, err := ParseLimit(body.PerTxLimit)
	if err != nil {
		renderErr(w, twirp.InvalidArgumentError("per_tx_limit", err.Error()))
		return
	}

	daily, err := ParseLimit(body.DailyLimit)
	if err != nil {
		renderErr(w, twirp.InvalidArgumentError("daily_limit", err.Error()))
		return
	}

	vault, err := s.CreateVault(ctx, admin, CreateVaultInput{
		GuardianID: body.GuardianID,
		Agent:      body.Agent,
		PerTxLimit: perTx,
		DailyLimit: daily,
		Threshold:  body.Threshold,
		Signers:    body.Signers,
	})

	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, vault)
}

func (s *Server) getVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	vault, err := s.GetVault(ctx, id)
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, vault)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	var body struct {
		Amount string `json:"amount"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderErr(w, twirp.InvalidArgumentError("body", err.Error()))
		return
	}

	amount, err := ParseAmount(body.Amount)
	if err != nil {
		renderErr(w, err)
		return
	}

	vault, err := s.Deposit(ctx, caller, id, amount)
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, vault)
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	var body struct {
		Agent      *string  `json:"agent"`
		PerTxLimit *string  `json:"per_tx_limit"`
		DailyLimit *string  `json:"daily_limit"`
		Threshold  *uint8   `json:"threshold"`
		Signers    []string `json:"signers"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderErr(w, twirp.InvalidArgumentError("body", err.Error()))
		return
	}

	upd := ConfigUpdate{
		Threshold: body.Threshold,
		Signers:   body.Signers,
	}

	if body.Agent != nil {
		if !govalidator.IsUUID(*body.Agent) {
			renderErr(w, twirp.InvalidArgumentError("agent", "invalid agent id"))
			return
		}

		upd.Agent = body.Agent
	}

	for _, signer := range body.Signers {
		if !govalidator.IsUUID(signer) {
			renderErr(w, twirp.InvalidArgumentError("signers", "invalid signer id"))
			return
		}
	}

	if body.PerTxLimit != nil {
		limit, err := ParseLimit(*body.PerTxLimit)
		if err != nil {
			renderErr(w, twirp.InvalidArgumentError("per_tx_limit", err.Error()))
			return
		}

		upd.PerTxLimit = &limit
	}

	if body.DailyLimit != nil {
		limit, err := ParseLimit(*body.DailyLimit)
		if err != nil {
			renderErr(w, twirp.InvalidArgumentError("daily_limit", err.Error()))
			return
		}

		upd.DailyLimit = &limit
	}

	vault, err := s.UpdateConfig(ctx, caller, id, upd)
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, vault)
}

func (s *Server) setActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	var body struct {
		Active bool `json:"active"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderErr(w, twirp.InvalidArgumentError("body", err.Error()))
		return
	}

	vault, err := s.SetActive(ctx, caller, id, body.Active)
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, vault)
}

func (s *Server) agentSpend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	var body struct {
		Destination string `json:"destination"`
		Amount      string `json:"amount"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderErr(w, twirp.InvalidArgumentError("body", err.Error()))
		return
	}

	if !govalidator.IsUUID(body.Destination) {
		renderErr(w, twirp.InvalidArgumentError("destination", "invalid destination"))
		return
	}

	amount, err := ParseAmount(body.Amount)
	if err != nil {
		renderErr(w, err)
		return
	}

	vault, err := s.AgentSpend(ctx, caller, id, body.Destination, amount)
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, vault)
}

func (s *Server) createWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	var body struct {
		Destination string `json:"destination"`
		Amount      string `json:"amount"`
		Nonce       uint64 `json:"nonce"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderErr(w, twirp.InvalidArgumentError("body", err.Error()))
		return
	}

	if !govalidator.IsUUID(body.Destination) {
		renderErr(w, twirp.InvalidArgumentError("destination", "invalid destination"))
		return
	}

	amount, err := ParseAmount(body.Amount)
	if err != nil {
		renderErr(w, err)
		return
	}

	req, err := s.CreateWithdrawal(ctx, caller, id, body.Destination, amount, body.Nonce)
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, req)
}

func (s *Server) listWithdrawals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	limit := cast.ToInt(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	requests, err := s.ListWithdrawals(ctx, id, limit)
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, requests)
}

func (s *Server) getWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	req, err := s.GetWithdrawal(ctx, id, nonceParam(r))
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, req)
}

func (s *Server) approveWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	req, err := s.ApproveWithdrawal(ctx, caller, id, nonceParam(r))
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, req)
}

func (s *Server) executeWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	req, err := s.ExecuteWithdrawal(ctx, caller, id, nonceParam(r))
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, req)
}

func (s *Server) cancelWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	req, err := s.CancelWithdrawal(ctx, caller, id, nonceParam(r))
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, req)
}

func (s *Server) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFrom(ctx)
	if !ok {
		renderErr(w, twirp.Unauthenticated.Error("unauthenticated"))
		return
	}

	id, err := vaultParam(r)
	if err != nil {
		renderErr(w, err)
		return
	}

	var body struct {
		Destination string `json:"destination"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderErr(w, twirp.InvalidArgumentError("body", err.Error()))
		return
	}

	if !govalidator.IsUUID(body.Destination) {
		renderErr(w, twirp.InvalidArgumentError("destination", "invalid destination"))
		return
	}

	amount, err := s.EmergencyWithdraw(ctx, caller, id, body.Destination)
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, map[string]string{"amount": FormatAmount(amount)})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := s.GetAccount(ctx, chi.URLParam(r, "account"))
	if err != nil {
		renderErr(w, err)
		return
	}

	renderJSON(w, account)
}
