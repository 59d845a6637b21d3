package server

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flashvault/crypto"
	"flashvault/engine"
)

// API wires the engine facade to HTTP handlers. Flash loans are a
// deliberately in-process capability: spec.md's receiver is a callable,
// not a JSON payload, so the flash-loan surface is reached through an
// embedding executor/receiver rather than this HTTP layer (SPEC_FULL.md
// §12 documents the gRPC-to-HTTP surface decision this API adapts).
type API struct {
	engine  *engine.Engine
	metrics Metrics
}

// Metrics is the subset of observability/metrics.Metrics the HTTP layer
// touches directly, kept narrow so handlers don't depend on the whole
// bundle.
type Metrics = metricsRequestRecorder

type metricsRequestRecorder interface {
	ObserveRequest(route, statusClass string, seconds float64)
}

// NewAPI constructs an API bound to eng. metrics may be nil.
func NewAPI(eng *engine.Engine, metrics Metrics) *API {
	return &API{engine: eng, metrics: metrics}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func parseAddress(raw string) (crypto.Address, error) {
	return crypto.DecodeAddress(raw)
}

func parseAmount(raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	return amount, ok
}

func assetParam(r *http.Request) (crypto.Address, error) {
	return parseAddress(chi.URLParam(r, "asset"))
}

// --- mutating handlers -----------------------------------------------

type initializeRequest struct {
	ManagementFeePct uint64 `json:"managementFeePct"`
}

func (a *API) Initialize(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	var req initializeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.engine.Initialize(caller, req.ManagementFeePct); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"initialized": true})
}

type depositRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (a *API) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	shares, err := a.engine.Deposit(caller, asset, amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if a.metrics != nil {
		a.metrics.ObserveRequest("deposit", "2xx", 0)
	}
	writeJSON(w, http.StatusOK, map[string]string{"sharesMinted": shares.String()})
}

func (a *API) WithdrawAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	principal, fees, err := a.engine.WithdrawAll(caller, asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"principal": principal.String(),
		"fees":      fees.String(),
	})
}

func (a *API) WithdrawFeesOnly(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	fees, err := a.engine.WithdrawFeesOnly(caller, asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fees": fees.String()})
}

type voteRequest struct {
	Bps uint64 `json:"bps"`
}

func (a *API) VoteForLPFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.engine.VoteForLPFee(caller, asset, req.Bps); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"voted": true})
}

func (a *API) ProposeLPFeeChange(w http.ResponseWriter, r *http.Request) {
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.engine.ProposeLPFeeChange(asset, req.Bps); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"proposed": true})
}

func (a *API) ExecuteLPFeeChange(w http.ResponseWriter, r *http.Request) {
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.engine.ExecuteLPFeeChange(asset, req.Bps); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"executed": true})
}

// --- owner-only handlers -----------------------------------------------

func (a *API) SetLPFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.engine.SetLPFee(caller, asset, req.Bps); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"set": true})
}

type setPoolPausedRequest struct {
	Paused bool `json:"paused"`
}

func (a *API) SetPoolPaused(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	var req setPoolPausedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.engine.SetPoolPaused(caller, asset, req.Paused); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

type managementFeeRequest struct {
	Pct uint64 `json:"pct"`
}

func (a *API) SetManagementFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	var req managementFeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.engine.SetManagementFee(caller, req.Pct); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"set": true})
}

func (a *API) WithdrawManagementFees(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	amount, err := a.engine.WithdrawManagementFees(caller, asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

type transferOwnershipRequest struct {
	NewOwner string `json:"newOwner"`
}

func (a *API) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller")
		return
	}
	var req transferOwnershipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	newOwner, err := parseAddress(req.NewOwner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid newOwner")
		return
	}
	if err := a.engine.TransferOwnership(caller, newOwner); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"transferred": true})
}

// --- read-only views -----------------------------------------------

func (a *API) GetDepositedTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := a.engine.GetDepositedTokens()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addressList(tokens))
}

func (a *API) GetUserDepositedTokens(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account")
		return
	}
	tokens, err := a.engine.GetUserDepositedTokens(account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addressList(tokens))
}

func (a *API) TotalLiquidity(w http.ResponseWriter, r *http.Request) {
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	total, err := a.engine.TotalLiquidity(asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"totalLiquidity": total.String()})
}

func (a *API) TotalShares(w http.ResponseWriter, r *http.Request) {
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	total, err := a.engine.TotalShares(asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"totalShares": total.String()})
}

func (a *API) GetEffectiveLPFee(w http.ResponseWriter, r *http.Request) {
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	bps, err := a.engine.GetEffectiveLPFee(asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"lpFeeBps": bps})
}

func (a *API) GetWithdrawableAmount(w http.ResponseWriter, r *http.Request) {
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	account, err := parseAddress(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account")
		return
	}
	view, err := a.engine.GetWithdrawableAmount(asset, account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"net":       view.Net.String(),
		"gross":     view.Gross.String(),
		"principal": view.Principal.String(),
		"fees":      view.Fees.String(),
		"exitFee":   view.ExitFee.String(),
	})
}

func (a *API) ProposedFeeChanges(w http.ResponseWriter, r *http.Request) {
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	bps, ok := parseBpsQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid bps")
		return
	}
	execBlock, err := a.engine.ProposedFeeChanges(asset, bps)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"execBlock": execBlock})
}

func (a *API) LPFeeSharesTotalVotes(w http.ResponseWriter, r *http.Request) {
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	bps, ok := parseBpsQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid bps")
		return
	}
	votes, err := a.engine.LPFeeSharesTotalVotes(asset, bps)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"votes": votes.String()})
}

type governanceAuditRecordView struct {
	Sequence    uint64 `json:"sequence"`
	BlockHeight uint64 `json:"blockHeight"`
	Event       string `json:"event"`
	Actor       string `json:"actor"`
	Bps         uint64 `json:"bps"`
}

func (a *API) GovernanceAuditLog(w http.ResponseWriter, r *http.Request) {
	asset, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	log, err := a.engine.GovernanceAuditLog(asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]governanceAuditRecordView, 0, len(log))
	for _, rec := range log {
		out = append(out, governanceAuditRecordView{
			Sequence:    rec.Sequence,
			BlockHeight: rec.BlockHeight,
			Event:       rec.Event,
			Actor:       rec.Actor.String(),
			Bps:         rec.Bps,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func addressList(addrs []crypto.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.String())
	}
	return out
}

func parseBpsQuery(r *http.Request) (uint64, bool) {
	raw := r.URL.Query().Get("bps")
	if raw == "" {
		return 0, false
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || !amount.IsUint64() {
		return 0, false
	}
	return amount.Uint64(), true
}
