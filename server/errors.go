package server

import (
	"errors"
	"net/http"

	"flashvault/engine"
	"flashvault/native/executor"
	"flashvault/native/flashloan"
	"flashvault/native/pool"
)

// statusFor maps a sentinel error surfaced by the engine facade (or one of
// its components) to an HTTP status code, the way the teacher's
// services/lending/server/errors.go maps the same sentinels to gRPC codes.
// Errors not recognized here fall back to 500.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, engine.ErrNotOwner),
		errors.Is(err, executor.ErrNotExecutorOwner):
		return http.StatusForbidden

	case errors.Is(err, engine.ErrNotInitialized):
		return http.StatusPreconditionFailed

	case errors.Is(err, engine.ErrAlreadyInitialized):
		return http.StatusConflict

	case errors.Is(err, engine.ErrFeeOutOfRange),
		errors.Is(err, engine.ErrInvalidAsset),
		errors.Is(err, pool.ErrInvalidAmount),
		errors.Is(err, pool.ErrDepositTooSmall),
		errors.Is(err, pool.ErrBpsOutOfRange),
		errors.Is(err, flashloan.ErrInvalidAmount),
		errors.Is(err, flashloan.ErrEmptyAssetList),
		errors.Is(err, flashloan.ErrLengthMismatch),
		errors.Is(err, executor.ErrEmptyScript):
		return http.StatusBadRequest

	case errors.Is(err, pool.ErrNothingToWithdraw),
		errors.Is(err, pool.ErrNoVoteRecorded),
		errors.Is(err, pool.ErrNoProposal):
		return http.StatusNotFound

	case errors.Is(err, pool.ErrInsufficientBalance),
		errors.Is(err, pool.ErrInsufficientLiquidity),
		errors.Is(err, flashloan.ErrInsufficientLiquidity):
		return http.StatusUnprocessableEntity

	case errors.Is(err, pool.ErrProposalNoLongerWinning),
		errors.Is(err, pool.ErrProposalNotReady),
		errors.Is(err, pool.ErrPoolPaused),
		errors.Is(err, executor.ErrAlreadyRunning):
		return http.StatusConflict

	case errors.Is(err, flashloan.ErrReentrant):
		return http.StatusLocked

	case errors.Is(err, flashloan.ErrReceiverCallFailed),
		errors.Is(err, flashloan.ErrNotRepaid),
		errors.Is(err, executor.ErrOperationFailed):
		return http.StatusUnprocessableEntity

	case errors.Is(err, flashloan.ErrSolvencyViolation):
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
