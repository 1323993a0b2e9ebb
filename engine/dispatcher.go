package engine

import (
	"log"

	"github.com/solvernet/intentd/core"
)

// WithdrawRequest describes one external transfer leg produced by a
// withdraw intent. The ledger debit has already been durably applied when
// the dispatcher sees the request.
type WithdrawRequest struct {
	Owner    string
	Receiver string
	Token    core.TokenID
	Amount   core.Uint128
	Memo     string
	Msg      string
}

// TransferDispatcher initiates outbound transfers to foreign token
// contracts. Dispatch must not block settlement: the eventual success or
// failure is reconciled by a later ResolveWithdraw call on the engine,
// never by the original batch.
type TransferDispatcher interface {
	Dispatch(req WithdrawRequest)
}

// LogDispatcher records requests to the process log. It is the default when
// no outbound integration is wired.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(req WithdrawRequest) {
	log.Printf("[dispatch] withdraw %s %s from %s to %s", req.Amount, req.Token, req.Owner, req.Receiver)
}
