package rewrite

import (
	"github.com/shopspring/decimal"
)

// Input references a previous output. Only the fields createrawtransaction
// needs are kept.
type Input struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

type ScriptPubKey struct {
	Type      string   `json:"type"`
	Addresses []string `json:"addresses"`
	// Address is what newer nodes report in place of Addresses.
	Address string `json:"address"`
}

type Output struct {
	Value        decimal.Decimal `json:"value"`
	N            uint32          `json:"n"`
	ScriptPubKey ScriptPubKey    `json:"scriptPubKey"`
}

// Recipients returns the addresses an output pays to.
func (o Output) Recipients() []string {
	if len(o.ScriptPubKey.Addresses) > 0 {
		return o.ScriptPubKey.Addresses
	}
	if o.ScriptPubKey.Address != "" {
		return []string{o.ScriptPubKey.Address}
	}
	return nil
}

// TransactionView is the decoderawtransaction form of a transaction.
type TransactionView struct {
	TxID string   `json:"txid"`
	Vin  []Input  `json:"vin"`
	Vout []Output `json:"vout"`
}

type walletTransaction struct {
	Amount decimal.Decimal `json:"amount"`
}

type SignError struct {
	TxID      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	ScriptSig string `json:"scriptSig"`
	Sequence  uint32 `json:"sequence"`
	Error     string `json:"error"`
}

type SignResult struct {
	Hex      string      `json:"hex"`
	Complete bool        `json:"complete"`
	Errors   []SignError `json:"errors,omitempty"`
}

// Plan is a fee rewrite ready to be built into a new transaction.
type Plan struct {
	TxID      string
	Payer     string
	Recipient string
	Inputs    []Input
	// Outputs maps each address to the amount it receives.
	Outputs             map[string]decimal.Decimal
	OriginalFee         decimal.Decimal
	NewFee              decimal.Decimal
	FeeDelta            decimal.Decimal
	OriginalPayerAmount decimal.Decimal
	NewPayerAmount      decimal.Decimal
}

type State string

const (
	StateBuild            State = "BUILD"
	StateConfirm          State = "CONFIRM"
	StateUnlock           State = "UNLOCK"
	StateSign             State = "SIGN"
	StateConfirmBroadcast State = "CONFIRM_BROADCAST"
	StateBroadcast        State = "BROADCAST"
	StateDone             State = "DONE"
	StateCancelled        State = "CANCELLED"
)

// Result is how a rewrite ended. TxID is set only once the new transaction
// has been broadcast.
type Result struct {
	State     State
	TxID      string
	SignedHex string
}

func (r Result) Cancelled() bool {
	return r.State == StateCancelled
}

type Request struct {
	TxID      string
	Payer     string
	Recipient string
	Fee       decimal.Decimal
	Debug     bool
}
