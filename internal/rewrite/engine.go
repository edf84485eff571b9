package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/upmyfee/internal/rpc"
	"github.com/shopspring/decimal"
)

const (
	DefaultUnlockTimeout = 60 * time.Second
	maxOutputs           = 2
)

// Prompter is the interactive side of a rewrite.
type Prompter interface {
	ShowSummary(plan Plan)
	ShowTransaction(label string, tx any)
	ShowSignedHex(hex string)
	// Confirm reports whether the user explicitly agreed.
	Confirm(question string) (bool, error)
	Passphrase(question string) (string, error)
}

// Exporter receives the signed transaction before it is broadcast.
type Exporter interface {
	ExportSigned(ctx context.Context, txid, hex string) error
}

type Engine struct {
	caller        rpc.Caller
	prompter      Prompter
	exporter      Exporter
	unlockTimeout time.Duration
}

type Option func(*Engine)

func WithUnlockTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.unlockTimeout = timeout
	}
}

func WithExporter(exporter Exporter) Option {
	return func(e *Engine) {
		e.exporter = exporter
	}
}

func NewEngine(caller rpc.Caller, prompter Prompter, opts ...Option) *Engine {
	engine := &Engine{
		caller:        caller,
		prompter:      prompter,
		unlockTimeout: DefaultUnlockTimeout,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Rewrite fetches txid, plans the new fee and runs the interactive workflow.
func (e *Engine) Rewrite(ctx context.Context, req Request) (Plan, Result, error) {
	tx, err := e.FetchTransaction(ctx, req.TxID)
	if err != nil {
		return Plan{}, Result{}, err
	}

	plan, err := e.PlanFeeRewrite(ctx, tx, req.Payer, req.Recipient, req.Fee)
	if err != nil {
		return Plan{}, Result{}, err
	}
	plan.TxID = req.TxID

	result, err := e.Execute(ctx, plan, req.Debug)
	return plan, result, err
}

func (e *Engine) FetchTransaction(ctx context.Context, txid string) (TransactionView, error) {
	rawHex, err := rpc.CallFor[string](ctx, e.caller, "getrawtransaction", txid)
	if err != nil {
		return TransactionView{}, fmt.Errorf("failed to fetch transaction %s: %w", txid, err)
	}
	_, tx, err := e.decode(ctx, rawHex)
	return tx, err
}

// FetchInputAmount returns the amount the wallet recorded for txid.
func (e *Engine) FetchInputAmount(ctx context.Context, txid string) (decimal.Decimal, error) {
	tx, err := rpc.CallFor[walletTransaction](ctx, e.caller, "gettransaction", txid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch input transaction %s: %w", txid, err)
	}
	return tx.Amount, nil
}

// PlanFeeRewrite moves the fee increase onto the payer's output and sends
// what is left of it to recipient. The only I/O is one amount lookup per input.
func (e *Engine) PlanFeeRewrite(ctx context.Context, tx TransactionView, payer, recipient string, newFee decimal.Decimal) (Plan, error) {
	if len(tx.Vout) > maxOutputs {
		return Plan{}, fmt.Errorf("%w: transaction has %d outputs", ErrUnsupportedShape, len(tx.Vout))
	}

	inputs := make([]Input, 0, len(tx.Vin))
	inputsSum := decimal.Zero
	for _, vin := range tx.Vin {
		amount, err := e.FetchInputAmount(ctx, vin.TxID)
		if err != nil {
			return Plan{}, err
		}
		inputs = append(inputs, Input{TxID: vin.TxID, Vout: vin.Vout})
		inputsSum = inputsSum.Add(amount)
	}

	outputsSum := decimal.Zero
	for _, vout := range tx.Vout {
		outputsSum = outputsSum.Add(vout.Value)
	}

	originalFee := inputsSum.Sub(outputsSum)
	if newFee.LessThanOrEqual(originalFee) {
		return Plan{}, fmt.Errorf("%w: original fee is %s, new fee is %s", ErrInvalidFee, originalFee, newFee)
	}

	for _, vout := range tx.Vout {
		if len(vout.Recipients()) != 1 {
			return Plan{}, fmt.Errorf("%w: output %d pays to %d addresses", ErrUnsupportedShape, vout.N, len(vout.Recipients()))
		}
	}

	payerIndex := -1
	for i, vout := range tx.Vout {
		if vout.Recipients()[0] != payer {
			continue
		}
		if payerIndex >= 0 {
			return Plan{}, fmt.Errorf("%w: payer %s receives more than one output", ErrUnsupportedShape, payer)
		}
		payerIndex = i
	}
	if payerIndex < 0 {
		return Plan{}, fmt.Errorf("%w: %s", ErrPayerNotFound, payer)
	}

	feeDelta := newFee.Sub(originalFee)
	outputs := make(map[string]decimal.Decimal, len(tx.Vout))
	for i, vout := range tx.Vout {
		if i != payerIndex {
			outputs[vout.Recipients()[0]] = vout.Value
		}
	}
	if _, taken := outputs[recipient]; taken {
		return Plan{}, fmt.Errorf("%w: recipient %s already receives another output", ErrUnsupportedShape, recipient)
	}

	originalPayerAmount := tx.Vout[payerIndex].Value
	newPayerAmount := originalPayerAmount.Sub(feeDelta)
	if !newPayerAmount.IsPositive() {
		return Plan{}, fmt.Errorf("%w: payer output is %s, fee increase is %s", ErrFeeTooLarge, originalPayerAmount, feeDelta)
	}
	outputs[recipient] = newPayerAmount

	return Plan{
		TxID:                tx.TxID,
		Payer:               payer,
		Recipient:           recipient,
		Inputs:              inputs,
		Outputs:             outputs,
		OriginalFee:         originalFee,
		NewFee:              newFee,
		FeeDelta:            feeDelta,
		OriginalPayerAmount: originalPayerAmount,
		NewPayerAmount:      newPayerAmount,
	}, nil
}

// Execute builds, signs and broadcasts plan, stopping at either confirmation
// gate if the user does not agree. A cancelled run is not an error.
func (e *Engine) Execute(ctx context.Context, plan Plan, debug bool) (Result, error) {
	result := Result{State: StateBuild}

	unsignedHex, err := rpc.CallFor[string](ctx, e.caller, "createrawtransaction", plan.Inputs, plan.Outputs)
	if err != nil {
		return result, fmt.Errorf("failed to create transaction: %w", err)
	}
	if debug {
		if err := e.show(ctx, "New unsigned transaction", unsignedHex); err != nil {
			return result, err
		}
	}

	e.transition(&result, StateConfirm)
	e.prompter.ShowSummary(plan)
	ok, err := e.prompter.Confirm("All is correct?")
	if err != nil {
		return result, err
	}
	if !ok {
		e.transition(&result, StateCancelled)
		return result, nil
	}

	e.transition(&result, StateUnlock)
	passphrase, err := e.prompter.Passphrase("Please enter the wallet passphrase")
	if err != nil {
		return result, err
	}
	_, err = e.caller.Call(ctx, "walletpassphrase", rpc.Secret(passphrase), int64(e.unlockTimeout/time.Second))
	if err != nil {
		return result, fmt.Errorf("failed to unlock wallet: %w", err)
	}

	e.transition(&result, StateSign)
	signed, err := rpc.CallFor[SignResult](ctx, e.caller, "signrawtransaction", unsignedHex)
	if err != nil {
		return result, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if !signed.Complete {
		return result, &SigningIncompleteError{Result: signed}
	}
	result.SignedHex = signed.Hex

	e.transition(&result, StateConfirmBroadcast)
	raw, signedTx, err := e.decode(ctx, signed.Hex)
	if err != nil {
		return result, err
	}
	if debug {
		if err := e.display("Signed transaction", raw); err != nil {
			return result, err
		}
	}
	if e.exporter != nil {
		if err := e.exporter.ExportSigned(ctx, signedTx.TxID, signed.Hex); err != nil {
			return result, fmt.Errorf("failed to export signed transaction: %w", err)
		}
	}
	e.prompter.ShowSignedHex(signed.Hex)
	ok, err = e.prompter.Confirm("Broadcast transaction using your node?")
	if err != nil {
		return result, err
	}
	if !ok {
		e.transition(&result, StateCancelled)
		return result, nil
	}

	e.transition(&result, StateBroadcast)
	txid, err := rpc.CallFor[string](ctx, e.caller, "sendrawtransaction", signed.Hex)
	if err != nil {
		return result, fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	result.TxID = txid
	e.transition(&result, StateDone)
	return result, nil
}

func (e *Engine) transition(result *Result, to State) {
	slog.Debug("Fee rewrite state", "from", result.State, "to", to)
	result.State = to
}

func (e *Engine) decode(ctx context.Context, hex string) (json.RawMessage, TransactionView, error) {
	raw, err := e.caller.Call(ctx, "decoderawtransaction", hex)
	if err != nil {
		return nil, TransactionView{}, fmt.Errorf("failed to decode transaction: %w", err)
	}
	var tx TransactionView
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, TransactionView{}, fmt.Errorf("failed to parse decoded transaction: %w", err)
	}
	return raw, tx, nil
}

func (e *Engine) show(ctx context.Context, label, hex string) error {
	raw, _, err := e.decode(ctx, hex)
	if err != nil {
		return err
	}
	return e.display(label, raw)
}

func (e *Engine) display(label string, raw json.RawMessage) error {
	value, err := rpc.DecodeValue(raw)
	if err != nil {
		return fmt.Errorf("failed to parse decoded transaction: %w", err)
	}
	e.prompter.ShowTransaction(label, value)
	return nil
}
