package txbuild

import (
	"fmt"

	"github.com/shopspring/decimal"

	"orren/internal/model"
)

// Mode selects which side of the conversion is fixed.
type Mode string

const (
	ModeExactIn  Mode = "exact-in"
	ModeExactOut Mode = "exact-out"
)

// exactOutSendBuffer is the extra send headroom applied in exact-out mode.
var exactOutSendBuffer = decimal.NewFromFloat(1.02)

var tenThousand = decimal.NewFromInt(10_000)

// FeeInfo carries the dynamic-fee outcome into the build: the fee in basis
// points, the gross output it was derived from, and the fee-adjusted net.
type FeeInfo struct {
	FeeBps int64
	Gross  decimal.Decimal
	Net    decimal.Decimal
}

// Options tune a build request. MinOut overrides any derived
// minimum-receive floor; SlippageBps derives one from the expected output;
// Fee appends a fee-collection instruction and backs the fallback floor.
type Options struct {
	MinOut      string
	SlippageBps int64
	Mode        Mode
	Fee         *FeeInfo
}

// Builder turns quotes into instruction sequences. The fee-collection
// account receives the trailing fee payment when fee info is supplied.
type Builder struct {
	feeAccount string
}

// NewBuilder constructs a Builder paying fees to feeAccount.
func NewBuilder(feeAccount string) *Builder {
	return &Builder{feeAccount: feeAccount}
}

// Build emits the ordered instruction sequence executing the quote for
// account. Composite routes produce one instruction per leg; when fee info
// is present a trailing fee payment is appended after the final leg.
func (b *Builder) Build(quote *model.QuoteResponse, req model.QuoteRequest, account string, opts Options) ([]Instruction, error) {
	if quote.RouteType.Composite() {
		return b.buildComposite(quote, req, account, opts)
	}

	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	expectedOut, err := decimal.NewFromString(quote.ExpectedOut)
	if err != nil {
		return nil, fmt.Errorf("parse expected_out %q: %w", quote.ExpectedOut, err)
	}

	var primary Instruction
	switch quote.RouteType {
	case model.RouteAMM:
		primary, err = b.buildAMM(quote, req, account, amount, expectedOut, opts)
	case model.RouteCLOB:
		primary, err = b.buildCLOB(req, account, amount, expectedOut, opts)
	default:
		return nil, fmt.Errorf("route %s cannot be executed as ledger instructions", quote.RouteType)
	}
	if err != nil {
		return nil, err
	}

	instructions := []Instruction{primary}
	if opts.Fee != nil {
		feeInstr, err := b.buildFeePayment(req.DestinationAsset, account, opts.Fee)
		if err != nil {
			return nil, err
		}
		if feeInstr != nil {
			instructions = append(instructions, *feeInstr)
		}
	}
	return instructions, nil
}

// buildComposite recurses into the legs: source -> hub, then hub ->
// destination. Fee info applies only to the final leg so exactly one
// trailing fee instruction is emitted.
func (b *Builder) buildComposite(quote *model.QuoteResponse, req model.QuoteRequest, account string, opts Options) ([]Instruction, error) {
	if quote.Metadata == nil || quote.Metadata.Leg1 == nil || quote.Metadata.Leg2 == nil {
		return nil, fmt.Errorf("%s route missing leg information", quote.RouteType)
	}
	hub := model.Native()

	leg1Opts := opts
	leg1Opts.Fee = nil
	leg1, err := b.Build(quote.Metadata.Leg1, model.QuoteRequest{
		SourceAsset:      req.SourceAsset,
		DestinationAsset: hub,
		Amount:           req.Amount,
	}, account, leg1Opts)
	if err != nil {
		return nil, fmt.Errorf("leg1: %w", err)
	}

	leg2, err := b.Build(quote.Metadata.Leg2, model.QuoteRequest{
		SourceAsset:      hub,
		DestinationAsset: req.DestinationAsset,
		Amount:           quote.Metadata.Leg1.ExpectedOut,
	}, account, opts)
	if err != nil {
		return nil, fmt.Errorf("leg2: %w", err)
	}

	return append(leg1, leg2...), nil
}

func (b *Builder) buildAMM(quote *model.QuoteResponse, req model.QuoteRequest, account string, amount, expectedOut decimal.Decimal, opts Options) (Instruction, error) {
	destination := account
	if quote.Metadata != nil && quote.Metadata.AMMAccount != "" {
		destination = quote.Metadata.AMMAccount
	}

	deliver, err := formatAmount(req.DestinationAsset, expectedOut)
	if err != nil {
		return nil, err
	}

	tx := Payment{
		TransactionType: "Payment",
		Account:         account,
		Destination:     destination,
		Amount:          deliver,
	}

	if opts.Mode == ModeExactOut {
		// Fixed receive target: buffer the send ceiling, allow partial
		// delivery, and floor the receive at the target itself.
		sendMax, err := formatAmount(req.SourceAsset, amount.Mul(exactOutSendBuffer))
		if err != nil {
			return nil, err
		}
		tx.SendMax = &sendMax
		tx.DeliverMin = &deliver
		tx.Flags |= tfPartialPayment
		return tx, nil
	}

	sendMax, err := formatAmount(req.SourceAsset, amount)
	if err != nil {
		return nil, err
	}
	tx.SendMax = &sendMax

	minOut, err := resolveMinOut(expectedOut, opts)
	if err != nil {
		return nil, err
	}
	if minOut != nil {
		deliverMin, err := formatAmount(req.DestinationAsset, *minOut)
		if err != nil {
			return nil, err
		}
		tx.DeliverMin = &deliverMin
	}
	return tx, nil
}

func (b *Builder) buildCLOB(req model.QuoteRequest, account string, amount, expectedOut decimal.Decimal, opts Options) (Instruction, error) {
	takerGets, err := formatAmount(req.DestinationAsset, expectedOut)
	if err != nil {
		return nil, err
	}
	takerPays, err := formatAmount(req.SourceAsset, amount)
	if err != nil {
		return nil, err
	}

	tx := OfferCreate{
		TransactionType: "OfferCreate",
		Account:         account,
		TakerGets:       takerGets,
		TakerPays:       takerPays,
	}
	if opts.MinOut != "" || opts.SlippageBps > 0 {
		// A receive constraint on a book order means all-or-nothing at the
		// stated terms.
		tx.Flags |= tfFillOrKill
	}
	return tx, nil
}

// buildFeePayment emits the trailing fee-collection payment of
// gross * fee_bps / 10000 in the destination asset. Nil when the fee rounds
// to nothing.
func (b *Builder) buildFeePayment(dst model.Currency, account string, fee *FeeInfo) (*Instruction, error) {
	if fee.FeeBps <= 0 {
		return nil, nil
	}
	feeAmount := fee.Gross.Mul(decimal.NewFromInt(fee.FeeBps)).Div(tenThousand)
	if feeAmount.Sign() <= 0 {
		return nil, nil
	}

	amount, err := formatAmount(dst, feeAmount)
	if err != nil {
		return nil, err
	}
	var instr Instruction = Payment{
		TransactionType: "Payment",
		Account:         account,
		Destination:     b.feeAccount,
		Amount:          amount,
	}
	return &instr, nil
}

// resolveMinOut applies the floor precedence: explicit override, then
// slippage-derived, then the fee-adjusted net. Nil when no floor applies.
func resolveMinOut(expectedOut decimal.Decimal, opts Options) (*decimal.Decimal, error) {
	if opts.MinOut != "" {
		d, err := decimal.NewFromString(opts.MinOut)
		if err != nil {
			return nil, fmt.Errorf("parse min_out %q: %w", opts.MinOut, err)
		}
		return &d, nil
	}
	if opts.SlippageBps > 0 {
		slippage := decimal.NewFromInt(opts.SlippageBps).Div(tenThousand)
		d := expectedOut.Mul(decimal.NewFromInt(1).Sub(slippage))
		return &d, nil
	}
	if opts.Fee != nil {
		d := opts.Fee.Net
		return &d, nil
	}
	return nil, nil
}
