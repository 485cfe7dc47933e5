package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stealth-swap/config"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
	"stealth-swap/pkg/wallet"
)

var (
	// ErrAssetNotFound means 1Click does not list the token on the chain.
	ErrAssetNotFound = errors.New("asset not supported by 1Click")

	// ErrDepositFailed wraps auto-deposit failures. The quote outcome is
	// still returned so the deposit can be sent by hand.
	ErrDepositFailed = errors.New("auto-deposit failed")
)

const (
	assetsKey = "assets"
	assetsTTL = 5 * time.Minute
)

// OneClickExecutor turns a ready swap request into a 1Click quote and,
// optionally, sends the deposit from the connected wallet
type OneClickExecutor struct {
	api         IntentsAPI
	wallet      wallet.Wallet
	blockchains map[string]string
	deadline    time.Duration
	autoDeposit bool
	assets      *cache.Cache
	log         *zap.Logger
}

var _ swap.Executor = (*OneClickExecutor)(nil)

// NewOneClickExecutor creates an executor using the given API and wallet
func NewOneClickExecutor(api IntentsAPI, w wallet.Wallet, cfg config.ExecutorConfig, log *zap.Logger) *OneClickExecutor {
	deadline := cfg.Deadline
	if deadline <= 0 {
		deadline = 24 * time.Hour
	}

	return &OneClickExecutor{
		api:         api,
		wallet:      w,
		blockchains: cfg.Blockchains,
		deadline:    deadline,
		autoDeposit: cfg.AutoDeposit,
		assets:      cache.New(assetsTTL, 2*assetsTTL),
		log:         log.Named("executor"),
	}
}

// Execute requests a quote for the source amount. The connected account is
// both recipient and refund address.
func (e *OneClickExecutor) Execute(ctx context.Context, req types.SwapRequest) (*types.Outcome, error) {
	if !e.wallet.IsConnected() {
		return nil, wallet.ErrNotConnected
	}
	if req.Source.Chain == nil || req.Source.Token == nil || req.Destination.Chain == nil || req.Destination.Token == nil {
		return nil, swap.ErrNotReady
	}

	amount, err := swap.ParseAmount(req.Source.Amount)
	if err != nil {
		return nil, err
	}

	origin, err := e.resolve(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("source token error: %w", err)
	}
	destination, err := e.resolve(ctx, req.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination token error: %w", err)
	}

	account := e.wallet.Account()
	quote, err := e.api.Quote(ctx, QuoteParams{
		OriginAsset:      origin.AssetID,
		DestinationAsset: destination.AssetID,
		Amount:           swap.ToBaseUnits(amount, origin.Decimals),
		Recipient:        account,
		RefundTo:         account,
		Deadline:         time.Now().Add(e.deadline),
	})
	if err != nil {
		return nil, err
	}

	outcome := &types.Outcome{
		Reference:        quote.DepositAddress,
		AmountIn:         quote.AmountIn,
		AmountOut:        quote.AmountOut,
		Memo:             quote.DepositMemo,
		EstimatedSeconds: quote.TimeEstimate,
	}

	e.log.Info("quote received",
		zap.String("deposit_address", outcome.Reference),
		zap.String("origin", origin.AssetID),
		zap.String("destination", destination.AssetID),
	)

	if !e.autoDeposit {
		return outcome, nil
	}

	txHash, err := e.deposit(ctx, req.Source, amount, outcome)
	if err != nil {
		return outcome, fmt.Errorf("%w: %w", ErrDepositFailed, err)
	}
	outcome.TxHash = txHash

	// Submitting the hash only speeds up detection; the deposit is already sent
	if err := e.api.SubmitDeposit(ctx, outcome.Reference, txHash); err != nil {
		e.log.Warn("failed to submit deposit tx", zap.String("tx", txHash), zap.Error(err))
	}

	return outcome, nil
}

// Status returns the settlement state for a deposit address
func (e *OneClickExecutor) Status(ctx context.Context, reference string) (*ExecutionStatus, error) {
	return e.api.Status(ctx, reference)
}

func (e *OneClickExecutor) deposit(ctx context.Context, leg types.SwapLeg, amount decimal.Decimal, outcome *types.Outcome) (string, error) {
	t, ok := e.wallet.(wallet.Transferer)
	if !ok {
		return "", fmt.Errorf("wallet cannot send transactions")
	}
	if outcome.Memo != "" {
		return "", fmt.Errorf("deposit requires memo %q", outcome.Memo)
	}

	e.log.Info("sending deposit",
		zap.String("chain", leg.Chain.ID),
		zap.String("token", leg.Token.Symbol),
		zap.String("to", outcome.Reference),
	)
	return t.Transfer(ctx, leg.Chain.ID, outcome.Reference, *leg.Token, amount)
}

// resolve finds the 1Click asset for a leg's token on the leg's chain
func (e *OneClickExecutor) resolve(ctx context.Context, leg types.SwapLeg) (Asset, error) {
	assets, err := e.supportedAssets(ctx)
	if err != nil {
		return Asset{}, err
	}

	blockchain := leg.Chain.ID
	if mapped, ok := e.blockchains[blockchain]; ok && mapped != "" {
		blockchain = mapped
	}

	return FindAsset(assets, leg.Token.Symbol, blockchain)
}

func (e *OneClickExecutor) supportedAssets(ctx context.Context) ([]Asset, error) {
	if x, found := e.assets.Get(assetsKey); found {
		if assets, ok := x.([]Asset); ok {
			return assets, nil
		}
	}

	assets, err := e.api.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	e.assets.SetDefault(assetsKey, assets)
	return assets, nil
}

// FindAsset searches for a token by symbol on a specific 1Click blockchain
func FindAsset(assets []Asset, symbol, blockchain string) (Asset, error) {
	for _, a := range assets {
		if strings.EqualFold(a.Symbol, symbol) && strings.EqualFold(a.Blockchain, blockchain) {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %s on %s", ErrAssetNotFound, strings.ToUpper(symbol), blockchain)
}
