package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"stealth-swap/config"
	"stealth-swap/pkg/catalog"
	"stealth-swap/pkg/history"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
	"stealth-swap/pkg/wallet"
)

var (
	// ErrNotConnected is returned by Submit while no wallet is connected.
	ErrNotConnected = wallet.ErrNotConnected

	// ErrSubmissionInFlight is returned by Submit while a previous request
	// is still outstanding.
	ErrSubmissionInFlight = errors.New("a swap request is already being submitted")

	// ErrChainMismatch is returned by ApplyMax when the leg's chain is not the
	// wallet's chain and the wallet cannot switch to it.
	ErrChainMismatch = errors.New("balance is not known on the selected chain")
)

// Button labels for the submit control
const (
	LabelConnect     = "Connect Wallet"
	LabelSelectChain = "Select Chain"
	LabelSelectToken = "Select Token"
	LabelEnterAmount = "Enter Amount"
	LabelSubmitting  = "Submitting..."
	LabelSwap        = "Swap Privately"
)

// Recorder stores submitted requests
type Recorder interface {
	Add(req types.SwapRequest, outcome *types.Outcome, submitErr error) (*history.Record, error)
}

// Session is one user's swap session: a coordinator plus the wallet and
// executor the submit action is gated on
type Session struct {
	coord    *swap.Coordinator
	mu       sync.RWMutex
	catalog  *catalog.Static
	wallet   wallet.Wallet
	executor swap.Executor
	history  Recorder
	cfg      config.ExecutorConfig
	inFlight atomic.Bool
	log      *zap.Logger
}

// New creates a session over the given catalog. history may be nil.
func New(cat *catalog.Static, w wallet.Wallet, exec swap.Executor, rec Recorder, cfg config.ExecutorConfig, log *zap.Logger) *Session {
	return &Session{
		coord:    swap.NewCoordinator(cat, cat),
		catalog:  cat,
		wallet:   w,
		executor: exec,
		history:  rec,
		cfg:      cfg,
		log:      log.Named("session"),
	}
}

// Coordinator returns the session's swap state
func (s *Session) Coordinator() *swap.Coordinator {
	return s.coord
}

// Catalog returns the token catalog with the latest balance snapshots
func (s *Session) Catalog() *catalog.Static {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.catalog
}

// Wallet returns the wallet collaborator
func (s *Session) Wallet() wallet.Wallet {
	return s.wallet
}

// Connect connects the wallet and loads balance snapshots. Balance lookup
// failures are logged, not returned.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.wallet.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect wallet: %w", err)
	}

	if _, err := s.RefreshBalances(ctx); err != nil {
		s.log.Warn("failed to refresh balances", zap.Error(err))
	}
	return nil
}

// Disconnect disconnects the wallet
func (s *Session) Disconnect() {
	s.wallet.Disconnect()
}

// RefreshBalances looks up the connected account's balance for every
// catalog token on the wallet's chain. Tokens the chain does not carry keep
// their previous snapshot.
func (s *Session) RefreshBalances(ctx context.Context) (map[string]string, error) {
	if !s.wallet.IsConnected() {
		return nil, ErrNotConnected
	}

	account := s.wallet.Account()
	balances := make(map[string]string)
	for _, t := range s.Catalog().Tokens() {
		b, err := s.wallet.Balance(ctx, account, t)
		if err != nil {
			if errors.Is(err, wallet.ErrUnsupportedToken) {
				continue
			}
			return nil, fmt.Errorf("failed to get %s balance: %w", t.Symbol, err)
		}
		balances[t.ID] = b
	}

	s.mu.Lock()
	s.catalog = s.catalog.WithBalances(balances)
	s.coord.UpdateBalances(s.catalog, balances)
	s.mu.Unlock()

	s.log.Debug("refreshed balances", zap.Int("tokens", len(balances)))
	return balances, nil
}

// ApplyMax copies the leg token's balance snapshot into the leg amount. While
// connected the snapshot must come from the leg's chain, so the wallet is
// switched to it and balances are refreshed first.
func (s *Session) ApplyMax(ctx context.Context, side types.Side) error {
	leg := s.coord.Leg(side)
	if leg.Chain != nil && s.wallet.IsConnected() && leg.Chain.ID != s.wallet.Chain() {
		sw, ok := s.wallet.(wallet.Switcher)
		if !ok {
			return fmt.Errorf("%w: wallet is on %s, leg is on %s", ErrChainMismatch, s.wallet.Chain(), leg.Chain.ID)
		}
		if err := sw.SwitchChain(ctx, leg.Chain.ID); err != nil {
			return fmt.Errorf("failed to switch wallet to %s: %w", leg.Chain.ID, err)
		}
		if _, err := s.RefreshBalances(ctx); err != nil {
			return err
		}
	}

	return s.coord.ApplyMax(side)
}

// ButtonLabel is the text of the submit control for the current state
func (s *Session) ButtonLabel() string {
	if !s.wallet.IsConnected() {
		return LabelConnect
	}
	if s.inFlight.Load() {
		return LabelSubmitting
	}

	req := s.coord.Snapshot()
	switch {
	case req.Source.Chain == nil || req.Destination.Chain == nil:
		return LabelSelectChain
	case req.Source.Token == nil || req.Destination.Token == nil:
		return LabelSelectToken
	case !s.coord.IsReadyToSubmit():
		return LabelEnterAmount
	default:
		return LabelSwap
	}
}

// CanSubmit reports whether the submit control is enabled
func (s *Session) CanSubmit() bool {
	return s.wallet.IsConnected() && !s.inFlight.Load() && s.coord.IsReadyToSubmit()
}

// Submit hands the ready request to the executor and records the result.
// The legs are reset only after a successful submission; executor errors
// are returned verbatim together with any partial outcome.
func (s *Session) Submit(ctx context.Context) (*types.Outcome, error) {
	if !s.wallet.IsConnected() {
		return nil, ErrNotConnected
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	req, err := s.coord.BuildRequest()
	if err != nil {
		return nil, err
	}

	s.log.Info("submitting swap request",
		zap.String("from", req.Source.Chain.ID),
		zap.String("to", req.Destination.Chain.ID),
		zap.String("token_in", req.Source.Token.Symbol),
		zap.String("token_out", req.Destination.Token.Symbol),
	)

	outcome, execErr := s.executor.Execute(ctx, req)

	if s.history != nil {
		if _, err := s.history.Add(req, outcome, execErr); err != nil {
			s.log.Warn("failed to record swap request", zap.Error(err))
		}
	}

	if execErr != nil {
		s.log.Warn("swap request failed", zap.Error(execErr))
		return outcome, execErr
	}

	s.coord.Reset()
	return outcome, nil
}
