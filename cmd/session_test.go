package cmd

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stealth-swap/config"
	"stealth-swap/pkg/catalog"
	"stealth-swap/pkg/session"
	"stealth-swap/pkg/types"
)

type replWallet struct{}

func (replWallet) Connect(context.Context) error { return nil }
func (replWallet) Disconnect()                   {}
func (replWallet) IsConnected() bool             { return false }
func (replWallet) Chain() string                 { return "ethereum" }
func (replWallet) Account() string               { return "" }

func (replWallet) Balance(context.Context, string, types.Token) (string, error) {
	return "", nil
}

type replExecutor struct{}

func (replExecutor) Execute(context.Context, types.SwapRequest) (*types.Outcome, error) {
	return &types.Outcome{}, nil
}

func newReplSession(t *testing.T) (*cobra.Command, *session.Session) {
	t.Helper()
	cat := catalog.NewStatic(config.CatalogConfig{Chains: config.DefaultChains, Tokens: config.DefaultTokens})
	sess := session.New(cat, replWallet{}, replExecutor{}, nil, config.ExecutorConfig{}, zap.NewNop())

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd, sess
}

func TestRunSessionCommand_Amount(t *testing.T) {
	cmd, sess := newReplSession(t)
	c := sess.Coordinator()

	require.NoError(t, runSessionCommand(cmd, sess, []string{"amount", "from", "1,234.5"}))
	assert.Equal(t, "1,234.5", c.Leg(types.Source).Amount)

	require.NoError(t, runSessionCommand(cmd, sess, []string{"amount", "from"}))
	assert.Equal(t, "", c.Leg(types.Source).Amount)

	assert.Error(t, runSessionCommand(cmd, sess, []string{"amount"}))
	assert.Error(t, runSessionCommand(cmd, sess, []string{"amount", "sideways", "1"}))
}

func TestRunSessionCommand_Selection(t *testing.T) {
	cmd, sess := newReplSession(t)
	c := sess.Coordinator()

	require.NoError(t, runSessionCommand(cmd, sess, []string{"chain", "to", "polygon"}))
	require.NoError(t, runSessionCommand(cmd, sess, []string{"token", "to", "usdc"}))
	assert.Equal(t, "polygon", c.Leg(types.Destination).Chain.ID)
	assert.Equal(t, "USDC", c.Leg(types.Destination).Token.Symbol)

	assert.Error(t, runSessionCommand(cmd, sess, []string{"chain", "to"}))
	assert.Error(t, runSessionCommand(cmd, sess, []string{"token", "to", "doge"}))
	assert.Error(t, runSessionCommand(cmd, sess, []string{"teleport"}))
}
