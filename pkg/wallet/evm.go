package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stealth-swap/config"
	"stealth-swap/pkg/catalog"
	"stealth-swap/pkg/swap"
	"stealth-swap/pkg/types"
)

// NativeContract marks a token as the chain's native asset in Token.Contracts
const NativeContract = "native"

// ERC20 ABI fragments used for balances and transfers
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// Backend is the RPC access the wallet needs on one chain.
// *ethclient.Client satisfies it.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	Close()
}

// dialer opens a Backend for an RPC URL
type dialer func(ctx context.Context, rpcURL string) (Backend, error)

func dialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// EVMWallet is a locally held EVM account acting as the connected wallet
type EVMWallet struct {
	cfg      config.WalletConfig
	networks map[string]config.EVMNetwork
	chains   catalog.ChainProvider
	erc20    abi.ABI
	dial     dialer
	log      *zap.Logger

	mu         sync.RWMutex
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chain      string
	clients    map[string]Backend
	connected  bool
}

var (
	_ Wallet     = (*EVMWallet)(nil)
	_ Switcher   = (*EVMWallet)(nil)
	_ Transferer = (*EVMWallet)(nil)
)

// NewEVMWallet creates a disconnected wallet. Native assets are recognised by
// comparing token symbols with the chain currency symbol from the catalog.
func NewEVMWallet(cfg config.WalletConfig, networks map[string]config.EVMNetwork, chains catalog.ChainProvider, log *zap.Logger) (*EVMWallet, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	return &EVMWallet{
		cfg:      cfg,
		networks: networks,
		chains:   chains,
		erc20:    parsed,
		dial:     dialEthclient,
		log:      log.Named("wallet"),
		chain:    cfg.DefaultChain,
		clients:  make(map[string]Backend),
	}, nil
}

// Connect loads the private key and dials the default chain
func (w *EVMWallet) Connect(ctx context.Context) error {
	if w.cfg.PrivateKey == "" {
		return fmt.Errorf("private key not configured. Set STEALTH_SWAP_WALLET_PRIVATE_KEY or wallet.private_key")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(w.cfg.PrivateKey, "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}

	w.mu.Lock()
	w.privateKey = privateKey
	w.address = crypto.PubkeyToAddress(privateKey.PublicKey)
	chain := w.chain
	w.mu.Unlock()

	if _, err := w.client(ctx, chain); err != nil {
		return err
	}

	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()

	w.log.Info("wallet connected",
		zap.String("account", w.address.Hex()),
		zap.String("chain", chain))
	return nil
}

// Disconnect closes every RPC client and forgets the key
func (w *EVMWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, c := range w.clients {
		c.Close()
		delete(w.clients, id)
	}
	w.privateKey = nil
	w.address = common.Address{}
	w.connected = false
	w.log.Info("wallet disconnected")
}

// IsConnected reports the connection status
func (w *EVMWallet) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Account returns the connected address, or "" when disconnected
func (w *EVMWallet) Account() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.connected {
		return ""
	}
	return w.address.Hex()
}

// Chain returns the catalog ID of the current chain
func (w *EVMWallet) Chain() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chain
}

// SwitchChain makes another configured chain current
func (w *EVMWallet) SwitchChain(ctx context.Context, chainID string) error {
	if _, err := w.client(ctx, chainID); err != nil {
		return err
	}

	w.mu.Lock()
	w.chain = chainID
	w.mu.Unlock()
	return nil
}

// Balance returns the formatted balance of a token on the current chain
func (w *EVMWallet) Balance(ctx context.Context, account string, token types.Token) (string, error) {
	raw, err := w.rawBalance(ctx, w.Chain(), account, token)
	if err != nil {
		return "", err
	}
	return FormatUnits(raw, token.Decimals), nil
}

func (w *EVMWallet) rawBalance(ctx context.Context, chainID, account string, token types.Token) (*big.Int, error) {
	if !w.IsConnected() {
		return nil, ErrNotConnected
	}
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid account address: %s", account)
	}

	client, err := w.client(ctx, chainID)
	if err != nil {
		return nil, err
	}
	owner := common.HexToAddress(account)

	native, contract, err := w.resolve(chainID, token)
	if err != nil {
		return nil, err
	}
	if native {
		balance, err := client.BalanceAt(ctx, owner, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance: %w", err)
		}
		return balance, nil
	}

	return w.erc20Balance(ctx, client, contract, owner)
}

// Transfer sends amount of token to the given address and returns the
// transaction hash. Native assets use a plain value transfer, other tokens
// an ERC20 transfer call.
func (w *EVMWallet) Transfer(ctx context.Context, chainID, to string, token types.Token, amount decimal.Decimal) (string, error) {
	w.mu.RLock()
	privateKey := w.privateKey
	from := w.address
	connected := w.connected
	w.mu.RUnlock()

	if !connected {
		return "", ErrNotConnected
	}
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid recipient address: %s", to)
	}

	network, ok := w.networks[chainID]
	if !ok {
		return "", fmt.Errorf("network %s not configured", chainID)
	}
	client, err := w.client(ctx, chainID)
	if err != nil {
		return "", err
	}

	native, contract, err := w.resolve(chainID, token)
	if err != nil {
		return "", err
	}

	value, ok := new(big.Int).SetString(swap.ToBaseUnits(amount, token.Decimals), 10)
	if !ok {
		return "", fmt.Errorf("invalid amount: %s", amount)
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := gasPrice(ctx, client, network)
	if err != nil {
		return "", err
	}

	var tx *gethtypes.Transaction
	if native {
		tx, err = w.nativeTransfer(ctx, client, network, from, common.HexToAddress(to), value, nonce, gasPrice)
	} else {
		tx, err = w.erc20Transfer(ctx, client, network, from, contract, common.HexToAddress(to), value, nonce, gasPrice)
	}
	if err != nil {
		return "", err
	}

	signed, err := gethtypes.SignTx(tx, gethtypes.NewEIP155Signer(big.NewInt(network.ChainID)), privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	w.log.Info("transfer sent",
		zap.String("chain", chainID),
		zap.String("token", token.Symbol),
		zap.String("amount", amount.String()),
		zap.String("to", to),
		zap.String("tx", signed.Hash().Hex()))

	return signed.Hash().Hex(), nil
}

func (w *EVMWallet) nativeTransfer(ctx context.Context, client Backend, network config.EVMNetwork, from, to common.Address, value *big.Int, nonce uint64, gasPrice *big.Int) (*gethtypes.Transaction, error) {
	balance, err := client.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Cmp(value) < 0 {
		return nil, fmt.Errorf("insufficient balance: have %s wei, need %s wei", balance, value)
	}

	gasLimit := uint64(21000)
	if network.GasLimit != nil {
		gasLimit = *network.GasLimit
	}

	return gethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, nil), nil
}

func (w *EVMWallet) erc20Transfer(ctx context.Context, client Backend, network config.EVMNetwork, from, contract, to common.Address, value *big.Int, nonce uint64, gasPrice *big.Int) (*gethtypes.Transaction, error) {
	balance, err := w.erc20Balance(ctx, client, contract, from)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(value) < 0 {
		return nil, fmt.Errorf("insufficient token balance: have %s, need %s", balance, value)
	}

	data, err := w.erc20.Pack("transfer", to, value)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer data: %w", err)
	}

	gasLimit := uint64(100000)
	if network.GasLimit != nil {
		gasLimit = *network.GasLimit
	} else {
		estimated, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &contract, Data: data})
		if err == nil {
			gasLimit = estimated * 120 / 100
		}
	}

	return gethtypes.NewTransaction(nonce, contract, big.NewInt(0), gasLimit, gasPrice, data), nil
}

func (w *EVMWallet) erc20Balance(ctx context.Context, client Backend, contract, owner common.Address) (*big.Int, error) {
	data, err := w.erc20.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// resolve decides whether token is native on the chain or which contract holds it
func (w *EVMWallet) resolve(chainID string, token types.Token) (bool, common.Address, error) {
	if addr, ok := token.ContractOn(chainID); ok {
		if addr == NativeContract {
			return true, common.Address{}, nil
		}
		if !common.IsHexAddress(addr) {
			return false, common.Address{}, fmt.Errorf("invalid token contract address: %s", addr)
		}
		return false, common.HexToAddress(addr), nil
	}

	if chain, err := w.chains.Chain(chainID); err == nil && strings.EqualFold(chain.Symbol, token.Symbol) {
		return true, common.Address{}, nil
	}

	return false, common.Address{}, fmt.Errorf("%w: %s on %s", ErrUnsupportedToken, token.Symbol, chainID)
}

// client returns a cached RPC client for the chain, dialing on first use
func (w *EVMWallet) client(ctx context.Context, chainID string) (Backend, error) {
	w.mu.RLock()
	c, ok := w.clients[chainID]
	w.mu.RUnlock()
	if ok {
		return c, nil
	}

	network, ok := w.networks[chainID]
	if !ok || network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for network %s", chainID)
	}

	c, err := w.dial(ctx, network.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.clients[chainID]; ok {
		c.Close()
		return existing, nil
	}
	w.clients[chainID] = c
	return c, nil
}

func gasPrice(ctx context.Context, client Backend, network config.EVMNetwork) (*big.Int, error) {
	if network.GasPrice != nil {
		return big.NewInt(*network.GasPrice), nil
	}

	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return price, nil
}
