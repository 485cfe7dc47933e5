package vault

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testABI = `[
	{"inputs":[{"name":"_feeCollector","type":"address"},{"name":"_protocolFee","type":"uint256"}],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"feeCollector","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"protocolFee","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

func writeArtifact(t *testing.T, abiJSON, bytecode string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "StealthSwapVault.json")
	content := `{"contractName":"StealthSwapVault","abi":` + abiJSON + `,"bytecode":"` + bytecode + `"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// fakeBackend mines every transaction instantly and answers the vault getters
// with the constructor arguments of the deployment
type fakeBackend struct {
	artifact *Artifact
	chainID  *big.Int

	deployer     common.Address
	address      common.Address
	feeCollector common.Address
	protocolFee  interface{}
	sent         int
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return f.artifact.Bytecode, nil
}

func (f *fakeBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return nil, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 7, nil }
func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error)              { return big.NewInt(1e9), nil }
func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error)             { return big.NewInt(1e9), nil }
func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error)  { return 500000, nil }

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	from, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(f.chainID), tx)
	if err != nil {
		return err
	}

	args, err := f.artifact.ABI.Constructor.Inputs.Unpack(tx.Data()[len(f.artifact.Bytecode):])
	if err != nil {
		return err
	}

	f.deployer = from
	f.address = crypto.CreateAddress(from, tx.Nonce())
	f.feeCollector = args[0].(common.Address)
	f.protocolFee = args[1]
	f.sent++
	return nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*gethtypes.Receipt, error) {
	return &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful, ContractAddress: f.address}, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, err := f.artifact.ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "owner":
		return method.Outputs.Pack(f.deployer)
	case "feeCollector":
		return method.Outputs.Pack(f.feeCollector)
	default:
		return method.Outputs.Pack(f.protocolFee)
	}
}

func (f *fakeBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]gethtypes.Log, error) {
	return nil, nil
}

func (f *fakeBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- gethtypes.Log) (ethereum.Subscription, error) {
	return nil, nil
}

func newTestDeployer(t *testing.T) (*Deployer, *fakeBackend, *ecdsa.PrivateKey) {
	t.Helper()
	artifact, err := LoadArtifact(writeArtifact(t, testABI, "0x6080604052"))
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	chainID := big.NewInt(11155111)
	backend := &fakeBackend{artifact: artifact, chainID: chainID}
	d := NewDeployer(backend, key, chainID, artifact, zap.NewNop())
	d.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return d, backend, key
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{"zero address", Params{FeeCollector: "0x0000000000000000000000000000000000000000", ProtocolFee: 30}, nil},
		{"max fee", Params{FeeCollector: "0x1234567890123456789012345678901234567890", ProtocolFee: 10000}, nil},
		{"fee too high", Params{FeeCollector: "0x1234567890123456789012345678901234567890", ProtocolFee: 10001}, ErrInvalidProtocolFee},
		{"checksummed", Params{FeeCollector: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", ProtocolFee: 30}, nil},
		{"not hex", Params{FeeCollector: "vault.eth", ProtocolFee: 30}, ErrInvalidFeeCollector},
		{"empty", Params{ProtocolFee: 30}, ErrInvalidFeeCollector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadArtifact(t *testing.T) {
	artifact, err := LoadArtifact(writeArtifact(t, testABI, "0x6080604052"))
	require.NoError(t, err)
	assert.Equal(t, "StealthSwapVault", artifact.ContractName)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, artifact.Bytecode)
	assert.Len(t, artifact.ABI.Constructor.Inputs, 2)

	_, err = LoadArtifact(writeArtifact(t, testABI, "0x"))
	assert.ErrorContains(t, err, "no bytecode")

	noGetter := `[{"inputs":[{"name":"a","type":"address"},{"name":"b","type":"uint256"}],"type":"constructor"}]`
	_, err = LoadArtifact(writeArtifact(t, noGetter, "0x60"))
	assert.ErrorContains(t, err, "owner()")

	_, err = LoadArtifact(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read artifact")
}

func TestFeeArg(t *testing.T) {
	uint16Ty, err := abi.NewType("uint16", "", nil)
	require.NoError(t, err)
	v, err := feeArg(uint16Ty, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint16(10000), v)

	uint256Ty, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	v, err = feeArg(uint256Ty, 30)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(30), v)

	uint8Ty, err := abi.NewType("uint8", "", nil)
	require.NoError(t, err)
	_, err = feeArg(uint8Ty, 300)
	assert.ErrorIs(t, err, ErrInvalidProtocolFee)

	addrTy, err := abi.NewType("address", "", nil)
	require.NoError(t, err)
	_, err = feeArg(addrTy, 30)
	assert.ErrorContains(t, err, "unsigned integer")
}

func TestDeployer_Deploy(t *testing.T) {
	d, backend, key := newTestDeployer(t)
	collector := "0x1234567890123456789012345678901234567890"

	rec, err := d.Deploy(context.Background(), Params{FeeCollector: collector, ProtocolFee: 30})
	require.NoError(t, err)

	deployer := crypto.PubkeyToAddress(key.PublicKey)
	assert.Equal(t, 1, backend.sent)
	assert.Equal(t, crypto.CreateAddress(deployer, 7).Hex(), rec.ContractAddress)
	assert.Equal(t, deployer.Hex(), rec.Owner)
	assert.Equal(t, common.HexToAddress(collector).Hex(), rec.FeeCollector)
	assert.Equal(t, "30", rec.ProtocolFee)
	assert.Equal(t, "2025-01-02T03:04:05Z", rec.DeploymentTime)
	assert.Equal(t, DefaultNetwork, rec.Network)
}

func TestDeployer_DeployRejectsInvalidParams(t *testing.T) {
	d, backend, _ := newTestDeployer(t)

	_, err := d.Deploy(context.Background(), Params{FeeCollector: "0x1234567890123456789012345678901234567890", ProtocolFee: 20000})
	assert.ErrorIs(t, err, ErrInvalidProtocolFee)
	assert.Equal(t, 0, backend.sent)
}

func TestRecord_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultRecordFile)
	rec := &Record{
		ContractAddress: "0xabc",
		Owner:           "0xdef",
		FeeCollector:    "0x000",
		ProtocolFee:     "30",
		DeploymentTime:  "2025-01-02T03:04:05Z",
		Network:         "sepolia",
	}
	require.NoError(t, WriteRecord(path, rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"contractAddress\": \"0xabc\"")

	loaded, err := ReadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
