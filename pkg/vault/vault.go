package vault

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// MaxProtocolFee is 100% in basis points
const MaxProtocolFee = 10000

// DefaultNetwork is recorded when no network name is given
const DefaultNetwork = "sepolia"

var (
	// ErrInvalidFeeCollector means the fee collector is not a hex address
	ErrInvalidFeeCollector = errors.New("invalid fee collector address")
	// ErrInvalidProtocolFee means the fee exceeds MaxProtocolFee
	ErrInvalidProtocolFee = errors.New("invalid protocol fee")
)

// Backend is the chain access needed to deploy and read back the vault.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Params configures a vault deployment
type Params struct {
	FeeCollector string
	ProtocolFee  uint64
	Network      string
}

// Validate checks the constructor arguments
func (p Params) Validate() error {
	if !common.IsHexAddress(p.FeeCollector) {
		return fmt.Errorf("%w: %q", ErrInvalidFeeCollector, p.FeeCollector)
	}
	// Mixed-case input carries an EIP-55 checksum
	hex := strings.TrimPrefix(strings.TrimPrefix(p.FeeCollector, "0x"), "0X")
	if hex != strings.ToLower(hex) && hex != strings.ToUpper(hex) {
		if err := ethav.Validate("0x" + hex); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidFeeCollector, p.FeeCollector, err)
		}
	}
	if p.ProtocolFee > MaxProtocolFee {
		return fmt.Errorf("%w: %d exceeds %d basis points", ErrInvalidProtocolFee, p.ProtocolFee, MaxProtocolFee)
	}
	return nil
}

// Artifact is the compiled vault contract
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

type hardhatArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads a Hardhat compilation artifact and checks that it
// exposes the vault constructor and getters
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var raw hardhatArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	bytecode := common.FromHex(raw.Bytecode)
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("artifact %s has no bytecode", path)
	}

	if n := len(parsed.Constructor.Inputs); n != 2 {
		return nil, fmt.Errorf("vault constructor takes 2 arguments, artifact has %d", n)
	}
	for _, name := range []string{"owner", "feeCollector", "protocolFee"} {
		if _, ok := parsed.Methods[name]; !ok {
			return nil, fmt.Errorf("artifact ABI has no %s() method", name)
		}
	}

	return &Artifact{
		ContractName: raw.ContractName,
		ABI:          parsed,
		Bytecode:     bytecode,
	}, nil
}

// Deployer deploys the vault contract from a local key
type Deployer struct {
	backend  Backend
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	artifact *Artifact
	now      func() time.Time
	log      *zap.Logger
}

// NewDeployer creates a deployer signing with key on chainID
func NewDeployer(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, artifact *Artifact, log *zap.Logger) *Deployer {
	return &Deployer{
		backend:  backend,
		key:      key,
		chainID:  chainID,
		artifact: artifact,
		now:      time.Now,
		log:      log.Named("vault"),
	}
}

// Deploy sends the deployment transaction, waits for the contract code and
// reads the configured values back from the chain
func (d *Deployer) Deploy(ctx context.Context, params Params) (*Record, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Network == "" {
		params.Network = DefaultNetwork
	}

	feeCollector := common.HexToAddress(params.FeeCollector)
	if feeCollector == (common.Address{}) {
		d.log.Warn("fee collector is the zero address, fees will be burned")
	}

	fee, err := feeArg(d.artifact.ABI.Constructor.Inputs[1].Type, params.ProtocolFee)
	if err != nil {
		return nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(d.key, d.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	d.log.Info("deploying vault contract",
		zap.String("network", params.Network),
		zap.String("deployer", auth.From.Hex()),
		zap.String("feeCollector", feeCollector.Hex()),
		zap.Uint64("protocolFee", params.ProtocolFee))

	_, tx, contract, err := bind.DeployContract(auth, d.artifact.ABI, d.artifact.Bytecode, d.backend, feeCollector, fee)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy contract: %w", err)
	}
	d.log.Info("deployment transaction sent", zap.String("tx", tx.Hash().Hex()))

	address, err := bind.WaitDeployed(ctx, d.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for deployment: %w", err)
	}
	d.log.Info("vault deployed", zap.String("address", address.Hex()))

	opts := &bind.CallOpts{Context: ctx}
	owner, err := callAddress(opts, contract, "owner")
	if err != nil {
		return nil, err
	}
	collector, err := callAddress(opts, contract, "feeCollector")
	if err != nil {
		return nil, err
	}
	protocolFee, err := call(opts, contract, "protocolFee")
	if err != nil {
		return nil, err
	}

	return &Record{
		ContractAddress: address.Hex(),
		Owner:           owner.Hex(),
		FeeCollector:    collector.Hex(),
		ProtocolFee:     fmt.Sprint(protocolFee),
		DeploymentTime:  d.now().UTC().Format(time.RFC3339),
		Network:         params.Network,
	}, nil
}

// feeArg converts the fee to the Go type the ABI packs for the constructor's
// fee parameter
func feeArg(typ abi.Type, fee uint64) (interface{}, error) {
	if typ.T != abi.UintTy {
		return nil, fmt.Errorf("vault constructor fee parameter has type %s, want an unsigned integer", typ.String())
	}
	if typ.Size < 64 && fee >= 1<<uint(typ.Size) {
		return nil, fmt.Errorf("%w: %d does not fit in %s", ErrInvalidProtocolFee, fee, typ.String())
	}

	switch typ.Size {
	case 8:
		return uint8(fee), nil
	case 16:
		return uint16(fee), nil
	case 32:
		return uint32(fee), nil
	case 64:
		return fee, nil
	default:
		return new(big.Int).SetUint64(fee), nil
	}
}

func call(opts *bind.CallOpts, contract *bind.BoundContract, method string) (interface{}, error) {
	var out []interface{}
	if err := contract.Call(opts, &out, method); err != nil {
		return nil, fmt.Errorf("failed to call %s(): %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s() returned nothing", method)
	}
	return out[0], nil
}

func callAddress(opts *bind.CallOpts, contract *bind.BoundContract, method string) (common.Address, error) {
	v, err := call(opts, contract, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s() returned %T, want address", method, v)
	}
	return addr, nil
}
