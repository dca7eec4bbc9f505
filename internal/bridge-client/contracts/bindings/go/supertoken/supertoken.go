// Package supertoken binds the wrapped cross-chain token: 1:1 deposit and
// withdraw against the underlying asset plus the ERC-7802 burn/mint pair.
package supertoken

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SuperTokenMetaData contains the meta data of the wrapped token.
//
// deposit() is declared before deposit(uint256), so the ABI exposes the
// payable variant as "deposit" and the ERC-20 variant as "deposit0".
var SuperTokenMetaData = &bind.MetaData{
	ABI: "[{\"type\":\"function\",\"name\":\"deposit\",\"inputs\":[],\"outputs\":[],\"stateMutability\":\"payable\"},{\"type\":\"function\",\"name\":\"deposit\",\"inputs\":[{\"name\":\"amount\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"outputs\":[],\"stateMutability\":\"nonpayable\"},{\"type\":\"function\",\"name\":\"withdraw\",\"inputs\":[{\"name\":\"amount\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"outputs\":[],\"stateMutability\":\"nonpayable\"},{\"type\":\"function\",\"name\":\"crosschainBurn\",\"inputs\":[{\"name\":\"from\",\"type\":\"address\",\"internalType\":\"address\"},{\"name\":\"amount\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"outputs\":[],\"stateMutability\":\"nonpayable\"},{\"type\":\"function\",\"name\":\"crosschainMint\",\"inputs\":[{\"name\":\"to\",\"type\":\"address\",\"internalType\":\"address\"},{\"name\":\"amount\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"outputs\":[],\"stateMutability\":\"nonpayable\"},{\"type\":\"function\",\"name\":\"balanceOf\",\"inputs\":[{\"name\":\"account\",\"type\":\"address\",\"internalType\":\"address\"}],\"outputs\":[{\"name\":\"\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"decimals\",\"inputs\":[],\"outputs\":[{\"name\":\"\",\"type\":\"uint8\",\"internalType\":\"uint8\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"symbol\",\"inputs\":[],\"outputs\":[{\"name\":\"\",\"type\":\"string\",\"internalType\":\"string\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"totalSupply\",\"inputs\":[],\"outputs\":[{\"name\":\"\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"stateMutability\":\"view\"},{\"type\":\"event\",\"name\":\"Deposited\",\"inputs\":[{\"name\":\"user\",\"type\":\"address\",\"indexed\":true,\"internalType\":\"address\"},{\"name\":\"amount\",\"type\":\"uint256\",\"indexed\":false,\"internalType\":\"uint256\"}],\"anonymous\":false},{\"type\":\"event\",\"name\":\"Withdrawn\",\"inputs\":[{\"name\":\"user\",\"type\":\"address\",\"indexed\":true,\"internalType\":\"address\"},{\"name\":\"amount\",\"type\":\"uint256\",\"indexed\":false,\"internalType\":\"uint256\"}],\"anonymous\":false},{\"type\":\"event\",\"name\":\"CrosschainMinted\",\"inputs\":[{\"name\":\"receiver\",\"type\":\"address\",\"indexed\":true,\"internalType\":\"address\"},{\"name\":\"amount\",\"type\":\"uint256\",\"indexed\":false,\"internalType\":\"uint256\"}],\"anonymous\":false},{\"type\":\"event\",\"name\":\"CrosschainBurned\",\"inputs\":[{\"name\":\"from\",\"type\":\"address\",\"indexed\":true,\"internalType\":\"address\"},{\"name\":\"amount\",\"type\":\"uint256\",\"indexed\":false,\"internalType\":\"uint256\"}],\"anonymous\":false}]",
}

type SuperToken struct {
	SuperTokenCaller
	SuperTokenTransactor
	SuperTokenFilterer
}

type SuperTokenCaller struct {
	contract *bind.BoundContract
}

type SuperTokenTransactor struct {
	contract *bind.BoundContract
}

type SuperTokenFilterer struct {
	contract *bind.BoundContract
}

// SuperTokenCrosschainBurned represents a CrosschainBurned event.
type SuperTokenCrosschainBurned struct {
	From   common.Address
	Amount *big.Int
	Raw    types.Log
}

// SuperTokenDeposited represents a Deposited event.
type SuperTokenDeposited struct {
	User   common.Address
	Amount *big.Int
	Raw    types.Log
}

func NewSuperToken(address common.Address, backend bind.ContractBackend) (*SuperToken, error) {
	contract, err := bindSuperToken(address, backend, backend, backend)
	if err != nil {
		return nil, err
	}
	return &SuperToken{
		SuperTokenCaller:     SuperTokenCaller{contract: contract},
		SuperTokenTransactor: SuperTokenTransactor{contract: contract},
		SuperTokenFilterer:   SuperTokenFilterer{contract: contract},
	}, nil
}

func bindSuperToken(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*bind.BoundContract, error) {
	parsed, err := SuperTokenMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, errors.New("GetABI returned nil")
	}
	return bind.NewBoundContract(address, *parsed, caller, transactor, filterer), nil
}

// BalanceOf is a free data retrieval call.
//
// Solidity: function balanceOf(address account) view returns(uint256)
func (_SuperToken *SuperTokenCaller) BalanceOf(opts *bind.CallOpts, account common.Address) (*big.Int, error) {
	var out []interface{}
	err := _SuperToken.contract.Call(opts, &out, "balanceOf", account)
	if err != nil {
		return *new(*big.Int), err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Decimals is a free data retrieval call.
//
// Solidity: function decimals() view returns(uint8)
func (_SuperToken *SuperTokenCaller) Decimals(opts *bind.CallOpts) (uint8, error) {
	var out []interface{}
	err := _SuperToken.contract.Call(opts, &out, "decimals")
	if err != nil {
		return *new(uint8), err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// Symbol is a free data retrieval call.
//
// Solidity: function symbol() view returns(string)
func (_SuperToken *SuperTokenCaller) Symbol(opts *bind.CallOpts) (string, error) {
	var out []interface{}
	err := _SuperToken.contract.Call(opts, &out, "symbol")
	if err != nil {
		return *new(string), err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// TotalSupply is a free data retrieval call.
//
// Solidity: function totalSupply() view returns(uint256)
func (_SuperToken *SuperTokenCaller) TotalSupply(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	err := _SuperToken.contract.Call(opts, &out, "totalSupply")
	if err != nil {
		return *new(*big.Int), err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Deposit is a paid mutator transaction; opts.Value carries the native amount.
//
// Solidity: function deposit() payable returns()
func (_SuperToken *SuperTokenTransactor) Deposit(opts *bind.TransactOpts) (*types.Transaction, error) {
	return _SuperToken.contract.Transact(opts, "deposit")
}

// Deposit0 is a paid mutator transaction pulling an approved ERC-20 amount.
//
// Solidity: function deposit(uint256 amount) returns()
func (_SuperToken *SuperTokenTransactor) Deposit0(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	return _SuperToken.contract.Transact(opts, "deposit0", amount)
}

// Withdraw is a paid mutator transaction.
//
// Solidity: function withdraw(uint256 amount) returns()
func (_SuperToken *SuperTokenTransactor) Withdraw(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	return _SuperToken.contract.Transact(opts, "withdraw", amount)
}

// CrosschainBurn is a paid mutator transaction.
//
// Solidity: function crosschainBurn(address from, uint256 amount) returns()
func (_SuperToken *SuperTokenTransactor) CrosschainBurn(opts *bind.TransactOpts, from common.Address, amount *big.Int) (*types.Transaction, error) {
	return _SuperToken.contract.Transact(opts, "crosschainBurn", from, amount)
}

// CrosschainMint is a paid mutator transaction. Only the bridge agent is
// authorized to call it.
//
// Solidity: function crosschainMint(address to, uint256 amount) returns()
func (_SuperToken *SuperTokenTransactor) CrosschainMint(opts *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error) {
	return _SuperToken.contract.Transact(opts, "crosschainMint", to, amount)
}

// ParseCrosschainBurned decodes a CrosschainBurned log.
//
// Solidity: event CrosschainBurned(address indexed from, uint256 amount)
func (_SuperToken *SuperTokenFilterer) ParseCrosschainBurned(log types.Log) (*SuperTokenCrosschainBurned, error) {
	event := new(SuperTokenCrosschainBurned)
	if err := _SuperToken.contract.UnpackLog(event, "CrosschainBurned", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// ParseDeposited decodes a Deposited log.
//
// Solidity: event Deposited(address indexed user, uint256 amount)
func (_SuperToken *SuperTokenFilterer) ParseDeposited(log types.Log) (*SuperTokenDeposited, error) {
	event := new(SuperTokenDeposited)
	if err := _SuperToken.contract.UnpackLog(event, "Deposited", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}
