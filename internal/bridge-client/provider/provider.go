package provider

import (
	"context"
	"fmt"
)

// Event names follow EIP-1193.
type Event string

const (
	ChainChanged    Event = "chainChanged"
	AccountsChanged Event = "accountsChanged"
)

type Notification struct {
	Event      Event
	ChainIDHex string
	Accounts   []string
}

type Handler func(Notification)

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// AddChainParams is the wallet_addEthereumChain payload.
type AddChainParams struct {
	ChainIDHex        string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
}

// Provider is the wallet capability a session drives.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (string, error)
	SwitchChain(ctx context.Context, chainIDHex string) error
	AddChain(ctx context.Context, params AddChainParams) error
	Subscribe(event Event, handler Handler)
	UnsubscribeAll()
}

const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnrecognizedChain = 4902
	CodeInvalidParams     = -32602
)

// RPCError is an EIP-1193 provider error. Two errors match under errors.Is
// when their codes match.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func (e *RPCError) Is(target error) bool {
	t, ok := target.(*RPCError)
	return ok && t.Code == e.Code
}

var (
	ErrUserRejected      = &RPCError{Code: CodeUserRejected, Message: "user rejected the request"}
	ErrUnauthorized      = &RPCError{Code: CodeUnauthorized, Message: "account not authorized"}
	ErrUnrecognizedChain = &RPCError{Code: CodeUnrecognizedChain, Message: "unrecognized chain id"}
)

func invalidParams(format string, args ...any) error {
	return &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}
