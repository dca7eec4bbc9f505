package userwallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/constants"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/ethwallet/wtypes"
)

type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ wtypes.Wallet = (*Wallet)(nil)

func newWallet(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// FromHex loads a raw secp256k1 key, with or without 0x prefix.
func FromHex(privHex string) (*Wallet, error) {
	s := strings.TrimSpace(privHex)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 64 {
		return nil, fmt.Errorf("invalid privkey hex length: got %d want 64", len(s))
	}
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("to ecdsa: %w", err)
	}
	return newWallet(key), nil
}

func NewRandomWallet() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return newWallet(key), nil
}

func (w *Wallet) Address() common.Address { return w.address }

func (w *Wallet) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %v", chainID)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("keyed transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Store keeps the signing key in a go-ethereum v3 keystore file.
type Store struct {
	Path string
}

// NewStore sets up a wallet store at the canonical config path unless path is given.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) != "" {
		return &Store{Path: path}, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("user config dir: %w", err)
	}
	return &Store{Path: filepath.Join(dir, constants.AppName, constants.WalletFile)}, nil
}

// Ensure loads an existing keystore or creates and persists a new key if missing.
func (s *Store) Ensure(password []byte) (*Wallet, error) {
	raw, err := os.ReadFile(s.Path)
	if err == nil {
		key, err := keystore.DecryptKey(raw, string(password))
		if err != nil {
			return nil, fmt.Errorf("decrypt wallet %s: %w", s.Path, err)
		}
		return newWallet(key.PrivateKey), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load wallet %s: %w", s.Path, err)
	}

	w, err := NewRandomWallet()
	if err != nil {
		return nil, err
	}
	if err := s.write(w, password); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) write(w *Wallet, password []byte) error {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("key id: %w", err)
	}
	key := &keystore.Key{Id: id, Address: w.address, PrivateKey: w.key}

	blob, err := keystore.EncryptKey(key, string(password), keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		return fmt.Errorf("encrypt wallet: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), constants.DirectoryPerm); err != nil {
		return fmt.Errorf("create wallet dir: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, blob, constants.FilePerm); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return os.Rename(tmp, s.Path)
}
