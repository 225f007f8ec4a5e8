package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// OwnerCredentials is the persisted owner identity. PrivateKey is the hex
// encoding of the secp256k1 key; Address is derived and stored alongside it
// so operators can read the owner address without decoding the key.
type OwnerCredentials struct {
	Address    ethcommon.Address `json:"address"`
	PrivateKey string            `json:"private_key"`
}

// LoadOrCreateOwnerCredentials reads the owner key file at path, generating
// and persisting a fresh key on first start. The file is written via a
// temporary file and rename so a crash never leaves a half-written key.
func LoadOrCreateOwnerCredentials(path string) (*OwnerCredentials, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var creds OwnerCredentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, fmt.Errorf("owner credentials %s: %w", path, err)
		}
		key, err := crypto.HexToECDSA(creds.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("owner credentials %s: %w", path, err)
		}
		derived := crypto.PubkeyToAddress(key.PublicKey)
		if creds.Address != derived {
			return nil, fmt.Errorf("owner credentials %s: address %s does not match key", path, creds.Address.Hex())
		}
		return &creds, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("owner credentials %s: %w", path, err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating owner key: %w", err)
	}
	creds := &OwnerCredentials{
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: fmt.Sprintf("%x", crypto.FromECDSA(key)),
	}

	data, err = json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return nil, err
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return nil, fmt.Errorf("writing owner credentials: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("saving owner credentials: %w", err)
	}
	return creds, nil
}
