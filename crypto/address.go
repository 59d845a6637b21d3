// Package crypto provides the identity primitives used throughout the
// engine: bech32-encoded addresses for accounts and assets, and secp256k1
// key material for signing and recovering an account's address.
package crypto

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix distinguishes the two identifier namespaces the engine
// operates over. Accounts and assets are both opaque 20-byte identifiers
// (spec.md §3) but are kept in separate bech32 namespaces so a caller can
// never accidentally pass one where the other is expected.
type AddressPrefix string

const (
	// AccountPrefix namespaces AccountId values (depositors, borrowers,
	// owners, fee recipients).
	AccountPrefix AddressPrefix = "flv"
	// AssetPrefix namespaces AssetId values (the fungible tokens pools are
	// denominated in).
	AssetPrefix AddressPrefix = "flva"
)

// Address is a 20-byte identifier rendered with a human-readable bech32
// prefix. It backs both AccountId and AssetId in this engine.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

// NewAddress constructs an Address from raw bytes, requiring the canonical
// 20-byte length.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("crypto: address must be 20 bytes, got %d", len(b))
	}
	cloned := append([]byte(nil), b...)
	return Address{prefix: prefix, bytes: cloned}, nil
}

// MustNewAddress constructs an Address and panics on invalid input. Reserved
// for call sites that already hold a validated 20-byte slice (e.g. cloning an
// existing Address).
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsZero reports whether the address has no identity assigned, the sentinel
// used for "no recipient configured" throughout the engine.
func (a Address) IsZero() bool {
	if len(a.bytes) == 0 {
		return true
	}
	for _, b := range a.bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

// String renders the bech32 encoding of the address.
func (a Address) String() string {
	if len(a.bytes) == 0 {
		return ""
	}
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a defensive copy of the raw identifier bytes.
func (a Address) Bytes() []byte {
	if a.bytes == nil {
		return nil
	}
	return append([]byte(nil), a.bytes...)
}

// Prefix returns the address's namespace.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// Clone returns a deep copy, safe to mutate independently of the receiver.
func (a Address) Clone() Address {
	if a.bytes == nil {
		return Address{prefix: a.prefix}
	}
	return MustNewAddress(a.prefix, a.bytes)
}

// Equal reports whether two addresses share a namespace and identifier.
func (a Address) Equal(other Address) bool {
	if a.prefix != other.prefix {
		return false
	}
	if len(a.bytes) != len(other.bytes) {
		return false
	}
	for i := range a.bytes {
		if a.bytes[i] != other.bytes[i] {
			return false
		}
	}
	return true
}

// DecodeAddress parses a bech32-encoded address string produced by String.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 address: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}
