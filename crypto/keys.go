package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PrivateKey wraps a secp256k1 key whose signatures can prove ownership of
// an AccountId. The HTTP facade's admin routes authenticate with HMAC JWTs
// (server/auth.go) and do not use these keys.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

// PublicKey wraps the public half of an owner's signing key.
type PublicKey struct {
	*ecdsa.PublicKey
}

// GeneratePrivateKey creates a new random secp256k1 key pair.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(ethcrypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// PrivateKeyFromBytes restores a key pair from its raw scalar encoding.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the raw scalar encoding of the private key.
func (k *PrivateKey) Bytes() []byte {
	return ethcrypto.FromECDSA(k.PrivateKey)
}

// PubKey derives the public key.
func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Sign produces a recoverable ECDSA signature over a 32-byte digest.
func (k *PrivateKey) Sign(digest [32]byte) ([]byte, error) {
	return ethcrypto.Sign(digest[:], k.PrivateKey)
}

// Address derives the AccountId corresponding to this public key.
func (k *PublicKey) Address() Address {
	addrBytes := ethcrypto.PubkeyToAddress(*k.PublicKey).Bytes()
	return MustNewAddress(AccountPrefix, addrBytes)
}

// RecoverAddress recovers the AccountId that produced sig over digest.
func RecoverAddress(digest [32]byte, sig []byte) (Address, error) {
	pub, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return Address{}, err
	}
	addrBytes := ethcrypto.PubkeyToAddress(*pub).Bytes()
	return MustNewAddress(AccountPrefix, addrBytes), nil
}
