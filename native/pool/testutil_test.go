package pool

import (
	"flashvault/crypto"
)

func addr(prefix crypto.AddressPrefix, b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.MustNewAddress(prefix, raw)
}

func assetAddr(b byte) crypto.Address   { return addr(crypto.AssetPrefix, b) }
func accountAddr(b byte) crypto.Address { return addr(crypto.AccountPrefix, b) }
