// SPDX-License-Identifier: MPL-2.0

package keys

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// SubstratePrefix is the generic Substrate SS58 network prefix.
const SubstratePrefix = 42

var ss58Context = []byte("SS58PRE")

// ErrInvalidAddress is returned by DecodeAddress for malformed input.
var ErrInvalidAddress = errors.New("invalid ss58 address")

// Address encodes a 32-byte public key as an SS58 address with the generic
// Substrate prefix.
func Address(pub []byte) string {
	payload := append([]byte{SubstratePrefix}, pub...)
	sum := ss58Checksum(payload)
	return base58.Encode(append(payload, sum[:2]...))
}

// DecodeAddress returns the public key carried by an SS58 address with a
// single-byte prefix, verifying its checksum.
func DecodeAddress(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(raw) != 1+32+2 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(raw))
	}
	payload, check := raw[:33], raw[33:]
	sum := ss58Checksum(payload)
	if !bytes.Equal(sum[:2], check) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return payload[1:], nil
}

func ss58Checksum(payload []byte) [blake2b.Size]byte {
	return blake2b.Sum512(append(append([]byte{}, ss58Context...), payload...))
}
