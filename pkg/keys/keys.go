// SPDX-License-Identifier: MPL-2.0

// Package keys manages the registrar's ed25519 key material.
//
// The private key is stored as an OpenSSH PEM block (optionally encrypted
// with a passphrase) and the public key in authorized_keys format. Keys are
// generated once, when the private key file is absent, and never replaced.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

const (
	// PrivateKeyFile is the private key file name inside the key directory.
	PrivateKeyFile = "private_key.pem"
	// PublicKeyFile is the public key file name inside the key directory.
	PublicKeyFile = "public_key.pub"

	keyComment = "module-registrar"
)

var (
	// ErrNoKeys is returned by Load when the private key file is absent.
	ErrNoKeys = errors.New("no key material")
	// ErrPassphraseRequired is returned when the private key is encrypted
	// and no passphrase was supplied.
	ErrPassphraseRequired = errors.New("private key is encrypted; passphrase required")
	// ErrUnsupportedKey is returned for private keys that are not ed25519.
	ErrUnsupportedKey = errors.New("unsupported private key type")
)

// KeyPair is a loaded ed25519 key pair.
type KeyPair struct {
	private ed25519.PrivateKey
}

// PrivateKeyPath returns the private key path inside dir.
func PrivateKeyPath(dir string) string { return filepath.Join(dir, PrivateKeyFile) }

// PublicKeyPath returns the public key path inside dir.
func PublicKeyPath(dir string) string { return filepath.Join(dir, PublicKeyFile) }

// Ensure loads the key pair in dir, generating it first when the private key
// file does not exist. created reports whether new keys were written.
func Ensure(dir string, passphrase []byte) (kp *KeyPair, created bool, err error) {
	kp, err = Load(dir, passphrase)
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, ErrNoKeys) {
		return nil, false, err
	}
	kp, err = Generate(dir, passphrase)
	if err != nil {
		return nil, false, err
	}
	return kp, true, nil
}

// Generate writes a fresh key pair to dir. It refuses to overwrite an
// existing private key.
func Generate(dir string, passphrase []byte) (*KeyPair, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}

	var block *pem.Block
	if len(passphrase) > 0 {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, keyComment, passphrase)
	} else {
		block, err = ssh.MarshalPrivateKey(priv, keyComment)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}

	f, err := os.OpenFile(PrivateKeyPath(dir), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create private key: %w", err)
	}
	if err := pem.Encode(f, block); err != nil {
		f.Close()
		return nil, fmt.Errorf("write private key: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}

	kp := &KeyPair{private: priv}
	if err := kp.writePublic(dir); err != nil {
		return nil, err
	}
	return kp, nil
}

// Load reads the key pair from dir. The public key file is rewritten from
// the private key when it is missing.
func Load(dir string, passphrase []byte) (*KeyPair, error) {
	data, err := os.ReadFile(PrivateKeyPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoKeys, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	var raw any
	if len(passphrase) > 0 {
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(data, passphrase)
	} else {
		raw, err = ssh.ParseRawPrivateKey(data)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, ErrPassphraseRequired
		}
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch k := raw.(type) {
	case *ed25519.PrivateKey:
		priv = *k
	case ed25519.PrivateKey:
		priv = k
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, raw)
	}

	kp := &KeyPair{private: priv}
	if _, err := os.Stat(PublicKeyPath(dir)); errors.Is(err, fs.ErrNotExist) {
		if err := kp.writePublic(dir); err != nil {
			return nil, err
		}
	}
	return kp, nil
}

// Public returns the public key.
func (k *KeyPair) Public() ed25519.PublicKey {
	return k.private.Public().(ed25519.PublicKey)
}

// Sign signs msg with the private key.
func (k *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}

// Verify reports whether sig is a valid signature of msg by this key.
func (k *KeyPair) Verify(msg, sig []byte) bool {
	return ed25519.Verify(k.Public(), msg, sig)
}

// Address returns the SS58 address of the public key.
func (k *KeyPair) Address() string {
	return Address(k.Public())
}

// AuthorizedKey returns the public key in authorized_keys format without
// the trailing newline.
func (k *KeyPair) AuthorizedKey() (string, error) {
	pub, err := ssh.NewPublicKey(k.Public())
	if err != nil {
		return "", fmt.Errorf("encode public key: %w", err)
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
	return line + " " + keyComment, nil
}

func (k *KeyPair) writePublic(dir string) error {
	line, err := k.AuthorizedKey()
	if err != nil {
		return err
	}
	if err := os.WriteFile(PublicKeyPath(dir), []byte(line+"\n"), 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}
