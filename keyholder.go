package coderunner

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// pemBlockType is the PEM block this node expects NODE_PEM to contain: a
// raw 32-byte secp256k1 scalar, the same key material nostr identities are
// built from. Real PEM/PKCS8 parsing of arbitrary key formats is treated
// as an external collaborator per spec.md §1 — this is the one concrete
// shape the node itself understands.
const pemBlockType = "NOSTR PRIVATE KEY"

// KeyErrorKind distinguishes the two failure modes KeyHolder.Load can
// report.
type KeyErrorKind int

const (
	KeyErrNotFound KeyErrorKind = iota
	KeyErrNotValid
)

// KeyError is returned by Load when the PEM blob cannot be turned into a
// usable private key.
type KeyError struct {
	Kind KeyErrorKind
	msg  string
}

func (e *KeyError) Error() string { return e.msg }

func notFound(format string, args ...any) *KeyError {
	return &KeyError{Kind: KeyErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func notValid(format string, args ...any) *KeyError {
	return &KeyError{Kind: KeyErrNotValid, msg: fmt.Sprintf(format, args...)}
}

// KeyHolder owns the node's private key. No other component may touch
// the private key directly — everything else talks to a KeyHolder.
type KeyHolder struct {
	priv   *btcec.PrivateKey
	pubHex string
}

// Load parses a private key from a PEM blob. The public key is derived
// once here and cached for PublicKey().
func Load(pemBytes []byte) (*KeyHolder, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, notFound("no PEM block found")
	}
	if block.Type != pemBlockType {
		return nil, notValid("unexpected PEM block type: got %q, want %q", block.Type, pemBlockType)
	}
	if len(block.Bytes) != 32 {
		return nil, notValid("private key must be 32 bytes, got %d", len(block.Bytes))
	}

	priv, pub := btcec.PrivKeyFromBytes(block.Bytes)
	if priv == nil {
		return nil, notValid("could not derive a key from the PEM contents")
	}

	return &KeyHolder{
		priv:   priv,
		pubHex: hex.EncodeToString(schnorr.SerializePubKey(pub)),
	}, nil
}

// GeneratePEM creates a fresh secp256k1 key and encodes it as the PEM
// block Load expects, for use by a key-generation CLI command.
func GeneratePEM() ([]byte, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return nil, fmt.Errorf("generating key material: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemBlockType, Bytes: raw[:]}), nil
}

// PublicKey returns the 64-hex-character public key derived from the
// loaded private key.
func (k *KeyHolder) PublicKey() string {
	return k.pubHex
}

// Sign fills in id and sig on an unsigned event, returning the signed
// event. It does not touch PubKey — callers build events with
// KeyHolder.PublicKey() already in place.
func (k *KeyHolder) Sign(ev *Event) (*Event, error) {
	if ev.Nostr.PubKey != k.pubHex {
		return nil, fmt.Errorf("event pubkey %s does not match key holder %s", ev.Nostr.PubKey, k.pubHex)
	}

	ev.Nostr.ID = ev.Nostr.GetID()
	idBytes, err := hex.DecodeString(ev.Nostr.ID)
	if err != nil {
		return nil, fmt.Errorf("decoding event id: %w", err)
	}

	sig, err := schnorr.Sign(k.priv, idBytes)
	if err != nil {
		return nil, fmt.Errorf("signing event: %w", err)
	}
	ev.Nostr.Sig = hex.EncodeToString(sig.Serialize())
	return ev, nil
}
