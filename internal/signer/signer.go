// Package signer holds ledger signing keys and produces the signatures
// attached to transaction templates during the sign stage.
//
// A signature is a compact JWT signed with the key's Ed25519 private key.
// Its claims bind the signature to one template hash, so a signature lifted
// from one template does not verify against another.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrDuplicateKey is returned by Create when the ID is taken.
	ErrDuplicateKey = errors.New("duplicate key ID")
	// ErrUnknownKey is returned when a key ID is not in the keyring.
	ErrUnknownKey = errors.New("unknown key")
)

// SignatureClaims are the JWT claims of a template signature.
type SignatureClaims struct {
	jwt.RegisteredClaims
	TemplateHash string `json:"template_hash"`
}

// Keyring issues and verifies template signatures. Safe for concurrent use.
type Keyring struct {
	mu     sync.RWMutex
	keys   map[string]ed25519.PrivateKey
	issuer string
	ttl    time.Duration
}

// NewKeyring creates an empty keyring.
//
//	issuer: the "iss" claim value; typically the ledger name.
//	ttl:    how long a signature stays valid before submit (default: 5 minutes).
func NewKeyring(issuer string, ttl time.Duration) *Keyring {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Keyring{
		keys:   make(map[string]ed25519.PrivateKey),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Create generates a key under id and returns its public half.
func (k *Keyring) Create(id string) (ed25519.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, id)
	}
	k.keys[id] = priv
	return pub, nil
}

// Has reports whether id is in the keyring.
func (k *Keyring) Has(id string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.keys[id]
	return ok
}

// Reset drops every key.
func (k *Keyring) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = make(map[string]ed25519.PrivateKey)
}

// Sign produces a signature by keyID over templateHash.
func (k *Keyring) Sign(keyID, templateHash string) (string, error) {
	k.mu.RLock()
	priv, ok := k.keys[keyID]
	k.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}

	now := time.Now().UTC()
	claims := SignatureClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    k.issuer,
			Subject:   keyID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
			ID:        uuid.New().String(),
		},
		TemplateHash: templateHash,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = keyID
	signed, err := token.SignedString(priv)
	if err != nil {
		return "", fmt.Errorf("sign template: %w", err)
	}
	return signed, nil
}

// Verify checks that sig is a valid, unexpired signature over templateHash
// and returns the ID of the key that made it.
func (k *Keyring) Verify(sig, templateHash string) (string, error) {
	token, err := jwt.ParseWithClaims(
		sig,
		&SignatureClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			kid, _ := tok.Header["kid"].(string)
			k.mu.RLock()
			priv, ok := k.keys[kid]
			k.mu.RUnlock()
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
			}
			return priv.Public(), nil
		},
		jwt.WithIssuer(k.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("verify signature: %w", err)
	}

	claims, ok := token.Claims.(*SignatureClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid signature claims")
	}
	if kid, _ := token.Header["kid"].(string); claims.Subject != kid {
		return "", errors.New("signature subject does not match its key")
	}
	if claims.TemplateHash != templateHash {
		return "", errors.New("signature does not cover this template")
	}
	return claims.Subject, nil
}
