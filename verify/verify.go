// Package verify validates publisher signatures on a resolved manifest
// against a trust store. Verification is sequential and fail-fast in the
// order signatures are declared, so the surfaced error is reproducible.
package verify

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jablko/pacote/packument"
	"github.com/jablko/pacote/trust"
)

// Delimiter separates the manifest identity from the integrity string in
// the signed message.
const Delimiter = ":"

// Message builds the signed message for a manifest identity ("name@version")
// and its canonical integrity string.
func Message(spec, integrity string) string {
	return spec + Delimiter + integrity
}

// MissingKeyError reports a signature whose key id is not in the trust
// store for the registry.
type MissingKeyError struct {
	Spec  string
	KeyID string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s has a signature with keyid %s but no corresponding public key can be found", e.Spec, e.KeyID)
}

func (e *MissingKeyError) Code() string { return "EMISSINGSIGNATUREKEY" }

// ExpiredKeyError reports a signature whose key expired before now.
type ExpiredKeyError struct {
	Spec    string
	KeyID   string
	Expires time.Time
}

func (e *ExpiredKeyError) Error() string {
	return fmt.Sprintf("%s has a signature with keyid %s but the corresponding public key expired %s", e.Spec, e.KeyID, e.Expires.Format(time.RFC3339))
}

func (e *ExpiredKeyError) Code() string { return "EEXPIREDSIGNATUREKEY" }

// InvalidSignatureError reports signature bytes that do not verify against
// the signed message.
type InvalidSignatureError struct {
	Spec      string
	KeyID     string
	Signature string
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("%s has an invalid registry signature with keyid %s and signature %s", e.Spec, e.KeyID, e.Signature)
}

func (e *InvalidSignatureError) Code() string { return "EINTEGRITYSIGNATURE" }

// Signatures checks every signature declared on a manifest, in order,
// against the keys for its registry. The first failing signature aborts
// verification; later signatures are not examined.
//
// spec is the manifest identity string, message the full signed message
// (see Message), and now the clock used for key expiry.
func Signatures(ctx context.Context, spec, message string, signatures []packument.Signature, keys []trust.PublicKey, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	digest := sha256.Sum256([]byte(message))

	for _, signature := range signatures {
		if err := ctx.Err(); err != nil {
			return err
		}
		key, ok := lookup(keys, signature.KeyID)
		if !ok {
			return &MissingKeyError{Spec: spec, KeyID: signature.KeyID}
		}
		if key.Expired(now()) {
			return &ExpiredKeyError{Spec: spec, KeyID: signature.KeyID, Expires: *key.Expires}
		}
		if err := verifyOne(key, digest[:], signature); err != nil {
			return &InvalidSignatureError{Spec: spec, KeyID: signature.KeyID, Signature: signature.Signature}
		}
	}
	return nil
}

func lookup(keys []trust.PublicKey, keyID string) (trust.PublicKey, bool) {
	for _, key := range keys {
		if key.KeyID == keyID {
			return key, true
		}
	}
	return trust.PublicKey{}, false
}

func verifyOne(key trust.PublicKey, digest []byte, signature packument.Signature) error {
	sig, err := base64.StdEncoding.DecodeString(signature.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	material, err := key.Material()
	if err != nil {
		return err
	}
	switch pub := material.(type) {
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest, sig) {
			return fmt.Errorf("ecdsa verification failed")
		}
		return nil
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, sig)
	default:
		return fmt.Errorf("unsupported public key type %T", pub)
	}
}
