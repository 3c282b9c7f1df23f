// Package signers provides the building blocks for reserving and filling
// signature placeholders in PDF files: signature dictionary construction
// and signers that compute the payload for the reserved /Contents region.
package signers

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
)

// SigningError wraps an error that occurred while producing a signature.
type SigningError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SigningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *SigningError) Unwrap() error {
	return e.Cause
}

// NewSigningError creates a new SigningError.
func NewSigningError(message string, cause error) *SigningError {
	return &SigningError{Message: message, Cause: cause}
}

// CryptoSigner signs document byte ranges with a crypto.Signer (RSA or
// ECDSA key). The output is the raw signature value; assembling a CMS
// container around it is a collaborator's concern.
type CryptoSigner struct {
	Key  crypto.Signer
	Hash crypto.Hash
}

// NewCryptoSigner creates a signer over key using SHA-256.
func NewCryptoSigner(key crypto.Signer) *CryptoSigner {
	return &CryptoSigner{Key: key, Hash: crypto.SHA256}
}

// Sign hashes the data stream and signs the digest.
func (s *CryptoSigner) Sign(data io.Reader) ([]byte, error) {
	hash := s.Hash
	if hash == 0 {
		hash = crypto.SHA256
	}
	h := hash.New()
	if _, err := io.Copy(h, data); err != nil {
		return nil, NewSigningError("digest signed ranges", err)
	}
	digest := h.Sum(nil)

	switch s.Key.Public().(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey:
		sig, err := s.Key.Sign(rand.Reader, digest, hash)
		if err != nil {
			return nil, NewSigningError("sign digest", err)
		}
		return sig, nil
	default:
		return nil, NewSigningError(fmt.Sprintf("unsupported key type %T", s.Key.Public()), nil)
	}
}
