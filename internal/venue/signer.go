package venue

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// TransactionSigner produces the credential proof a venue attaches to
// an order before submission. The concrete signature scheme is the
// venue's business; the engine only moves opaque strings around.
type TransactionSigner interface {
	Sign(payload []byte) (string, error)
	PublicIdentity() string
}

// LocalSigner signs payloads with an HMAC derived from the user's
// stored credential. Venues that authenticate per request (API key
// exchanges) wrap this; venues with their own wallet flow replace it.
type LocalSigner struct {
	identity string
	secret   []byte
}

func NewLocalSigner(identity, secret string) (*LocalSigner, error) {
	if identity == "" || secret == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "signer requires an identity and a secret")
	}

	return &LocalSigner{identity: identity, secret: []byte(secret)}, nil
}

func (s *LocalSigner) Sign(payload []byte) (string, error) {
	mac := hmac.New(sha256.New, s.secret)

	if _, err := mac.Write(payload); err != nil {
		return "", errors.Wrap(errors.ErrCodeSigningFailed, "hmac write", err)
	}

	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (s *LocalSigner) PublicIdentity() string {
	return s.identity
}
