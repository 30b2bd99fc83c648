package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/google/uuid"
)

var stateEncoding = base64.RawURLEncoding

// StatePayload is the signed content of a login state token.
type StatePayload struct {
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"ts"`
}

// StateSigner issues and verifies the anti-forgery token carried through
// the provider redirect. Tokens have the form
// base64url(payload) + "." + base64url(HMAC-SHA256(key, payload)).
type StateSigner struct {
	key      []byte
	now      func() time.Time
	newNonce func() string
}

func NewStateSigner(key []byte) *StateSigner {
	return &StateSigner{
		key:      key,
		now:      time.Now,
		newNonce: func() string { return uuid.NewString() },
	}
}

// Issue returns a fresh token stamped with the current time.
func (s *StateSigner) Issue() (string, error) {
	payload, err := json.Marshal(StatePayload{Nonce: s.newNonce(), IssuedAt: s.now().Unix()})
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return stateEncoding.EncodeToString(payload) + "." + stateEncoding.EncodeToString(s.sign(payload)), nil
}

// Verify checks shape, signature and age. A token exactly maxAge old is
// still valid. Every failure is reported as common.ErrInvalidState.
func (s *StateSigner) Verify(token string, maxAge time.Duration) (*StatePayload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, common.ErrInvalidState
	}

	raw, err := stateEncoding.Strict().DecodeString(parts[0])
	if err != nil {
		return nil, common.ErrInvalidState
	}
	sig, err := stateEncoding.Strict().DecodeString(parts[1])
	if err != nil {
		return nil, common.ErrInvalidState
	}

	if !hmac.Equal(sig, s.sign(raw)) {
		return nil, common.ErrInvalidState
	}

	var p StatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.ErrInvalidState
	}
	if p.IssuedAt <= 0 || s.now().Unix()-p.IssuedAt > int64(maxAge/time.Second) {
		return nil, common.ErrInvalidState
	}

	return &p, nil
}

func (s *StateSigner) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}
