package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"walletbridge/agent/database"
	"walletbridge/agent/internal/models"
	"walletbridge/shared/logger"
)

const linkTokenBytes = 16 // 32 hex characters on the wire

// LinkTokenManager issues and verifies the time-boxed tokens that bind a
// chat identity to a wallet address.
type LinkTokenManager struct {
	identities *database.IdentityStore
	baseURL    string
	ttl        time.Duration
	log        *logger.Logger

	// now is swapped in tests to step the clock past an expiry.
	now func() time.Time
}

func NewLinkTokenManager(identities *database.IdentityStore, baseURL string, ttl time.Duration, log *logger.Logger) *LinkTokenManager {
	return &LinkTokenManager{
		identities: identities,
		baseURL:    baseURL,
		ttl:        ttl,
		log:        log,
		now:        time.Now,
	}
}

// Issue generates a fresh token for the identity and returns the front-end
// URL embedding it. Re-issuing while a prior unexpired token exists simply
// overwrites it; there is a single writer per interactive command. Fails
// with ErrAlreadyLinked when a wallet is already bound.
func (m *LinkTokenManager) Issue(ctx context.Context, id *models.Identity) (string, error) {
	if id.Linked() {
		return "", ErrAlreadyLinked
	}

	buf := make([]byte, linkTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate link token: %w", err)
	}
	token := hex.EncodeToString(buf)
	expiresAt := m.now().Add(m.ttl)

	if err := m.identities.SetLinkToken(ctx, id.TelegramID, token, expiresAt); err != nil {
		return "", fmt.Errorf("%w: persist link token: %v", ErrUnavailable, err)
	}

	m.log.Info("link token issued", "telegramID", id.TelegramID, "expiresAt", expiresAt)
	return fmt.Sprintf("%s?token=%s", strings.TrimRight(m.baseURL, "/"), url.QueryEscape(token)), nil
}

// Verify checks the signed challenge for a token and, on success, binds the
// claimed wallet to whichever identity still holds the token. Binding,
// token clearing and expiry clearing happen in one conditional row update,
// so a token can never be consumed twice.
//
// Failure modes: ErrNotFound (no identity holds this exact token),
// ErrTokenExpired (deadline passed; the token is left for natural
// overwrite), ErrMalformedSignature, ErrSignatureMismatch.
func (m *LinkTokenManager) Verify(ctx context.Context, token, claimedAddress, signature string) error {
	id, err := m.identities.GetByLinkToken(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: look up link token: %v", ErrUnavailable, err)
	}

	if id.LinkTokenExpiresAt == nil || m.now().After(*id.LinkTokenExpiresAt) {
		return ErrTokenExpired
	}

	if !IsHexAddress(claimedAddress) {
		return fmt.Errorf("%w: claimed address is not a hex address", ErrInvalid)
	}

	recovered, err := RecoverSigner(ChallengeMessage(token), signature)
	if err != nil {
		return err
	}

	claimed := CanonicalAddress(claimedAddress)
	if recovered != claimed {
		return ErrSignatureMismatch
	}

	matched, err := m.identities.BindWallet(ctx, token, claimed, m.now())
	if err != nil {
		return fmt.Errorf("%w: bind wallet: %v", ErrUnavailable, err)
	}
	if !matched {
		// The token was consumed or overwritten between lookup and bind.
		return ErrNotFound
	}

	m.log.Info("wallet linked", "telegramID", id.TelegramID, "wallet", claimed)
	return nil
}

// ChallengeMessage is the canonical text a wallet owner signs to prove
// address ownership. It is a pure function of the token so the front end
// reproduces it byte for byte without any server state.
func ChallengeMessage(token string) string {
	return fmt.Sprintf("WalletBridge verification\nToken: %s", token)
}
