package netio

import (
	"context"

	"github.com/google/uuid"
)

// PlayerIdentity is the authenticated identity produced by AuthClient.Verify
// (§3: "the authenticated player identity (16-byte UUID + username)").
type PlayerIdentity struct {
	UUID     uuid.UUID
	Username string
	// ExpiresAt is a Unix-seconds expiry hint used by the keep-alive loop to
	// decide when to call Refresh (§6: "pre-expiry token refresh"). Zero
	// means "does not expire."
	ExpiresAt int64
}

// TokenPair is the result of a successful Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// AuthError classifies a Verify/Refresh failure. The OAuth state machine
// itself is out of scope (§1); this is the narrow surface C3 depends on.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "auth: " + e.Reason }

// AuthClient is the external identity-provider collaborator (§6). The core
// depends only on this interface; OAuth/PKCE/device-code flows live
// outside this repo's scope.
type AuthClient interface {
	Verify(ctx context.Context, identityToken string) (PlayerIdentity, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}
