package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/chunkrealm/coreserver/internal/netio"
)

// OpenAuth is a permissive AuthClient that trusts whatever identity token
// the client presents, deriving a stable UUID from it. It exists so the
// core runs end-to-end without a real OAuth/PKCE identity provider wired
// in, which §1 places out of scope; a deployment swaps this for one that
// actually calls out to its identity provider.
type OpenAuth struct{}

func (OpenAuth) Verify(ctx context.Context, identityToken string) (netio.PlayerIdentity, error) {
	if identityToken == "" {
		return netio.PlayerIdentity{}, &netio.AuthError{Reason: "empty identity token"}
	}
	return netio.PlayerIdentity{
		UUID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(identityToken)),
	}, nil
}

func (OpenAuth) Refresh(ctx context.Context, refreshToken string) (netio.TokenPair, error) {
	return netio.TokenPair{AccessToken: refreshToken}, nil
}
