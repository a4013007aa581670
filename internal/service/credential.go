package service

import (
	"fmt"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/fjod/go_cart/cartmutation/internal/token"
)

// Credential is what a caller presents to prove cart ownership. AccountID
// comes from the authentication layer; CartToken is the raw anonymous token.
type Credential struct {
	AccountID string
	CartToken string
}

var defaultTokenSource = token.Generate

// owner resolves the credential into the owner a cart must match. The
// anonymous token is hashed here and never passed further down.
func (s *CartService) owner(cred Credential) (domain.Owner, error) {
	if cred.AccountID != "" {
		return domain.AccountOwner{AccountID: cred.AccountID}, nil
	}
	if cred.CartToken == "" {
		return nil, fmt.Errorf("account or cart token is required: %w", domain.ErrUnauthorized)
	}
	return domain.AnonymousOwner{TokenHash: s.hasher.Hash(cred.CartToken)}, nil
}
