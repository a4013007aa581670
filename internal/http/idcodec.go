package http

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
)

// Namespaces of externally visible identifiers.
const (
	NamespaceCart     = "cart"
	NamespaceProduct  = "product"
	NamespaceCartItem = "cartItem"
)

// EncodeID turns a storage id into the opaque form clients see.
func EncodeID(namespace, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(namespace + ":" + id))
}

// DecodeID reverses EncodeID and rejects ids minted for another namespace.
func DecodeID(namespace, opaque string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(opaque, "="))
	if err != nil {
		return "", fmt.Errorf("malformed %s id: %w", namespace, domain.ErrInvalidArgument)
	}
	ns, id, ok := strings.Cut(string(raw), ":")
	if !ok || ns != namespace || id == "" {
		return "", fmt.Errorf("malformed %s id: %w", namespace, domain.ErrInvalidArgument)
	}
	return id, nil
}
