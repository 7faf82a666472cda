package store

import (
	"fmt"
	"strings"
)

// KeyPrefix namespaces every key written by catalogd.
const KeyPrefix = "catalog:"

// CollectionKey returns the durable key holding one tenant's collection of
// the given kind. Example: catalog:acme:courses
func CollectionKey(tenant, kind string) string {
	return KeyPrefix + tenant + ":" + kind
}

// ParseCollectionKey splits a key built by CollectionKey.
func ParseCollectionKey(key string) (tenant, kind string, err error) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return "", "", fmt.Errorf("invalid collection key: %s", key)
	}
	tenant, kind, ok = strings.Cut(rest, ":")
	if !ok || tenant == "" || kind == "" {
		return "", "", fmt.Errorf("invalid collection key: %s", key)
	}
	return tenant, kind, nil
}
