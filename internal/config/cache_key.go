package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionIdentityKey returns the cache key holding the identity behind a session token.
func (r *CacheKeyStruct) SessionIdentityKey(tokenID string) string {
	return fmt.Sprintf("portal:session:%s", tokenID)
}

var CacheKey = NewCacheKeyStruct()
