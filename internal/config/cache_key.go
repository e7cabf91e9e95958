package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// BrowserSessionKey returns the cache key holding a browser session's key-value state.
func (r *CacheKeyStruct) BrowserSessionKey(sessionID string) string {
	return fmt.Sprintf("portal:session:%s", sessionID)
}

// StudentActiveAttemptKey returns the cache key for a student's in-progress attempt id.
func (r *CacheKeyStruct) StudentActiveAttemptKey(userID string) string {
	return fmt.Sprintf("student:%s:active_attempt", userID)
}

var CacheKey = NewCacheKeyStruct()
