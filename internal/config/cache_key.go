package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RateLimitKey returns the Redis key holding a fixed-window counter.
func (r *CacheKeyStruct) RateLimitKey(key string) string {
	return fmt.Sprintf("ratelimit:%s", key)
}

// AIQuotaMinuteKey returns the limiter key of an identity's per-minute AI quota.
func (r *CacheKeyStruct) AIQuotaMinuteKey(identity string) string {
	return fmt.Sprintf("%s:minute", identity)
}

// AIQuotaDayKey returns the limiter key of an identity's per-day AI quota.
func (r *CacheKeyStruct) AIQuotaDayKey(identity string) string {
	return fmt.Sprintf("%s:day", identity)
}

// ClientIPRateKey returns the generic limiter key used for per-IP API throttling.
func (r *CacheKeyStruct) ClientIPRateKey(ip string) string {
	return fmt.Sprintf("api:ip:%s", ip)
}

// ExplanationKey returns the cache key for a content-addressed explanation digest.
func (r *CacheKeyStruct) ExplanationKey(digest string) string {
	return fmt.Sprintf("explanation:%s", digest)
}

// SampleSnapshotKey returns the key holding a client's sample-mode snapshot for an exam.
func (r *CacheKeyStruct) SampleSnapshotKey(clientID, examSlug string) string {
	return fmt.Sprintf("sample:%s:exam:%s:snapshot", clientID, examSlug)
}

var CacheKey = NewCacheKeyStruct()
