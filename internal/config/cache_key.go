package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StaffSessionKey returns the cache key holding a staff member's active token ID
func (r *CacheKeyStruct) StaffSessionKey(staffID int) string {
	return fmt.Sprintf("login:%d", staffID)
}

// LoginAttemptsKey returns the fixed-window counter key for login attempts from an IP
func (r *CacheKeyStruct) LoginAttemptsKey(ip string, window int64) string {
	return fmt.Sprintf("ratelimit:login:%s:%d", ip, window)
}

// QueryKey returns the cache key storing a serialized list query result
func (r *CacheKeyStruct) QueryKey(canonical string) string {
	return "qc:" + canonical
}

// QueryTagKey returns the set of cached query keys belonging to a resource
func (r *CacheKeyStruct) QueryTagKey(resource string) string {
	return fmt.Sprintf("qc:tag:%s", resource)
}

// QueryGenerationKey returns the counter bumped on every invalidation of a resource
func (r *CacheKeyStruct) QueryGenerationKey(resource string) string {
	return fmt.Sprintf("qc:gen:%s", resource)
}

// ConversationChannel returns the Redis PubSub channel name for a conversation's new messages
func (r *CacheKeyStruct) ConversationChannel(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

var CacheKey = NewCacheKeyStruct()
