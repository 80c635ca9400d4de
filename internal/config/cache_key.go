package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UploadProgressChannel returns the Redis PubSub channel carrying progress
// events for one upload. Scoping by user keeps subscribers to their own uploads.
func (r *CacheKeyStruct) UploadProgressChannel(userID, uploadID string) string {
	return fmt.Sprintf("upload:%s:%s:progress", userID, uploadID)
}

var CacheKey = NewCacheKeyStruct()
