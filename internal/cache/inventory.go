package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	JournalKeyPrefix = "journal:%d"
	UserKeyPrefix    = "user:%d"
)

const (
	JournalTTL = 10 * time.Minute
	UserTTL    = 5 * time.Minute
)

// JournalKey holds the anonymous view of a journal.
func JournalKey(id uint) string {
	return fmt.Sprintf(JournalKeyPrefix, id)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateJournal(ctx context.Context, id uint) {
	Invalidate(ctx, JournalKey(id))
}
