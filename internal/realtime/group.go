// Package realtime fans notification frames out to live connections grouped by
// recipient.
package realtime

import (
	"context"
	"strconv"
	"strings"
)

const groupPrefix = "user_"

// GroupName is the only way a recipient's group is named.
func GroupName(userID int64) string {
	return groupPrefix + strconv.FormatInt(userID, 10)
}

// ParseGroupName is the inverse of GroupName.
func ParseGroupName(group string) (int64, bool) {
	raw, ok := strings.CutPrefix(group, groupPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Publisher delivers payload to every connection joined to group.
// Zero members is not an error.
type Publisher interface {
	Publish(ctx context.Context, group string, payload []byte) error
}
