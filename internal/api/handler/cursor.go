package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
)

const cursorPrefix = "jg|"

// DecodeJobGroupCursor parses an opaque page cursor; an empty string means the first page
func DecodeJobGroupCursor(cursorStr string) (*storage.JobGroupCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	s := string(decoded)
	if len(s) <= len(cursorPrefix) || s[:len(cursorPrefix)] != cursorPrefix {
		return nil, fmt.Errorf("invalid cursor format")
	}

	id, err := strconv.ParseInt(s[len(cursorPrefix):], 10, 64)
	if err != nil || id < 0 {
		return nil, fmt.Errorf("invalid id in cursor")
	}

	return &storage.JobGroupCursor{ID: id}, nil
}

// EncodeJobGroupCursor renders the cursor for the page after the given job group
func EncodeJobGroupCursor(cursor *storage.JobGroupCursor) string {
	return base64.URLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(cursor.ID, 10)))
}
