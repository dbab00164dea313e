package handler

import (
	"encoding/base64"
	"testing"

	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobGroupCursor(t *testing.T) {
	encoded := EncodeJobGroupCursor(&storage.JobGroupCursor{ID: 42})

	cursor, err := DecodeJobGroupCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor.ID)

	cursor, err = DecodeJobGroupCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeJobGroupCursor_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{name: "not base64", cursor: "%%%"},
		{name: "missing prefix", cursor: base64.URLEncoding.EncodeToString([]byte("42"))},
		{name: "prefix only", cursor: base64.URLEncoding.EncodeToString([]byte("jg|"))},
		{name: "non numeric id", cursor: base64.URLEncoding.EncodeToString([]byte("jg|abc"))},
		{name: "negative id", cursor: base64.URLEncoding.EncodeToString([]byte("jg|-1"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeJobGroupCursor(tt.cursor)
			assert.Error(t, err)
			assert.Nil(t, cursor)
		})
	}
}
