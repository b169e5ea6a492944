package departure

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		expectErr    bool
		expectID     string
		expectLegacy int64
	}{
		{"数値ID", `42`, false, "", 42},
		{"数値IDの文字列", `"42"`, false, "", 42},
		{"ドキュメントID文字列", `"dep-x8k2m9q1"`, false, "dep-x8k2m9q1", 0},
		{"オブジェクトのdocumentId", `{"documentId": "dep-x8k2m9q1"}`, false, "dep-x8k2m9q1", 0},
		{"オブジェクトの数値id", `{"id": 42}`, false, "", 42},
		{"documentIdが優先される", `{"id": 42, "documentId": "dep-a1"}`, false, "dep-a1", 0},
		{"null は空参照", `null`, false, "", 0},
		{"0は不正", `0`, true, "", 0},
		{"負数は不正", `-5`, true, "", 0},
		{"空文字列は不正", `""`, true, "", 0},
		{"空オブジェクトは不正", `{}`, true, "", 0},
		{"真偽値は不正", `true`, true, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Ref
			err := json.Unmarshal([]byte(tt.input), &r)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectID, r.ID)
			assert.Equal(t, tt.expectLegacy, r.LegacyID)
		})
	}
}

func TestRef_IsZero(t *testing.T) {
	assert.True(t, Ref{}.IsZero())
	assert.False(t, Ref{ID: "dep-1"}.IsZero())
	assert.False(t, Ref{LegacyID: 1}.IsZero())
}

func TestParseRef(t *testing.T) {
	t.Run("数値文字列は旧IDとして解決", func(t *testing.T) {
		r, err := ParseRef("123")
		require.NoError(t, err)
		assert.Equal(t, int64(123), r.LegacyID)
		assert.Empty(t, r.ID)
	})

	t.Run("UUID文字列は正規IDとして解決", func(t *testing.T) {
		r, err := ParseRef("550e8400-e29b-41d4-a716-446655440000")
		require.NoError(t, err)
		assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", r.ID)
	})

	t.Run("空文字列はエラー", func(t *testing.T) {
		_, err := ParseRef("")
		assert.ErrorIs(t, err, ErrInvalidRef)
	})
}
