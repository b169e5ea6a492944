package departure

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Ref は出発日程への参照を表す
// 旧CMSとの互換のため、数値ID・文字列ID・オブジェクト形式のいずれも受け付け、
// 境界で正規化する。台帳本体は正規化後のIDしか扱わない。
type Ref struct {
	ID       string
	LegacyID int64
}

// IsZero は参照が空かを返す
func (r Ref) IsZero() bool {
	return r.ID == "" && r.LegacyID == 0
}

// refObject はオブジェクト形式の参照ボディ
type refObject struct {
	ID         json.Number `json:"id"`
	DocumentID string      `json:"documentId"`
}

// UnmarshalJSON は受け付ける3形式を1つの正規形へ変換する
//   - 数値: 旧CMSの数値ID
//   - 文字列: 正規のドキュメントID（数字のみの文字列は数値IDとして扱う）
//   - オブジェクト: {"id": 123} または {"documentId": "..."}
func (r *Ref) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*r = Ref{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidRef
		}
		return r.fromString(s)
	case '{':
		var obj refObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return ErrInvalidRef
		}
		if obj.DocumentID != "" {
			r.ID = obj.DocumentID
			r.LegacyID = 0
			return nil
		}
		if obj.ID != "" {
			n, err := obj.ID.Int64()
			if err != nil || n <= 0 {
				return ErrInvalidRef
			}
			r.ID = ""
			r.LegacyID = n
			return nil
		}
		return ErrInvalidRef
	default:
		var n int64
		if err := json.Unmarshal(data, &n); err != nil || n <= 0 {
			return ErrInvalidRef
		}
		r.ID = ""
		r.LegacyID = n
		return nil
	}
}

func (r *Ref) fromString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrInvalidRef
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return ErrInvalidRef
		}
		r.ID = ""
		r.LegacyID = n
		return nil
	}
	r.ID = s
	r.LegacyID = 0
	return nil
}

// ParseRef はパスパラメータ等の文字列から参照を作る
func ParseRef(s string) (Ref, error) {
	var r Ref
	if err := r.fromString(s); err != nil {
		return Ref{}, err
	}
	return r, nil
}
