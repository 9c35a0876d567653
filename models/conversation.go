package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ConversationRecord は webhook で受け取る会話データです。どのフィールドも省略され得ます。
type ConversationRecord struct {
	ID                 string              `json:"id"`
	CreatedAt          Timestamp           `json:"created_at"`
	Structured         Structured          `json:"structured"`
	TranscriptSegments []TranscriptSegment `json:"transcript_segments"`

	// Raw は受信したボディそのもので、生データ JSON の保存に使います。
	Raw json.RawMessage `json:"-"`
}

type Structured struct {
	Title       string       `json:"title"`
	Overview    string       `json:"overview"`
	Category    string       `json:"category"`
	ActionItems []ActionItem `json:"action_items"`
}

type TranscriptSegment struct {
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	IsUser  bool    `json:"is_user"`
}

// ParseConversation はボディを会話データとして解釈します。
// JSON として不正な場合はエラー、オブジェクト以外の JSON は空の会話として扱います。
func ParseConversation(body []byte) (ConversationRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return ConversationRecord{}, fmt.Errorf("body is not valid JSON")
	}
	if trimmed[0] != '{' {
		return ConversationRecord{}, nil
	}

	var record ConversationRecord
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return ConversationRecord{}, fmt.Errorf("unexpected conversation shape: %w", err)
	}
	record.Raw = append(json.RawMessage(nil), trimmed...)
	return record, nil
}

func (r ConversationRecord) HasTranscript() bool {
	return len(r.TranscriptSegments) > 0
}

// ShortID は会話 ID の先頭8文字です。バイトではなく文字単位で切り出します。
func (r ConversationRecord) ShortID() string {
	runes := []rune(r.ID)
	if len(runes) <= 8 {
		return r.ID
	}
	return string(runes[:8])
}

// Category は未設定なら "other" を返します。
func (r ConversationRecord) Category() string {
	if c := strings.TrimSpace(r.Structured.Category); c != "" {
		return c
	}
	return "other"
}

// RawJSON は受信した会話をインデント付きで再シリアライズします。非ASCII文字はそのまま残ります。
func (r ConversationRecord) RawJSON() ([]byte, error) {
	source := r.Raw
	if len(source) == 0 {
		encoded, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		source = encoded
	}
	var out bytes.Buffer
	if err := json.Indent(&out, source, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Timestamp は created_at の生の文字列です。
// 文字列以外の値 (エポック秒など) は解釈できない時刻として空にし、受信自体は失敗させません。
type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Timestamp(s)
	return nil
}
