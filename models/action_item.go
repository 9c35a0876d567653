package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type ActionItemKind int

const (
	ActionItemStructured ActionItemKind = iota
	ActionItemPlainText
)

// ActionItem は {"description": ...} 形式と単なる文字列の両方を受け付けます。
// それ以外の値は JSON の文字列表現として PlainText に正規化されます。
type ActionItem struct {
	Kind        ActionItemKind
	Description string
	Text        string
}

func (a *ActionItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*a = ActionItem{Kind: ActionItemPlainText}
	case data[0] == '{':
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		item := ActionItem{Kind: ActionItemStructured}
		switch d := obj["description"].(type) {
		case nil:
		case string:
			item.Description = d
		default:
			item.Description = fmt.Sprint(d)
		}
		*a = item
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ActionItem{Kind: ActionItemPlainText, Text: s}
	default:
		var compact bytes.Buffer
		if err := json.Compact(&compact, data); err != nil {
			return err
		}
		*a = ActionItem{Kind: ActionItemPlainText, Text: compact.String()}
	}
	return nil
}

func (a ActionItem) MarshalJSON() ([]byte, error) {
	if a.Kind == ActionItemStructured {
		return json.Marshal(map[string]string{"description": a.Description})
	}
	return json.Marshal(a.Text)
}

// Label はチェックリストに表示する文字列です。
func (a ActionItem) Label() string {
	if a.Kind == ActionItemStructured {
		return a.Description
	}
	return a.Text
}
