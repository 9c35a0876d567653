package services

import (
	"fmt"
	"strings"
	"time"
)

// Locale は日記に書き出す文言一式です。
type Locale struct {
	Name     string
	Weekdays [7]string // time.Weekday 順 (日曜始まり)

	DefaultTitle   string
	TimeLabel      string
	CategoryLabel  string
	TranscriptLink string
	ActionItems    string
	RecordedAt     string
	TranscriptHead string
	YouLabel       string
	SpeakerLabel   string
	NoTranscript   string

	diaryHeading      func(t time.Time, weekday string) string
	diaryTitle        string
	transcriptTitle   string
	diaryCreated      string
	diaryUpdated      string
	transcriptCreated string
	transcriptUpdated string
	rawSaved          string
	savedMessage      string
	transcriptSaved   string
	partialFailure    string
}

var localeJA = Locale{
	Name:           "ja",
	Weekdays:       [7]string{"日", "月", "火", "水", "木", "金", "土"},
	DefaultTitle:   "会話",
	TimeLabel:      "時間",
	CategoryLabel:  "カテゴリ",
	TranscriptLink: "**📝 STT生テキスト**: [詳細を見る]",
	ActionItems:    "**📋 アクションアイテム**:",
	RecordedAt:     "記録時間",
	TranscriptHead: "STT生テキスト",
	YouLabel:       "👤 あなた",
	SpeakerLabel:   "🎤 %s",
	NoTranscript:   "*STTデータがありません*",

	diaryHeading: func(t time.Time, weekday string) string {
		return t.Format("2006年01月02日") + "（" + weekday + "）"
	},
	diaryTitle:        "# 📔 %s の日記",
	transcriptTitle:   "# 📝 %s のSTT生テキスト",
	diaryCreated:      "📔 %s の日記を作成",
	diaryUpdated:      "📝 %s の日記を更新",
	transcriptCreated: "📝 %s のSTT生テキストを作成",
	transcriptUpdated: "📝 %s のSTT生テキストを更新",
	rawSaved:          "💾 %s の会話生データを保存: %s",
	savedMessage:      "📔 %s の日記を保存しました！",
	transcriptSaved:   " STT生テキストも保存済み。",
	partialFailure:    "⚠️ %s の日記の一部を保存できませんでした",
}

var localeEN = Locale{
	Name:           "en",
	Weekdays:       [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	DefaultTitle:   "conversation",
	TimeLabel:      "Time",
	CategoryLabel:  "Category",
	TranscriptLink: "**📝 Transcript**: [details]",
	ActionItems:    "**📋 Action items**:",
	RecordedAt:     "Recorded at",
	TranscriptHead: "Transcript",
	YouLabel:       "👤 you",
	SpeakerLabel:   "🎤 speaker: %s",
	NoTranscript:   "*No transcript data*",

	diaryHeading: func(t time.Time, weekday string) string {
		return weekday + ", " + t.Format("January 2, 2006")
	},
	diaryTitle:        "# 📔 Diary for %s",
	transcriptTitle:   "# 📝 Transcript for %s",
	diaryCreated:      "📔 Create diary for %s",
	diaryUpdated:      "📝 Update diary for %s",
	transcriptCreated: "📝 Create transcript for %s",
	transcriptUpdated: "📝 Update transcript for %s",
	rawSaved:          "💾 Save raw conversation for %s: %s",
	savedMessage:      "📔 Saved diary for %s!",
	transcriptSaved:   " Transcript saved too.",
	partialFailure:    "⚠️ Some documents for %s could not be saved",
}

// LookupLocale は名前に対応する Locale を返します。未知の名前は日本語になります。
func LookupLocale(name string) Locale {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "en", "en-us", "en_us", "english":
		return localeEN
	default:
		return localeJA
	}
}

func (l Locale) DiaryCreateMessage(date string) string {
	return fmt.Sprintf(l.diaryCreated, date)
}

func (l Locale) DiaryUpdateMessage(date string) string {
	return fmt.Sprintf(l.diaryUpdated, date)
}

func (l Locale) TranscriptCreateMessage(date string) string {
	return fmt.Sprintf(l.transcriptCreated, date)
}

func (l Locale) TranscriptUpdateMessage(date string) string {
	return fmt.Sprintf(l.transcriptUpdated, date)
}

func (l Locale) RawSavedMessage(date, shortID string) string {
	return fmt.Sprintf(l.rawSaved, date, shortID)
}

func (l Locale) SavedMessage(date string, withTranscript bool) string {
	msg := fmt.Sprintf(l.savedMessage, date)
	if withTranscript {
		msg += l.transcriptSaved
	}
	return msg
}

func (l Locale) PartialFailureMessage(date string) string {
	return fmt.Sprintf(l.partialFailure, date)
}
