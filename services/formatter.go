package services

import (
	"fmt"
	"strings"
	"time"

	"diary/models"
)

const (
	defaultCategoryIcon = "💬"
	defaultSpeaker      = "SPEAKER_00"
	maxActionItems      = 5
)

var categoryIcons = map[string]string{
	"personal":      "👤",
	"education":     "📚",
	"health":        "🏥",
	"finance":       "💰",
	"legal":         "⚖️",
	"philosophy":    "🤔",
	"spiritual":     "🙏",
	"science":       "🔬",
	"technology":    "💻",
	"business":      "💼",
	"social":        "👥",
	"travel":        "✈️",
	"food":          "🍽️",
	"entertainment": "🎬",
	"sports":        "⚽",
	"politics":      "🏛️",
	"other":         "💬",
}

// CategoryIcon はカテゴリに対応するアイコンを返します。
func CategoryIcon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return defaultCategoryIcon
}

// Formatter は会話データから日記と STT 生テキストの Markdown を組み立てます。
type Formatter struct {
	locale   Locale
	location *time.Location
	now      Clock
}

func NewFormatter(locale Locale, location *time.Location, now Clock) *Formatter {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Formatter{locale: locale, location: location, now: now}
}

func (f *Formatter) Locale() Locale {
	return f.locale
}

// DiaryHeader は日記ファイル先頭の見出しです。日付が解釈できなければそのまま埋め込みます。
func (f *Formatter) DiaryHeader(date string) string {
	formatted := date
	if t, err := time.Parse("2006-01-02", date); err == nil {
		formatted = f.locale.diaryHeading(t, f.locale.Weekdays[t.Weekday()])
	}
	return fmt.Sprintf(f.locale.diaryTitle, formatted) + "\n\n---\n\n"
}

func (f *Formatter) TranscriptHeader(date string) string {
	return fmt.Sprintf(f.locale.transcriptTitle, date) + "\n\n---\n\n"
}

func (f *Formatter) title(record models.ConversationRecord) string {
	if title := strings.TrimSpace(record.Structured.Title); title != "" {
		return title
	}
	return f.locale.DefaultTitle
}

// DiaryEntry は1会話分の日記エントリです。
func (f *Formatter) DiaryEntry(record models.ConversationRecord) string {
	category := record.Category()
	at := ParseOrNow(string(record.CreatedAt), f.location, f.now)

	var b strings.Builder
	fmt.Fprintf(&b, "\n### %s %s\n\n", CategoryIcon(category), f.title(record))
	fmt.Fprintf(&b, "**%s**: %s  \n", f.locale.TimeLabel, at.Format("15:04"))
	fmt.Fprintf(&b, "**%s**: %s\n", f.locale.CategoryLabel, category)
	if record.HasTranscript() {
		fmt.Fprintf(&b, "%s(#stt-%s)\n", f.locale.TranscriptLink, record.ShortID())
	}
	fmt.Fprintf(&b, "\n%s\n", record.Structured.Overview)

	items := record.Structured.ActionItems
	if len(items) > 0 {
		fmt.Fprintf(&b, "\n%s\n", f.locale.ActionItems)
		if len(items) > maxActionItems {
			items = items[:maxActionItems]
		}
		for _, item := range items {
			fmt.Fprintf(&b, "- [ ] %s\n", item.Label())
		}
	}

	b.WriteString("\n---\n")
	return b.String()
}

// TranscriptEntry は1会話分の STT 生テキストです。セグメントが無ければプレースホルダを出します。
func (f *Formatter) TranscriptEntry(record models.ConversationRecord) string {
	id := record.ID
	if id == "" {
		id = "unknown"
	}
	at := ParseOrNow(string(record.CreatedAt), f.location, f.now)

	var b strings.Builder
	fmt.Fprintf(&b, "\n## 📝 %s - %s\n\n", f.title(record), id)
	fmt.Fprintf(&b, "**%s**: %s\n\n", f.locale.RecordedAt, at.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "### %s\n\n", f.locale.TranscriptHead)

	if !record.HasTranscript() {
		fmt.Fprintf(&b, "%s\n\n", f.locale.NoTranscript)
	}
	for _, segment := range record.TranscriptSegments {
		fmt.Fprintf(&b, "%s [%ds - %ds]\n%s\n\n",
			f.speakerLabel(segment),
			int64(segment.Start),
			int64(segment.End),
			strings.TrimSpace(segment.Text),
		)
	}

	b.WriteString("\n---\n\n")
	return b.String()
}

func (f *Formatter) speakerLabel(segment models.TranscriptSegment) string {
	if segment.IsUser {
		return f.locale.YouLabel
	}
	speaker := segment.Speaker
	if speaker == "" {
		speaker = defaultSpeaker
	}
	return fmt.Sprintf(f.locale.SpeakerLabel, speaker)
}
