package services

import (
	"fmt"
	"strings"
)

func splitDate(date string) ([]string, error) {
	parts := strings.Split(date, "-")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedDate, date)
	}
	for _, part := range parts[:3] {
		if part == "" || strings.ContainsAny(part, "/\\") {
			return nil, fmt.Errorf("%w: %q", ErrMalformedDate, date)
		}
	}
	return parts, nil
}

// DiaryPath: 2025-01-15 → diary/2025/01/15.md
func DiaryPath(date string) (string, error) {
	parts, err := splitDate(date)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("diary/%s/%s/%s.md", parts[0], parts[1], parts[2]), nil
}

// TranscriptPath: 2025-01-15 → diary/2025/01/15_transcript.md
func TranscriptPath(date string) (string, error) {
	parts, err := splitDate(date)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("diary/%s/%s/%s_transcript.md", parts[0], parts[1], parts[2]), nil
}

// RawRecordPath: 2025-01-15, abc123 → diary/2025/01/15/raw/abc123.json
func RawRecordPath(date, conversationID string) (string, error) {
	parts, err := splitDate(date)
	if err != nil {
		return "", err
	}
	if conversationID == "" {
		return "", ErrMissingID
	}
	// ID がパス区切りを含むと別の文書のパスと衝突し得る
	if strings.ContainsAny(conversationID, "/\\") || conversationID == "." || conversationID == ".." {
		return "", fmt.Errorf("%w: invalid conversation id %q", ErrMalformedInput, conversationID)
	}
	return fmt.Sprintf("diary/%s/%s/%s/raw/%s.json", parts[0], parts[1], parts[2], conversationID), nil
}
