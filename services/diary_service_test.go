package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diary/config"
	"diary/models"
	"diary/services/githubtest"
)

const standupBody = `{"id":"abc12345","created_at":"2025-01-15T10:00:00Z","structured":{"title":"Standup","overview":"Discussed roadmap","category":"business"},"transcript_segments":[{"text":"Hi","speaker":"S1","start":0,"end":2,"is_user":true}]}`

type recordingDeliveries struct {
	mu         sync.Mutex
	deliveries []models.Delivery
}

func (r *recordingDeliveries) Record(ctx context.Context, d models.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
	return nil
}

func newTestDiaryService(t *testing.T) (*DiaryService, *githubtest.Server, *recordingDeliveries) {
	t.Helper()
	fake, cfg := newFakeGitHub(t)
	deliveries := &recordingDeliveries{}
	clock := fixedClock(time.Date(2030, 6, 1, 3, 0, 0, 0, time.UTC))
	return NewDiaryService(cfg, NewGitHubStore(cfg), deliveries, clock), fake, deliveries
}

func TestHandleWebhook_FirstDeliveryCreatesAllDocuments(t *testing.T) {
	svc, fake, deliveries := newTestDiaryService(t)

	result, err := svc.HandleWebhook(context.Background(), []byte(standupBody), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-15", result.Date)
	assert.Equal(t, "diary/2025/01/15.md", result.FilePath)
	assert.True(t, result.HasTranscript)
	require.NotNil(t, result.TranscriptPath)
	assert.Equal(t, "diary/2025/01/15_transcript.md", *result.TranscriptPath)
	require.NotNil(t, result.RawDataPath)
	assert.Equal(t, "diary/2025/01/15/raw/abc12345.json", *result.RawDataPath)
	assert.Equal(t, "https://github.com/alice/diary/blob/main/diary/2025/01/15.md", result.GitHubURL)
	assert.Equal(t, "📔 2025-01-15 の日記を保存しました！ STT生テキストも保存済み。", result.Message)

	for _, kind := range []models.DocumentKind{models.KindDiary, models.KindTranscript, models.KindRawRecord} {
		assert.Equal(t, models.OutcomeCreated, result.Documents[kind].Status, kind)
	}

	diary, ok := fake.File("diary/2025/01/15.md")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(diary.Content, "# 📔 2025年01月15日（水） の日記\n\n---\n\n"))
	assert.Contains(t, diary.Content, "### 💼 Standup")

	transcript, ok := fake.File("diary/2025/01/15_transcript.md")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(transcript.Content, "# 📝 2025-01-15 のSTT生テキスト\n\n---\n\n"))
	assert.Contains(t, transcript.Content, "👤 あなた [0s - 2s]\nHi\n")

	raw, ok := fake.File("diary/2025/01/15/raw/abc12345.json")
	require.True(t, ok)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw.Content), &decoded))
	assert.Equal(t, "abc12345", decoded["id"])
	assert.Contains(t, raw.Content, "\n  \"id\": \"abc12345\"")

	puts := fake.Puts()
	require.Len(t, puts, 3)
	assert.Equal(t, "📔 2025-01-15 の日記を作成", puts[0].Message)
	assert.Equal(t, "📝 2025-01-15 のSTT生テキストを作成", puts[1].Message)
	assert.Equal(t, "💾 2025-01-15 の会話生データを保存: abc12345", puts[2].Message)

	require.Len(t, deliveries.deliveries, 1)
	assert.Equal(t, "user-1", deliveries.deliveries[0].UID)
	assert.Equal(t, []string{"diary=created", "transcript=created", "raw=created"}, []string(deliveries.deliveries[0].Documents))
}

func TestHandleWebhook_SecondDeliveryAppendsDiaryOnly(t *testing.T) {
	svc, fake, _ := newTestDiaryService(t)
	ctx := context.Background()
	_, err := svc.HandleWebhook(ctx, []byte(standupBody), "")
	require.NoError(t, err)
	diaryBefore, _ := fake.File("diary/2025/01/15.md")
	transcriptBefore, _ := fake.File("diary/2025/01/15_transcript.md")

	second := `{"id":"def67890","created_at":"2025-01-15T11:30:00Z","structured":{"title":"Lunch","category":"food"}}`
	result, err := svc.HandleWebhook(ctx, []byte(second), "")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeUpdated, result.Documents[models.KindDiary].Status)
	assert.Equal(t, models.OutcomeSkipped, result.Documents[models.KindTranscript].Status)
	assert.Nil(t, result.TranscriptPath)
	assert.Nil(t, result.TranscriptURL)
	assert.False(t, result.HasTranscript)
	assert.Equal(t, "📔 2025-01-15 の日記を保存しました！", result.Message)

	diaryAfter, _ := fake.File("diary/2025/01/15.md")
	assert.True(t, strings.HasPrefix(diaryAfter.Content, diaryBefore.Content+"\n"))
	assert.Contains(t, diaryAfter.Content, "### 🍽️ Lunch")

	transcriptAfter, _ := fake.File("diary/2025/01/15_transcript.md")
	assert.Equal(t, transcriptBefore, transcriptAfter)

	puts := fake.Puts()
	require.Len(t, puts, 5)
	assert.Equal(t, diaryBefore.SHA, puts[3].SHA)
	assert.Equal(t, "📝 2025-01-15 の日記を更新", puts[3].Message)
}

func TestHandleWebhook_StaleDiaryRevisionStillWritesOthers(t *testing.T) {
	svc, fake, deliveries := newTestDiaryService(t)
	fake.Seed("diary/2025/01/15.md", "existing diary")
	fake.BeforePut = func(path string) {
		if path == "diary/2025/01/15.md" {
			fake.Advance(path, "existing diary\nconcurrent entry")
		}
	}

	result, err := svc.HandleWebhook(context.Background(), []byte(standupBody), "")
	require.NoError(t, err)

	diary := result.Documents[models.KindDiary]
	assert.Equal(t, models.OutcomeConflict, diary.Status)
	assert.Contains(t, diary.Error, "revision conflict")
	assert.Equal(t, models.OutcomeCreated, result.Documents[models.KindTranscript].Status)
	assert.Equal(t, models.OutcomeCreated, result.Documents[models.KindRawRecord].Status)

	failed, conflict := result.Failed()
	assert.True(t, failed)
	assert.True(t, conflict)
	assert.Equal(t, "⚠️ 2025-01-15 の日記の一部を保存できませんでした", result.Message)

	stored, _ := fake.File("diary/2025/01/15.md")
	assert.Equal(t, "existing diary\nconcurrent entry", stored.Content)
	_, ok := fake.File("diary/2025/01/15_transcript.md")
	assert.True(t, ok)
	_, ok = fake.File("diary/2025/01/15/raw/abc12345.json")
	assert.True(t, ok)

	require.Len(t, deliveries.deliveries, 1)
	assert.Equal(t, "diary=conflict", deliveries.deliveries[0].Documents[0])
}

func TestHandleWebhook_RawRecordOverwrittenOnRedelivery(t *testing.T) {
	svc, fake, _ := newTestDiaryService(t)
	ctx := context.Background()

	_, err := svc.HandleWebhook(ctx, []byte(standupBody), "")
	require.NoError(t, err)
	result, err := svc.HandleWebhook(ctx, []byte(standupBody), "")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeUpdated, result.Documents[models.KindRawRecord].Status)
	diary, _ := fake.File("diary/2025/01/15.md")
	assert.Equal(t, 2, strings.Count(diary.Content, "### 💼 Standup"))
}

func TestHandleWebhook_EmptyRecordUsesNow(t *testing.T) {
	svc, fake, _ := newTestDiaryService(t)

	result, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "")
	require.NoError(t, err)
	assert.Equal(t, "2030-06-01", result.Date)
	assert.Nil(t, result.RawDataPath)
	assert.Equal(t, models.OutcomeSkipped, result.Documents[models.KindRawRecord].Status)

	diary, ok := fake.File("diary/2030/06/01.md")
	require.True(t, ok)
	assert.Contains(t, diary.Content, "### 💬 会話")
	assert.Contains(t, diary.Content, "**時間**: 12:00")
}

func TestHandleWebhook_MalformedBody(t *testing.T) {
	svc, fake, _ := newTestDiaryService(t)

	_, err := svc.HandleWebhook(context.Background(), []byte(`{"id":`), "")
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Empty(t, fake.Gets())
	assert.Empty(t, fake.Puts())
}

func TestHandleWebhook_Unconfigured(t *testing.T) {
	fake, cfg := newFakeGitHub(t)
	cfg.GitHubToken = ""
	svc := NewDiaryService(cfg, NewGitHubStore(cfg), nil, nil)

	_, err := svc.HandleWebhook(context.Background(), []byte(standupBody), "")
	assert.ErrorIs(t, err, ErrConfigurationMissing)
	assert.Empty(t, fake.Gets())
}

func TestGetDiary(t *testing.T) {
	svc, fake, _ := newTestDiaryService(t)
	ctx := context.Background()

	doc, path, err := svc.GetDiary(ctx, "2025-01-15")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Equal(t, "diary/2025/01/15.md", path)

	fake.Seed("diary/2025/01/15.md", "hello")
	doc, _, err = svc.GetDiary(ctx, "2025-01-15")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "hello", doc.Content)

	_, _, err = svc.GetDiary(ctx, "yesterday")
	assert.ErrorIs(t, err, ErrMalformedDate)
}

func TestProcess_DynamoBackendHasNoBrowseURLs(t *testing.T) {
	store, _ := newTestDynamoStore()
	cfg := config.Default()
	cfg.Backend = config.BackendDynamoDB
	svc := NewDiaryService(cfg, store, nil, nil)

	record, err := models.ParseConversation([]byte(standupBody))
	require.NoError(t, err)
	result, err := svc.Process(context.Background(), record, "")
	require.NoError(t, err)

	assert.Equal(t, "", result.GitHubURL)
	assert.Nil(t, result.TranscriptURL)
	assert.NotNil(t, result.TranscriptPath)
	assert.Equal(t, models.OutcomeCreated, result.Documents[models.KindDiary].Status)
}

func TestHandleWebhook_NumericCreatedAtUsesNow(t *testing.T) {
	svc, fake, _ := newTestDiaryService(t)

	result, err := svc.HandleWebhook(context.Background(), []byte(`{"id":"epoch01","created_at":1736935200}`), "")
	require.NoError(t, err)
	assert.Equal(t, "2030-06-01", result.Date)
	assert.Equal(t, "diary/2030/06/01.md", result.FilePath)
	assert.Equal(t, models.OutcomeCreated, result.Documents[models.KindDiary].Status)

	diary, ok := fake.File("diary/2030/06/01.md")
	require.True(t, ok)
	assert.Contains(t, diary.Content, "**時間**: 12:00")
	_, ok = fake.File("diary/2030/06/01/raw/epoch01.json")
	assert.True(t, ok)
}

func TestHandleWebhook_UnsafeIDSkipsRawRecord(t *testing.T) {
	svc, fake, deliveries := newTestDiaryService(t)

	result, err := svc.HandleWebhook(context.Background(), []byte(`{"id":"../escape","created_at":"2025-01-15T10:00:00Z"}`), "")
	require.NoError(t, err)

	raw := result.Documents[models.KindRawRecord]
	assert.Equal(t, models.OutcomeSkipped, raw.Status)
	assert.Contains(t, raw.Error, "malformed input")
	assert.Empty(t, raw.Path)
	assert.Nil(t, result.RawDataPath)

	failed, conflict := result.Failed()
	assert.False(t, failed)
	assert.False(t, conflict)
	assert.Equal(t, models.OutcomeCreated, result.Documents[models.KindDiary].Status)
	assert.Equal(t, "📔 2025-01-15 の日記を保存しました！", result.Message)

	for _, put := range fake.Puts() {
		assert.NotContains(t, put.Path, "raw")
	}
	require.Len(t, deliveries.deliveries, 1)
	assert.Contains(t, []string(deliveries.deliveries[0].Documents), "raw=skipped")
}
