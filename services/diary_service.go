package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"diary/config"
	"diary/models"
)

// DiaryService は webhook で受け取った会話を日記・STT 生テキスト・生データの3文書に書き込みます。
// 3文書の書き込みは順番に行い、どれかが失敗しても残りは試みます。
type DiaryService struct {
	cfg        config.Config
	store      DocumentStore
	sync       *Synchronizer
	formatter  *Formatter
	deliveries DeliveryRecorder
	location   *time.Location
	now        Clock
}

func NewDiaryService(cfg config.Config, store DocumentStore, deliveries DeliveryRecorder, now Clock) *DiaryService {
	if now == nil {
		now = time.Now
	}
	if deliveries == nil {
		deliveries = NopDeliveryLog{}
	}
	location := cfg.Location()
	return &DiaryService{
		cfg:        cfg,
		store:      store,
		sync:       NewSynchronizer(store),
		formatter:  NewFormatter(LookupLocale(cfg.Locale), location, now),
		deliveries: deliveries,
		location:   location,
		now:        now,
	}
}

func (s *DiaryService) Config() config.Config {
	return s.cfg
}

func (s *DiaryService) Store() DocumentStore {
	return s.store
}

// HandleWebhook はボディを解釈して Process を呼びます。
func (s *DiaryService) HandleWebhook(ctx context.Context, body []byte, uid string) (*models.WebhookResult, error) {
	if !s.cfg.Configured() {
		return nil, ErrConfigurationMissing
	}
	record, err := models.ParseConversation(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return s.Process(ctx, record, uid)
}

func (s *DiaryService) Process(ctx context.Context, record models.ConversationRecord, uid string) (*models.WebhookResult, error) {
	if !s.cfg.Configured() {
		return nil, ErrConfigurationMissing
	}

	locale := s.formatter.Locale()
	date := LocalDate(string(record.CreatedAt), s.location, s.now)
	diaryPath, err := DiaryPath(date)
	if err != nil {
		return nil, err
	}
	log.Printf("%sprocessing conversation %q for %s (uid=%q)", logPrefix(ctx), record.ID, date, uid)

	result := &models.WebhookResult{
		Date:          date,
		FilePath:      diaryPath,
		GitHubURL:     s.store.BrowseURL(diaryPath),
		HasTranscript: record.HasTranscript(),
		Documents:     map[models.DocumentKind]models.DocumentResult{},
	}

	// 1. 日記
	appended, err := s.sync.SyncAppend(ctx, diaryPath,
		s.formatter.DiaryEntry(record),
		s.formatter.DiaryHeader(date),
		locale.DiaryCreateMessage(date),
		locale.DiaryUpdateMessage(date),
	)
	result.Documents[models.KindDiary] = s.documentResult(ctx, models.KindDiary, appended, err)

	// 2. STT 生テキスト
	if record.HasTranscript() {
		transcriptPath, _ := TranscriptPath(date)
		appended, err := s.sync.SyncAppend(ctx, transcriptPath,
			s.formatter.TranscriptEntry(record),
			s.formatter.TranscriptHeader(date),
			locale.TranscriptCreateMessage(date),
			locale.TranscriptUpdateMessage(date),
		)
		result.Documents[models.KindTranscript] = s.documentResult(ctx, models.KindTranscript, appended, err)
		result.TranscriptPath = &transcriptPath
		result.TranscriptURL = optional(s.store.BrowseURL(transcriptPath))
	} else {
		result.Documents[models.KindTranscript] = models.DocumentResult{Status: models.OutcomeSkipped}
	}

	// 3. 生データ JSON
	if record.ID != "" {
		result.Documents[models.KindRawRecord] = s.saveRawRecord(ctx, date, record)
		if raw := result.Documents[models.KindRawRecord]; raw.Path != "" {
			result.RawDataPath = &raw.Path
			result.RawDataURL = optional(raw.URL)
		}
	} else {
		result.Documents[models.KindRawRecord] = models.DocumentResult{Status: models.OutcomeSkipped}
	}

	if failed, _ := result.Failed(); failed {
		result.Message = locale.PartialFailureMessage(date)
	} else {
		result.Message = locale.SavedMessage(date, result.Documents[models.KindTranscript].Succeeded())
	}

	s.recordDelivery(ctx, uid, record, result)
	return result, nil
}

func (s *DiaryService) saveRawRecord(ctx context.Context, date string, record models.ConversationRecord) models.DocumentResult {
	rawPath, err := RawRecordPath(date, record.ID)
	if err != nil {
		// パスに使えない ID はリトライしても直らないので保存しない
		log.Printf("%sskipping raw record: %v", logPrefix(ctx), err)
		return models.DocumentResult{Status: models.OutcomeSkipped, Error: err.Error()}
	}
	raw, err := record.RawJSON()
	if err != nil {
		return models.DocumentResult{Status: models.OutcomeFailed, Path: rawPath, Error: err.Error()}
	}
	message := s.formatter.Locale().RawSavedMessage(date, record.ShortID())
	replaced, err := s.sync.SyncReplace(ctx, rawPath, string(raw), message)
	return s.documentResult(ctx, models.KindRawRecord, replaced, err)
}

func (s *DiaryService) documentResult(ctx context.Context, kind models.DocumentKind, appended models.AppendResult, err error) models.DocumentResult {
	doc := models.DocumentResult{
		Status: appended.Outcome,
		Path:   appended.Path,
		URL:    s.store.BrowseURL(appended.Path),
	}
	if err != nil {
		log.Printf("%sfailed to write %s document %s: %v", logPrefix(ctx), kind, appended.Path, err)
		doc.Error = err.Error()
	}
	return doc
}

func (s *DiaryService) recordDelivery(ctx context.Context, uid string, record models.ConversationRecord, result *models.WebhookResult) {
	statuses := make([]string, 0, len(result.Documents))
	for _, kind := range []models.DocumentKind{models.KindDiary, models.KindTranscript, models.KindRawRecord} {
		statuses = append(statuses, fmt.Sprintf("%s=%s", kind, result.Documents[kind].Status))
	}
	err := s.deliveries.Record(ctx, models.Delivery{
		RequestID:      RequestIDFrom(ctx),
		UID:            uid,
		ConversationID: record.ID,
		Date:           result.Date,
		Documents:      statuses,
		CreatedAt:      s.now(),
	})
	if err != nil {
		log.Printf("%sfailed to record delivery: %v", logPrefix(ctx), err)
	}
}

// GetDiary は指定日の日記を返します。存在しなければ nil です。
func (s *DiaryService) GetDiary(ctx context.Context, date string) (*RemoteDocument, string, error) {
	if !s.cfg.Configured() {
		return nil, "", ErrConfigurationMissing
	}
	path, err := DiaryPath(date)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.store.Fetch(ctx, path)
	if err != nil {
		return nil, path, err
	}
	return doc, path, nil
}

func (s *DiaryService) TestConnection(ctx context.Context) (*RepositoryInfo, error) {
	if !s.cfg.Configured() {
		return nil, ErrConfigurationMissing
	}
	return s.store.RepositoryInfo(ctx)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
