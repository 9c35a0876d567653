package models

type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeFailed   Outcome = "failed"
	OutcomeConflict Outcome = "conflict"
	OutcomeSkipped  Outcome = "skipped"
)

type DocumentKind string

const (
	KindDiary      DocumentKind = "diary"
	KindTranscript DocumentKind = "transcript"
	KindRawRecord  DocumentKind = "raw"
)

// AppendResult は1文書への書き込み結果です。永続化はしません。
type AppendResult struct {
	Outcome Outcome `json:"status"`
	Path    string  `json:"path"`
}

type DocumentResult struct {
	Status Outcome `json:"status"`
	Path   string  `json:"path,omitempty"`
	URL    string  `json:"url,omitempty"`
	Error  string  `json:"error,omitempty"`
}

func (d DocumentResult) Succeeded() bool {
	return d.Status == OutcomeCreated || d.Status == OutcomeUpdated
}

// WebhookResult は webhook のレスポンスです。
type WebhookResult struct {
	Message        string                          `json:"message"`
	Date           string                          `json:"date"`
	FilePath       string                          `json:"file_path"`
	GitHubURL      string                          `json:"github_url,omitempty"`
	TranscriptPath *string                         `json:"transcript_path"`
	TranscriptURL  *string                         `json:"transcript_url"`
	RawDataPath    *string                         `json:"raw_data_path"`
	RawDataURL     *string                         `json:"raw_data_url"`
	HasTranscript  bool                            `json:"has_transcript"`
	Documents      map[DocumentKind]DocumentResult `json:"documents"`
}

// Failed は失敗した文書があるかどうかと、その中に競合が含まれるかを返します。
func (w WebhookResult) Failed() (failed bool, conflict bool) {
	for _, doc := range w.Documents {
		switch doc.Status {
		case OutcomeConflict:
			failed, conflict = true, true
		case OutcomeFailed:
			failed = true
		}
	}
	return failed, conflict
}
