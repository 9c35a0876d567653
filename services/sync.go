package services

import (
	"context"
	"fmt"
	"log"

	"diary/models"
)

// Synchronizer は「取得して、存在すれば追記、無ければヘッダ付きで作成」を行います。
// リビジョンは書き込みの直前に毎回取得し、別の書き込みに使い回しません。
type Synchronizer struct {
	store DocumentStore
}

func NewSynchronizer(store DocumentStore) *Synchronizer {
	return &Synchronizer{store: store}
}

// SyncAppend は既存の内容に "\n" + newContent を追記し、文書が無ければ header + newContent で作成します。
// 競合は ErrRevisionConflict としてそのまま返し、再試行はしません。
func (s *Synchronizer) SyncAppend(ctx context.Context, path, newContent, header, createMessage, updateMessage string) (models.AppendResult, error) {
	doc, err := s.store.Fetch(ctx, path)
	if err != nil {
		return models.AppendResult{Outcome: models.OutcomeFailed, Path: path}, fmt.Errorf("fetch %s: %w", path, err)
	}

	if doc != nil {
		content := doc.Content + "\n" + newContent
		if err := s.store.Write(ctx, path, content, updateMessage, doc.Revision); err != nil {
			return failedResult(path, err), err
		}
		log.Printf("%sappended to %s", logPrefix(ctx), path)
		return models.AppendResult{Outcome: models.OutcomeUpdated, Path: path}, nil
	}

	if err := s.store.Write(ctx, path, header+newContent, createMessage, ""); err != nil {
		return failedResult(path, err), err
	}
	log.Printf("%screated %s", logPrefix(ctx), path)
	return models.AppendResult{Outcome: models.OutcomeCreated, Path: path}, nil
}

// SyncReplace は内容を丸ごと置き換えます。既存の文書があればそのリビジョンで上書きします。
func (s *Synchronizer) SyncReplace(ctx context.Context, path, content, message string) (models.AppendResult, error) {
	doc, err := s.store.Fetch(ctx, path)
	if err != nil {
		return models.AppendResult{Outcome: models.OutcomeFailed, Path: path}, fmt.Errorf("fetch %s: %w", path, err)
	}

	revision := ""
	outcome := models.OutcomeCreated
	if doc != nil {
		revision = doc.Revision
		outcome = models.OutcomeUpdated
	}
	if err := s.store.Write(ctx, path, content, message, revision); err != nil {
		return failedResult(path, err), err
	}
	log.Printf("%s%s %s", logPrefix(ctx), outcome, path)
	return models.AppendResult{Outcome: outcome, Path: path}, nil
}

func failedResult(path string, err error) models.AppendResult {
	if isConflict(err) {
		return models.AppendResult{Outcome: models.OutcomeConflict, Path: path}
	}
	return models.AppendResult{Outcome: models.OutcomeFailed, Path: path}
}
