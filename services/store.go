package services

import (
	"context"
	"fmt"
)

// RemoteDocument は取得時点の内容とリビジョンです。書き込みのたびに取り直し、使い回しません。
type RemoteDocument struct {
	Content  string
	Revision string
}

type RepositoryInfo struct {
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	URL      string `json:"html_url"`
}

// DocumentStore はリビジョン付きで文書を読み書きするリモートストアです。
//
// Fetch は文書が無ければ nil, nil を返します。
// Write は revision が空なら新規作成として扱い、既に存在すれば ErrAlreadyExists を返します。
// revision が現在のものと一致しなければ ErrRevisionConflict を返します。
type DocumentStore interface {
	Name() string
	Fetch(ctx context.Context, path string) (*RemoteDocument, error)
	Write(ctx context.Context, path, content, message, revision string) error
	RepositoryInfo(ctx context.Context) (*RepositoryInfo, error)
	BrowseURL(path string) string
}

// StatusError はストアが返した 2xx 以外の応答です。ErrRemoteUnavailable として扱われます。
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store returned status=%d message=%s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrRemoteUnavailable
}
