package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"diary/config"
)

// GitHubStore は GitHub Contents API を文書ストアとして使います。
type GitHubStore struct {
	client *resty.Client
	repo   string
	branch string
	webURL string
}

type githubContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type githubPutRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type githubError struct {
	Message string `json:"message"`
}

func NewGitHubStore(cfg config.Config) *GitHubStore {
	client := resty.New().
		SetBaseURL(cfg.GitHubAPIURL).
		SetTimeout(cfg.StoreTimeout).
		SetAuthToken(cfg.GitHubToken).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28")

	return &GitHubStore{
		client: client,
		repo:   cfg.GitHubRepo,
		branch: cfg.GitHubBranch,
		webURL: cfg.GitHubWebURL,
	}
}

func (s *GitHubStore) Name() string {
	return "github"
}

func (s *GitHubStore) contentsURL(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "/repos/" + s.repo + "/contents/" + strings.Join(segments, "/")
}

// Fetch は 404 以外の失敗応答も「存在しない」として扱います。
// 一時的な 5xx の直後に書き込むと、新規作成として扱われる点に注意してください。
func (s *GitHubStore) Fetch(ctx context.Context, path string) (*RemoteDocument, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("ref", s.branch).
		Get(s.contentsURL(path))
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrRemoteUnavailable, path, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		log.Printf("%sGitHub returned status %d while reading %s, treating as absent", logPrefix(ctx), resp.StatusCode(), path)
		return nil, nil
	}

	var content githubContent
	if err := json.Unmarshal(resp.Body(), &content); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrRemoteUnavailable, path, err)
	}
	if content.Encoding != "base64" {
		// 1MB を超えるファイルは contents API が本文を返さないので blob から取り直す
		blob, err := s.fetchBlob(ctx, path, content.SHA)
		if err != nil {
			return nil, err
		}
		content.Content, content.Encoding = blob.Content, blob.Encoding
	}
	decoded, err := decodeGitHubContent(content)
	if err != nil {
		return nil, fmt.Errorf("%w: decode content of %s: %v", ErrRemoteUnavailable, path, err)
	}
	return &RemoteDocument{Content: string(decoded), Revision: content.SHA}, nil
}

func (s *GitHubStore) fetchBlob(ctx context.Context, path, sha string) (githubContent, error) {
	if sha == "" {
		return githubContent{}, fmt.Errorf("%w: %s has no inline content and no sha", ErrRemoteUnavailable, path)
	}
	resp, err := s.client.R().
		SetContext(ctx).
		Get("/repos/" + s.repo + "/git/blobs/" + url.PathEscape(sha))
	if err != nil {
		return githubContent{}, fmt.Errorf("%w: get blob of %s: %v", ErrRemoteUnavailable, path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return githubContent{}, fmt.Errorf("get blob of %s: %w", path, &StatusError{StatusCode: resp.StatusCode(), Message: githubErrorMessage(resp.Body()), Body: resp.Body()})
	}

	var blob githubContent
	if err := json.Unmarshal(resp.Body(), &blob); err != nil {
		return githubContent{}, fmt.Errorf("%w: decode blob of %s: %v", ErrRemoteUnavailable, path, err)
	}
	return blob, nil
}

func decodeGitHubContent(content githubContent) ([]byte, error) {
	switch content.Encoding {
	case "base64":
		return base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	case "utf-8":
		return []byte(content.Content), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", content.Encoding)
	}
}

func (s *GitHubStore) Write(ctx context.Context, path, content, message, revision string) error {
	body := githubPutRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		Branch:  s.branch,
		SHA:     revision,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Put(s.contentsURL(path))
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrRemoteUnavailable, path, err)
	}

	status := resp.StatusCode()
	if status == http.StatusOK || status == http.StatusCreated {
		return nil
	}

	message = githubErrorMessage(resp.Body())
	switch {
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s: %s", ErrRevisionConflict, path, message)
	case status == http.StatusUnprocessableEntity && revision == "":
		return fmt.Errorf("%w: %s: %s", ErrAlreadyExists, path, message)
	case status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s: %s", ErrRevisionConflict, path, message)
	}
	return fmt.Errorf("put %s: %w", path, &StatusError{StatusCode: status, Message: message, Body: resp.Body()})
}

func (s *GitHubStore) RepositoryInfo(ctx context.Context) (*RepositoryInfo, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get("/repos/" + s.repo)
	if err != nil {
		return nil, fmt.Errorf("%w: get repository: %v", ErrRemoteUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode(), Message: githubErrorMessage(resp.Body()), Body: resp.Body()}
	}

	var info RepositoryInfo
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return nil, fmt.Errorf("%w: decode repository: %v", ErrRemoteUnavailable, err)
	}
	return &info, nil
}

func (s *GitHubStore) BrowseURL(path string) string {
	if s.repo == "" {
		return ""
	}
	if path == "" {
		return fmt.Sprintf("%s/%s", s.webURL, s.repo)
	}
	return fmt.Sprintf("%s/%s/blob/%s/%s", s.webURL, s.repo, s.branch, path)
}

func githubErrorMessage(body []byte) string {
	var parsed githubError
	if json.Unmarshal(body, &parsed) == nil && strings.TrimSpace(parsed.Message) != "" {
		return parsed.Message
	}
	return strings.TrimSpace(string(body))
}
