// Package githubtest provides an in-memory GitHub Contents API for tests.
package githubtest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

type File struct {
	Content string
	SHA     string
}

type Put struct {
	Path    string
	Message string
	Content string
	SHA     string
	Status  int
}

// Server は GitHub の contents エンドポイントを模倣します。
// 書き込みは sha の一致を要求し、不一致なら 409、sha 無しで既存ファイルなら 422 を返します。
type Server struct {
	*httptest.Server

	Token  string
	Repo   string
	Branch string

	mu       sync.Mutex
	files    map[string]File
	blobs    map[string]string
	seq      int
	gets     []string
	puts     []Put
	getFault map[string]int

	// LargeFileBytes を超えるファイルは実際の API と同様に
	// contents では encoding "none" の空本文を返し、本文は blob からのみ取れます。
	LargeFileBytes int

	// BlobStatus が 0 以外なら blob の取得はそのステータスで失敗します。
	BlobStatus int

	// BeforePut は PUT の処理直前に呼ばれます。並行する書き込みの再現に使います。
	BeforePut func(path string)
}

func NewServer(token, repo, branch string) *Server {
	s := &Server{
		Token:    token,
		Repo:     repo,
		Branch:   branch,
		files:    map[string]File{},
		blobs:    map[string]string{},
		getFault: map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Seed はファイルを直接配置し、その sha を返します。
func (s *Server) Seed(path, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(path, content)
}

// Advance は外部の書き込みを模して sha を進めます。
func (s *Server) Advance(path, content string) string {
	return s.Seed(path, content)
}

func (s *Server) File(path string) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	return f, ok
}

func (s *Server) Gets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.gets...)
}

func (s *Server) Puts() []Put {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Put(nil), s.puts...)
}

// FailGet は path の読み込みに status を返させます。
func (s *Server) FailGet(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getFault[path] = status
}

func (s *Server) storeLocked(path, content string) string {
	s.seq++
	sha := fmt.Sprintf("sha-%d", s.seq)
	s.files[path] = File{Content: content, SHA: sha}
	s.blobs[sha] = content
	return sha
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Bad credentials"})
		return
	}

	repoPrefix := "/repos/" + s.Repo
	switch {
	case r.URL.Path == repoPrefix && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"full_name": s.Repo,
			"private":   true,
			"html_url":  "https://github.com/" + s.Repo,
		})
	case strings.HasPrefix(r.URL.Path, repoPrefix+"/git/blobs/") && r.Method == http.MethodGet:
		s.handleBlob(w, strings.TrimPrefix(r.URL.Path, repoPrefix+"/git/blobs/"))
	case strings.HasPrefix(r.URL.Path, repoPrefix+"/contents/"):
		path, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), repoPrefix+"/contents/"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		switch r.Method {
		case http.MethodGet:
			s.handleGet(w, r, path)
		case http.MethodPut:
			s.handlePut(w, r, path)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
		}
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, path string) {
	s.mu.Lock()
	s.gets = append(s.gets, path)
	fault := s.getFault[path]
	f, ok := s.files[path]
	s.mu.Unlock()

	if fault != 0 {
		writeJSON(w, fault, map[string]any{"message": http.StatusText(fault)})
		return
	}
	if r.URL.Query().Get("ref") != s.Branch || !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}
	if s.LargeFileBytes > 0 && len(f.Content) > s.LargeFileBytes {
		writeJSON(w, http.StatusOK, map[string]any{
			"type":     "file",
			"encoding": "none",
			"path":     path,
			"sha":      f.SHA,
			"content":  "",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":     "file",
		"encoding": "base64",
		"path":     path,
		"sha":      f.SHA,
		"content":  wrapBase64(f.Content),
	})
}

func (s *Server) handleBlob(w http.ResponseWriter, sha string) {
	s.mu.Lock()
	content, ok := s.blobs[sha]
	status := s.BlobStatus
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]any{"message": http.StatusText(status)})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sha":      sha,
		"size":     len(content),
		"encoding": "base64",
		"content":  wrapBase64(content),
	})
}

// wrapBase64 は実際の API と同じく 60 文字ごとに改行を入れます。
func wrapBase64(content string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	var wrapped strings.Builder
	for i := 0; i < len(encoded); i += 60 {
		end := i + 60
		if end > len(encoded) {
			end = len(encoded)
		}
		wrapped.WriteString(encoded[i:end])
		wrapped.WriteString("\n")
	}
	return wrapped.String()
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, path string) {
	var req struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Problems parsing JSON"})
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "content is not valid Base64"})
		return
	}

	if s.BeforePut != nil {
		s.BeforePut(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	put := Put{Path: path, Message: req.Message, Content: string(decoded), SHA: req.SHA}
	current, exists := s.files[path]
	switch {
	case req.Branch != s.Branch:
		put.Status = http.StatusNotFound
	case exists && req.SHA == "":
		put.Status = http.StatusUnprocessableEntity
	case !exists && req.SHA != "":
		put.Status = http.StatusConflict
	case exists && req.SHA != current.SHA:
		put.Status = http.StatusConflict
	case exists:
		put.Status = http.StatusOK
	default:
		put.Status = http.StatusCreated
	}
	s.puts = append(s.puts, put)

	switch put.Status {
	case http.StatusOK, http.StatusCreated:
		sha := s.storeLocked(path, string(decoded))
		writeJSON(w, put.Status, map[string]any{
			"content": map[string]any{"path": path, "sha": sha},
			"commit":  map[string]any{"message": req.Message},
		})
	case http.StatusUnprocessableEntity:
		writeJSON(w, put.Status, map[string]any{"message": "Invalid request.\n\n\"sha\" wasn't supplied."})
	case http.StatusConflict:
		writeJSON(w, put.Status, map[string]any{"message": fmt.Sprintf("%s does not match %s", path, req.SHA)})
	default:
		writeJSON(w, put.Status, map[string]any{"message": "Branch not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
