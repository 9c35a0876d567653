package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"diary/config"
	"diary/services"
)

const version = "1.0.0"

type DiaryController struct {
	service *services.DiaryService
}

func NewDiaryController(service *services.DiaryService) *DiaryController {
	return &DiaryController{service: service}
}

// errorStatus はサービスのエラーを HTTP ステータスに変換します。
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrConfigurationMissing):
		return http.StatusInternalServerError
	case errors.Is(err, services.ErrMalformedInput), errors.Is(err, services.ErrMalformedDate):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrRevisionConflict), errors.Is(err, services.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	if errors.Is(err, services.ErrConfigurationMissing) {
		return "Store is not configured. Set GITHUB_TOKEN and GITHUB_REPO."
	}
	return err.Error()
}

// HandleWebhook は会話データを受け取り、日記・STT 生テキスト・生データを保存します。
func (dc *DiaryController) HandleWebhook(c *gin.Context) {
	uid := c.Query("uid")
	limit := dc.service.Config().MaxBodyBytes
	if limit <= 0 {
		limit = config.DefaultMaxBodyBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	result, err := dc.service.HandleWebhook(c.Request.Context(), body, uid)
	if err != nil {
		log.Printf("Error handling webhook: %v", err)
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(err)})
		return
	}

	status := http.StatusOK
	if failed, conflict := result.Failed(); conflict {
		status = http.StatusConflict
	} else if failed {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

func (dc *DiaryController) GetDiary(c *gin.Context) {
	date := c.Param("date")

	doc, path, err := dc.service.GetDiary(c.Request.Context(), date)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(err)})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("No diary for %s yet", date)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":       date,
		"content":    doc.Content,
		"github_url": dc.service.Store().BrowseURL(path),
	})
}

func (dc *DiaryController) Health(c *gin.Context) {
	cfg := dc.service.Config()
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"github_configured": cfg.Configured(),
		"repository":        cfg.GitHubRepo,
		"backend":           dc.service.Store().Name(),
		"version":           version,
	})
}

// TestConnection はストアに接続できるかを確認します。書き込みはしません。
func (dc *DiaryController) TestConnection(c *gin.Context) {
	cfg := dc.service.Config()
	if !cfg.Configured() {
		c.JSON(http.StatusOK, gin.H{
			"status":       "error",
			"message":      "Store is not configured",
			"github_token": setOrMissing(cfg.GitHubToken != ""),
			"github_repo":  valueOrMissing(cfg.GitHubRepo),
		})
		return
	}

	info, err := dc.service.TestConnection(c.Request.Context())
	if err != nil {
		response := gin.H{
			"status":  "error",
			"message": fmt.Sprintf("❌ Could not connect to the store: %v", err),
		}
		var statusErr *services.StatusError
		if errors.As(err, &statusErr) {
			response["message"] = fmt.Sprintf("❌ Could not connect to the store: %d", statusErr.StatusCode)
			var detail any
			if json.Unmarshal(statusErr.Body, &detail) == nil {
				response["detail"] = detail
			} else {
				response["detail"] = statusErr.Message
			}
		}
		c.JSON(http.StatusOK, response)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"message":    "✅ Connected to the store",
		"repository": info.FullName,
		"private":    info.Private,
		"url":        info.URL,
	})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>📔 Omi Diary</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #24292e; color: #fff; text-align: center; padding: 40px; }
        .status { padding: 15px 30px; background: rgba(255,255,255,0.1); border-radius: 10px; margin: 20px auto; max-width: 400px; }
        .btn { display: inline-block; margin: 10px; padding: 12px 24px; background: #238636; color: #fff; text-decoration: none; border-radius: 6px; font-weight: bold; }
    </style>
</head>
<body>
    <h1>📔 Omi Diary</h1>
    <div class="status">{{if .Configured}}✅ Connected to {{.Backend}}{{else}}❌ Store is not configured{{end}}</div>
    <p>Conversations are saved to the repository as Markdown.</p>
    {{if .RepoURL}}<a href="{{.RepoURL}}" class="btn" target="_blank">📁 Repository</a>{{end}}
    <a href="/test" class="btn">🔍 Connection test</a>
</body>
</html>
`))

func (dc *DiaryController) Index(c *gin.Context) {
	cfg := dc.service.Config()
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := indexTemplate.Execute(c.Writer, map[string]any{
		"Configured": cfg.Configured(),
		"Backend":    dc.service.Store().Name(),
		"RepoURL":    dc.service.Store().BrowseURL(""),
	})
	if err != nil {
		log.Printf("Error rendering index: %v", err)
	}
}

func setOrMissing(ok bool) string {
	if ok {
		return "set"
	}
	return "missing"
}

func valueOrMissing(v string) string {
	if v == "" {
		return "missing"
	}
	return v
}
