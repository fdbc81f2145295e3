package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// CommonsFile describes a file served by the fake Commons API.
type CommonsFile struct {
	Title      string
	Content    string
	Artist     string
	License    string
	LicenseURL string
	// DownloadStatus, when non-zero, is returned instead of the content.
	DownloadStatus int
	// NoURL omits the file URL from the query response.
	NoURL bool
}

// CommonsServer is an httptest server emulating the MediaWiki query API and
// the upload host.
type CommonsServer struct {
	*httptest.Server

	mu         sync.Mutex
	files      map[string]CommonsFile
	normalized map[string]string
	queryErr   int
	userAgent  string

	Queries   atomic.Int32
	Downloads atomic.Int32
}

// NewCommonsServer starts a fake Commons API serving files.
func NewCommonsServer(t testing.TB, files ...CommonsFile) *CommonsServer {
	t.Helper()

	s := &CommonsServer{
		files:      make(map[string]CommonsFile, len(files)),
		normalized: make(map[string]string),
	}
	for _, f := range files {
		s.files[f.Title] = f
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", s.handleQuery)
	mux.HandleFunc("/files/", s.handleDownload)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// APIURL returns the query endpoint.
func (s *CommonsServer) APIURL() string {
	return s.URL + "/w/api.php"
}

// Normalize makes the API report from as normalized to to.
func (s *CommonsServer) Normalize(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.normalized[from] = to
}

// FailQueries makes every query respond with status.
func (s *CommonsServer) FailQueries(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = status
}

// LastUserAgent returns the User-Agent of the most recent query.
func (s *CommonsServer) LastUserAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgent
}

func (s *CommonsServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.Queries.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userAgent = r.Header.Get("User-Agent")
	if s.queryErr != 0 {
		http.Error(w, "query failure", s.queryErr)
		return
	}

	q := r.URL.Query()
	if q.Get("action") != "query" || q.Get("prop") != "imageinfo" || q.Get("format") != "json" {
		http.Error(w, "unexpected parameters", http.StatusBadRequest)
		return
	}

	var normalized []map[string]string
	pages := map[string]any{}
	missing := 0
	for i, requested := range strings.Split(q.Get("titles"), "|") {
		title := requested
		if to, ok := s.normalized[requested]; ok {
			normalized = append(normalized, map[string]string{"from": requested, "to": to})
			title = to
		}
		file, ok := s.files[title]
		if !ok {
			missing--
			pages[fmt.Sprint(missing)] = map[string]any{"ns": 6, "title": title, "missing": ""}
			continue
		}
		info := map[string]any{
			"descriptionurl": s.URL + "/wiki/" + url.PathEscape(title),
			"extmetadata": map[string]any{
				"Artist":           map[string]string{"value": file.Artist, "source": "commons-desc-page"},
				"LicenseShortName": map[string]string{"value": file.License, "source": "commons-desc-page"},
				"LicenseUrl":       map[string]string{"value": file.LicenseURL, "source": "commons-desc-page"},
			},
		}
		if !file.NoURL {
			info["url"] = s.URL + "/files/" + url.PathEscape(title)
		}
		pages[fmt.Sprint(1000+i)] = map[string]any{
			"pageid":    1000 + i,
			"ns":        6,
			"title":     title,
			"imageinfo": []any{info},
		}
	}

	query := map[string]any{"pages": pages}
	if len(normalized) > 0 {
		query["normalized"] = normalized
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"batchcomplete": "", "query": query})
}

func (s *CommonsServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.Downloads.Add(1)
	title, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/files/"))
	if err != nil {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	file, ok := s.files[title]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if file.DownloadStatus != 0 {
		http.Error(w, "download failure", file.DownloadStatus)
		return
	}
	_, _ = w.Write([]byte(file.Content))
}
