package commons

import (
	"encoding/json"
	"fmt"
	"strings"

	"archivist/internal/fetch"
	"archivist/internal/outcome"
)

type apiResponse struct {
	Error *apiError `json:"error"`
	Query *apiQuery `json:"query"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type apiQuery struct {
	Normalized []apiNormalized     `json:"normalized"`
	Pages      map[string]apiPage `json:"pages"`
}

type apiNormalized struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type apiPage struct {
	Title     string          `json:"title"`
	Missing   json.RawMessage `json:"missing"`
	Invalid   json.RawMessage `json:"invalid"`
	ImageInfo []apiImageInfo  `json:"imageinfo"`
}

type apiImageInfo struct {
	URL            string                  `json:"url"`
	DescriptionURL string                  `json:"descriptionurl"`
	ExtMetadata    map[string]apiMetaValue `json:"extmetadata"`
}

type apiMetaValue struct {
	Value json.RawMessage `json:"value"`
}

// Text returns the metadata value as a string. Non-string values are
// returned in their JSON form.
func (v apiMetaValue) Text() string {
	if len(v.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v.Value))
}

func (p apiPage) exists() bool {
	return p.Missing == nil && p.Invalid == nil
}

// match pairs each requested title with its page by name, following the
// normalization table.
func (r apiResponse) match(titles []string) Resolution {
	normalized := make(map[string]string, len(r.Query.Normalized))
	for _, n := range r.Query.Normalized {
		normalized[n.From] = n.To
	}
	pages := make(map[string]apiPage, len(r.Query.Pages))
	for _, page := range r.Query.Pages {
		pages[page.Title] = page
	}

	var res Resolution
	for _, requested := range titles {
		title := requested
		if to, ok := normalized[requested]; ok {
			title = to
		}
		page, ok := pages[title]
		if !ok || !page.exists() {
			res.Failures = append(res.Failures, outcome.ResolutionFailure{
				Identifier: requested,
				Reason:     outcome.ReasonNotFound,
				Err:        fmt.Errorf("%w: %s", ErrNotFound, title),
			})
			continue
		}
		if len(page.ImageInfo) == 0 || strings.TrimSpace(page.ImageInfo[0].URL) == "" {
			res.Failures = append(res.Failures, outcome.ResolutionFailure{
				Identifier: requested,
				Reason:     outcome.ReasonMalformed,
				Err:        fmt.Errorf("%w: %s has no file url", ErrMalformed, title),
			})
			continue
		}
		info := page.ImageInfo[0]
		res.Descriptors = append(res.Descriptors, fetch.Descriptor{
			Identifier: requested,
			Filename:   FilenameFromTitle(page.Title),
			URL:        info.URL,
			Credit:     formatCredit(info),
		})
	}
	return res
}

// FilenameFromTitle strips the namespace prefix from a page title.
func FilenameFromTitle(title string) string {
	if _, name, ok := strings.Cut(title, ":"); ok {
		return name
	}
	return title
}
