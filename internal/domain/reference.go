package domain

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

const dataURIPrefix = "data:"

// sourceMappingURL matches both the current "//#" and the legacy "//@"
// directive forms. The value runs until whitespace, a quote or end of input.
var sourceMappingURL = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`//[#@][ \t]*sourceMappingURL=([^\s'"]*)`, regexp2.None)
	re.MatchTimeout = 5 * time.Second

	return re
}()

// sourceMapHeaders are checked in order when a script has no inline directive.
var sourceMapHeaders = []string{"SourceMap", "X-SourceMap"}

// ExtractReference finds the last sourceMappingURL directive in a script body
// and classifies it. It never fails: anything unusable is a MissingReference.
func ExtractReference(body string) m.Reference {
	value, found := lastDirectiveValue(body)
	if !found {
		return m.MissingReference{}
	}

	return classifyReference(value)
}

// ReferenceFromHeaders reads the SourceMap (or legacy X-SourceMap) response
// header.
func ReferenceFromHeaders(header http.Header) m.Reference {
	for _, name := range sourceMapHeaders {
		if value := strings.TrimSpace(header.Get(name)); value != "" {
			return classifyReference(value)
		}
	}

	return m.MissingReference{}
}

func lastDirectiveValue(body string) (string, bool) {
	var (
		value string
		found bool
	)

	match, err := sourceMappingURL.FindStringMatch(body)
	for err == nil && match != nil {
		if groups := match.Groups(); len(groups) > 1 {
			value = groups[1].String()
			found = true
		}

		match, err = sourceMappingURL.FindNextMatch(match)
	}

	if err != nil {
		slog.Warn("sourceMappingURL scan aborted", "error", err)
	}

	return value, found
}

func classifyReference(value string) m.Reference {
	if value == "" {
		return m.MissingReference{}
	}

	if len(value) < len(dataURIPrefix) || !strings.EqualFold(value[:len(dataURIPrefix)], dataURIPrefix) {
		return m.URLReference{URL: value}
	}

	meta, payload, ok := strings.Cut(value[len(dataURIPrefix):], ",")
	if !ok {
		return m.MissingReference{}
	}

	params := strings.Split(meta, ";")
	if !strings.EqualFold(strings.TrimSpace(params[0]), "application/json") {
		slog.Debug("ignoring non-json data uri", "media_type", params[0])
		return m.MissingReference{}
	}

	isBase64 := false

	for _, param := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(param), "base64") {
			isBase64 = true
		}
	}

	return m.DataReference{Payload: payload, Base64: isBase64}
}
