package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

// maxSectionDepth bounds nested index maps.
const maxSectionDepth = 8

var (
	utf8BOM    = []byte("\xef\xbb\xbf")
	xssiPrefix = []byte(")]}'")
)

// sourcemapDocument is the subset of the Source Map v3 format needed to
// recover original sources. Pointer elements distinguish null from "".
type sourcemapDocument struct {
	Version        int                `json:"version"`
	SourceRoot     string             `json:"sourceRoot"`
	Sources        []*string          `json:"sources"`
	SourcesContent []*string          `json:"sourcesContent"`
	Sections       []sourcemapSection `json:"sections"`
}

type sourcemapSection struct {
	URL string             `json:"url"`
	Map *sourcemapDocument `json:"map"`
}

// DecodeSourcemap parses a sourcemap document and pairs every source with its
// embedded content. Sources without content are skipped.
func DecodeSourcemap(raw []byte) ([]m.SourceEntry, error) {
	data := bytes.TrimPrefix(raw, utf8BOM)
	data = bytes.TrimLeft(data, " \t\r\n")

	if bytes.HasPrefix(data, xssiPrefix) {
		if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
			data = data[idx+1:]
		} else {
			data = data[len(xssiPrefix):]
		}
	}

	var doc sourcemapDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSourcemap, err)
	}

	return collectEntries(&doc, 0)
}

func collectEntries(doc *sourcemapDocument, depth int) ([]m.SourceEntry, error) {
	if doc.Sections != nil {
		return collectSections(doc.Sections, depth)
	}

	if doc.Sources == nil {
		return nil, fmt.Errorf("%w: missing sources", ErrMalformedSourcemap)
	}

	if doc.SourcesContent == nil {
		return nil, fmt.Errorf("%w: missing sourcesContent", ErrMalformedSourcemap)
	}

	entries := make([]m.SourceEntry, 0, len(doc.Sources))

	for i, source := range doc.Sources {
		if source == nil || i >= len(doc.SourcesContent) {
			continue
		}

		content := doc.SourcesContent[i]
		if content == nil || *content == "" {
			continue
		}

		entries = append(entries, m.SourceEntry{
			DeclaredPath: joinSourceRoot(doc.SourceRoot, *source),
			Content:      *content,
		})
	}

	return entries, nil
}

func collectSections(sections []sourcemapSection, depth int) ([]m.SourceEntry, error) {
	if depth >= maxSectionDepth {
		return nil, fmt.Errorf("%w: index map nested deeper than %d", ErrMalformedSourcemap, maxSectionDepth)
	}

	var entries []m.SourceEntry

	for i, section := range sections {
		if section.Map == nil {
			slog.Debug("Skipping index map section without embedded map", "section", i, "url", section.URL)
			continue
		}

		sectionEntries, err := collectEntries(section.Map, depth+1)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}

		entries = append(entries, sectionEntries...)
	}

	return entries, nil
}

// joinSourceRoot prefixes relative sources with sourceRoot. Absolute URLs
// are returned unchanged.
func joinSourceRoot(root, source string) string {
	if root == "" {
		return source
	}

	if u, err := url.Parse(source); err == nil && u.Scheme != "" {
		return source
	}

	if !strings.HasSuffix(root, "/") {
		root += "/"
	}

	return root + source
}
