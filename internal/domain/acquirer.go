package domain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"sourcerer.dev/pkg/sourcerer/internal/adapter"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

// DefaultSourcemapCacheSize bounds how many remote sourcemaps are kept in
// memory across jobs.
const DefaultSourcemapCacheSize = 64

// Acquirer turns a Reference into the raw bytes of a sourcemap document.
type Acquirer interface {
	Acquire(ctx context.Context, ref m.Reference, originURL string) ([]byte, error)
}

type acquirer struct {
	fetcher adapter.Fetcher
	cache   *lru.Cache[string, []byte]
}

// NewAcquirer builds an Acquirer that fetches remote sourcemaps through
// fetcher. A cacheSize of zero or less disables caching.
func NewAcquirer(fetcher adapter.Fetcher, cacheSize int) Acquirer {
	a := &acquirer{fetcher: fetcher}

	if cacheSize > 0 {
		cache, err := lru.New[string, []byte](cacheSize)
		if err != nil {
			slog.Warn("Sourcemap cache disabled", "size", cacheSize, "error", err)
		} else {
			a.cache = cache
		}
	}

	return a
}

func (a *acquirer) Acquire(ctx context.Context, ref m.Reference, originURL string) ([]byte, error) {
	switch r := ref.(type) {
	case m.URLReference:
		return a.acquireRemote(ctx, r, originURL)
	case m.DataReference:
		return decodeDataPayload(r)
	case m.MissingReference:
		return nil, ErrReferenceMissing
	default:
		return nil, fmt.Errorf("unsupported reference type %T", ref)
	}
}

func (a *acquirer) acquireRemote(ctx context.Context, ref m.URLReference, originURL string) ([]byte, error) {
	target, err := resolveReferenceURL(originURL, ref.URL)
	if err != nil {
		return nil, &FetchFailedError{URL: ref.URL, Err: err}
	}

	if a.cache != nil {
		if cached, ok := a.cache.Get(target); ok {
			slog.Debug("Sourcemap cache hit", "url", target)
			return cached, nil
		}
	}

	resp, err := a.fetcher.Fetch(ctx, target)
	if err != nil {
		slog.Error("Failed to fetch sourcemap", "url", target, "error", err)
		return nil, &FetchFailedError{URL: target, Err: err}
	}

	if !resp.OK() {
		return nil, &FetchFailedError{URL: target, Status: resp.StatusCode}
	}

	if a.cache != nil {
		a.cache.Add(target, resp.Body)
	}

	return resp.Body, nil
}

// resolveReferenceURL resolves ref against the script URL per RFC 3986.
func resolveReferenceURL(originURL, ref string) (string, error) {
	base, err := url.Parse(originURL)
	if err != nil {
		return "", fmt.Errorf("parse script url: %w", err)
	}

	rel, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse sourcemap url: %w", err)
	}

	return base.ResolveReference(rel).String(), nil
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

func decodeDataPayload(ref m.DataReference) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	if ref.Base64 {
		data, err = decodeBase64(ref.Payload)
	} else {
		var text string

		text, err = url.PathUnescape(ref.Payload)
		data = []byte(text)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: payload is not valid utf-8", ErrDecodeFailed)
	}

	return data, nil
}

func decodeBase64(payload string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return r
	}, payload)

	// Payloads copied out of URLs sometimes arrive percent-encoded.
	if strings.Contains(compact, "%") {
		if unescaped, err := url.PathUnescape(compact); err == nil {
			compact = unescaped
		}
	}

	var errs []error

	for _, enc := range base64Encodings {
		data, err := enc.DecodeString(compact)
		if err == nil {
			return data, nil
		}

		errs = append(errs, err)
	}

	return nil, errors.Join(errs...)
}
