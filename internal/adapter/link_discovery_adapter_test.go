package adapter

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (f *mockFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	args := f.Called(ctx, url)

	resp, _ := args.Get(0).(*Response)

	return resp, args.Error(1)
}

const testPage = `<!doctype html>
<html><head>
<script src="/static/js/main.123.js"></script>
<script src="chunk.js"></script>
<script>inline()</script>
<script src="https://cdn.test/lib.js"></script>
<script src="/static/js/main.123.js"></script>
</head><body></body></html>`

func TestPageLinkDiscoverer_DiscoverLinks(t *testing.T) {
	t.Run("resolves relative sources", func(t *testing.T) {
		fetcher := &mockFetcher{}
		fetcher.On("Fetch", mock.Anything, "https://x.test/app/index.html").
			Return(&Response{StatusCode: 200, Body: []byte(testPage)}, nil)

		links, err := NewPageLinkDiscoverer(fetcher).DiscoverLinks(context.Background(), "https://x.test/app/index.html")
		require.NoError(t, err)

		assert.Equal(t, []string{
			"https://x.test/static/js/main.123.js",
			"https://x.test/app/chunk.js",
			"https://cdn.test/lib.js",
		}, links)
		fetcher.AssertExpectations(t)
	})

	t.Run("rejects urls without scheme or host", func(t *testing.T) {
		fetcher := &mockFetcher{}

		for _, page := range []string{"x.test/index.html", "/index.html", "https://"} {
			_, err := NewPageLinkDiscoverer(fetcher).DiscoverLinks(context.Background(), page)
			require.ErrorIs(t, err, ErrInvalidPageURL, page)
		}

		fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("unreachable page", func(t *testing.T) {
		fetcher := &mockFetcher{}
		fetcher.On("Fetch", mock.Anything, "https://x.test/").Return(nil, errors.New("connection refused"))

		_, err := NewPageLinkDiscoverer(fetcher).DiscoverLinks(context.Background(), "https://x.test/")
		require.Error(t, err)
	})

	t.Run("error status", func(t *testing.T) {
		fetcher := &mockFetcher{}
		fetcher.On("Fetch", mock.Anything, "https://x.test/").Return(&Response{StatusCode: 500}, nil)

		_, err := NewPageLinkDiscoverer(fetcher).DiscoverLinks(context.Background(), "https://x.test/")
		require.Error(t, err)
	})
}

func TestExtractScriptLinks_BaseHref(t *testing.T) {
	page, err := url.Parse("https://x.test/a/b/index.html")
	require.NoError(t, err)

	html := `<html><head><base href="/assets/"><script src="app.js"></script></head></html>`

	links, err := ExtractScriptLinks(page, []byte(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.test/assets/app.js"}, links)
}
