package domain

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

func TestExtractReference(t *testing.T) {
	tests := []struct {
		name string
		body string
		want m.Reference
	}{
		{
			name: "relative url",
			body: "console.log(1);\n//# sourceMappingURL=app.js.map\n",
			want: m.URLReference{URL: "app.js.map"},
		},
		{
			name: "legacy at form",
			body: "x()\n//@ sourceMappingURL=legacy.map",
			want: m.URLReference{URL: "legacy.map"},
		},
		{
			name: "last directive wins",
			body: "//# sourceMappingURL=first.map\nvar a;\n//# sourceMappingURL=second.map",
			want: m.URLReference{URL: "second.map"},
		},
		{
			name: "value stops at quote",
			body: `eval("x//# sourceMappingURL=inner.map")` + "\n",
			want: m.URLReference{URL: "inner.map"},
		},
		{
			name: "base64 data uri",
			body: "a\n//# sourceMappingURL=data:application/json;charset=utf-8;base64,eyJ2IjozfQ==",
			want: m.DataReference{Payload: "eyJ2IjozfQ==", Base64: true},
		},
		{
			name: "plain data uri",
			body: "a\n//# sourceMappingURL=data:application/json,%7B%7D",
			want: m.DataReference{Payload: "%7B%7D"},
		},
		{
			name: "non json data uri",
			body: "//# sourceMappingURL=data:text/plain;base64,aGk=",
			want: m.MissingReference{},
		},
		{
			name: "data uri without comma",
			body: "//# sourceMappingURL=data:application/json;base64",
			want: m.MissingReference{},
		},
		{
			name: "empty value",
			body: "//# sourceMappingURL=\n",
			want: m.MissingReference{},
		},
		{
			name: "no directive",
			body: "function f() { return 1 }",
			want: m.MissingReference{},
		},
		{
			name: "empty body",
			body: "",
			want: m.MissingReference{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReference(tt.body))
		})
	}
}

func TestExtractReference_Total(t *testing.T) {
	bodies := []string{
		strings.Repeat("a", 1<<20),
		strings.Repeat("//# sourceMappingURL=", 1000),
		"\x00\xff\xfe//# sourceMappingURL=\xff.map",
		"//#\tsourceMappingURL=tabbed.map",
	}

	for _, body := range bodies {
		assert.NotPanics(t, func() {
			ref := ExtractReference(body)
			assert.NotNil(t, ref)
		})
	}
}

func TestReferenceFromHeaders(t *testing.T) {
	t.Run("sourcemap header", func(t *testing.T) {
		h := http.Header{}
		h.Set("SourceMap", "/static/app.js.map")
		assert.Equal(t, m.URLReference{URL: "/static/app.js.map"}, ReferenceFromHeaders(h))
	})

	t.Run("legacy header", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-SourceMap", "old.map")
		assert.Equal(t, m.URLReference{URL: "old.map"}, ReferenceFromHeaders(h))
	})

	t.Run("no header", func(t *testing.T) {
		assert.Equal(t, m.MissingReference{}, ReferenceFromHeaders(http.Header{}))
	})
}
