package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/aretw0/notefold/pkg/adapters/fs"
	"github.com/aretw0/notefold/pkg/core"
)

func TestCodec_Encode(t *testing.T) {
	c := fs.NewCodec(nil)

	t.Run("Drops Nil Values", func(t *testing.T) {
		data, err := c.Encode(core.Metadata{"id": "n1", "title": "Hi", "gone": nil}, "Hello")
		require.NoError(t, err)
		assert.Equal(t, "---\nid: n1\ntitle: Hi\n---\nHello", string(data))
	})

	t.Run("Quotes Colons And Quotes", func(t *testing.T) {
		meta := core.Metadata{"title": `Re: "quoted" value`}
		data, err := c.Encode(meta, "")
		require.NoError(t, err)

		got, body := c.Decode(data)
		assert.Equal(t, meta, got)
		assert.Empty(t, body)
	})

	t.Run("Body Starting With Delimiter", func(t *testing.T) {
		data, err := c.Encode(core.Metadata{}, "---\nnot: metadata\n---\ntext")
		require.NoError(t, err)

		meta, body := c.Decode(data)
		assert.Empty(t, meta)
		assert.Equal(t, "---\nnot: metadata\n---\ntext", body)
	})
}

func TestCodec_Decode(t *testing.T) {
	c := fs.NewCodec(nil)

	tests := []struct {
		name     string
		input    string
		wantMeta core.Metadata
		wantBody string
	}{
		{"No Front Matter", "just text", core.Metadata{}, "just text"},
		{"Unterminated", "---\ntitle: x\nbody", core.Metadata{}, "---\ntitle: x\nbody"},
		{"Malformed YAML", "---\ntitle: [unclosed\n---\nbody", core.Metadata{}, "---\ntitle: [unclosed\n---\nbody"},
		{"Empty Block", "---\n---\nbody", core.Metadata{}, "body"},
		{"CRLF", "---\r\ntitle: Hi\r\n---\r\nbody", core.Metadata{"title": "Hi"}, "body"},
		{"Typed Values", "---\ncount: 3\npinned: true\n---\n", core.Metadata{"count": 3, "pinned": true}, ""},
		{"Closing At EOF", "---\ntitle: Hi\n---", core.Metadata{"title": "Hi"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, body := c.Decode([]byte(tt.input))
			require.NotNil(t, meta)
			assert.Equal(t, tt.wantMeta, meta)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	c := fs.NewCodec(nil)

	rapid.Check(t, func(t *rapid.T) {
		meta := rapid.MapOf(
			rapid.StringMatching(`[a-z][a-zA-Z0-9_]{0,10}`),
			rapid.StringMatching(`[a-zA-Z0-9 :"'#,.\-]{0,24}`),
		).Draw(t, "meta")
		body := rapid.String().Draw(t, "body")

		in := make(core.Metadata, len(meta))
		for k, v := range meta {
			in[k] = v
		}

		data, err := c.Encode(in, body)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		gotMeta, gotBody := c.Decode(data)
		if gotBody != body {
			t.Fatalf("body mismatch: %q != %q", gotBody, body)
		}
		if len(gotMeta) != len(in) {
			t.Fatalf("metadata size mismatch: %v != %v", gotMeta, in)
		}
		for k, v := range in {
			if gotMeta[k] != v {
				t.Fatalf("metadata[%q] = %#v, want %#v", k, gotMeta[k], v)
			}
		}
	})
}

func TestCodec_ReadNote(t *testing.T) {
	c := fs.NewCodec(nil)
	dir := t.TempDir()

	t.Run("ID From Front Matter", func(t *testing.T) {
		path := filepath.Join(dir, "file-name.md")
		require.NoError(t, os.WriteFile(path, []byte("---\nid: n1\nfolderId: f1\ntitle: Hi\n---\nHello"), 0644))

		n, ok := c.ReadNote(path)
		require.True(t, ok)
		assert.Equal(t, "n1", n.ID)
		assert.Equal(t, "f1", n.FolderID)
		assert.Equal(t, "Hello", n.Content)
		assert.Equal(t, core.Metadata{"title": "Hi"}, n.Metadata)
	})

	t.Run("ID From File Name", func(t *testing.T) {
		path := filepath.Join(dir, "stem.md")
		require.NoError(t, os.WriteFile(path, []byte("no front matter"), 0644))

		n, ok := c.ReadNote(path)
		require.True(t, ok)
		assert.Equal(t, "stem", n.ID)
		assert.Equal(t, "no front matter", n.Content)
	})

	t.Run("Unreadable Is Skipped", func(t *testing.T) {
		_, ok := c.ReadNote(filepath.Join(dir, "missing.md"))
		assert.False(t, ok)
	})
}

func TestCodec_Title(t *testing.T) {
	c := fs.NewCodec(nil)

	assert.Equal(t, "Given", c.Title(core.Note{Metadata: core.Metadata{"title": "Given"}, Content: "# Heading"}))
	assert.Equal(t, "Heading one", c.Title(core.Note{Content: "intro\n\n## Heading *one*\n\n# Later"}))
	assert.Equal(t, "Untitled", c.Title(core.Note{Content: "no headings here"}))
}
