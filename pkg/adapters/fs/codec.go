package fs

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/notefold/pkg/core"
)

const frontMatterDelimiter = "---"

// Codec reads and writes notes as Markdown files with a YAML front matter block.
//
// The layout is:
//
//	---
//	key: value
//	---
//	body, verbatim
//
// Values are YAML scalars, so colons and quotes inside strings are escaped by
// YAML quoting rules rather than by hand.
type Codec struct {
	logger *slog.Logger
	md     goldmark.Markdown
}

// NewCodec creates a codec. A nil logger discards output.
func NewCodec(logger *slog.Logger) *Codec {
	return &Codec{
		logger: orDiscard(logger),
		md:     goldmark.New(),
	}
}

// Encode renders metadata and body into file contents.
// Nil-valued fields are dropped. The front matter block is always written,
// even when empty, so a body starting with "---" survives a round trip.
func (c *Codec) Encode(meta core.Metadata, body string) ([]byte, error) {
	clean := make(map[string]any, len(meta))
	for k, v := range meta {
		if v == nil {
			continue
		}
		clean[k] = v
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterDelimiter + "\n")
	if len(clean) > 0 {
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(clean); err != nil {
			return nil, fmt.Errorf("failed to encode front matter: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode front matter: %w", err)
		}
	}
	buf.WriteString(frontMatterDelimiter + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// Decode splits file contents into metadata and body. A missing, unterminated
// or unparseable front matter block yields empty metadata and the whole input
// as body. The returned metadata is never nil.
func (c *Codec) Decode(data []byte) (core.Metadata, string) {
	meta := make(core.Metadata)

	front, body, ok := splitFrontMatter(data)
	if !ok {
		return meta, string(data)
	}
	if err := yaml.Unmarshal(front, &meta); err != nil {
		c.logger.Debug("malformed front matter, treating file as body", "error", err)
		return make(core.Metadata), string(data)
	}
	if meta == nil {
		meta = make(core.Metadata)
	}
	return meta, string(body)
}

// ReadNote loads the note stored at path. The second result is false when the
// file cannot be read; the failure is logged and callers skip the entry.
// A note without an "id" field takes its ID from the file name.
func (c *Codec) ReadNote(path string) (core.Note, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("skipping unreadable note", "path", path, "error", err)
		return core.Note{}, false
	}

	meta, body := c.Decode(data)
	n := core.Note{Content: body, Metadata: meta}

	if id, ok := meta[core.KeyID]; ok && id != nil {
		n.ID = strings.TrimSpace(fmt.Sprint(id))
	}
	if n.ID == "" {
		n.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if fid, ok := meta[core.KeyFolderID]; ok && fid != nil {
		n.FolderID = fmt.Sprint(fid)
	}
	delete(meta, core.KeyID)
	delete(meta, core.KeyFolderID)

	return n, true
}

// Title returns a display title: the "title" field, else the first heading
// of the body, else the sanitized fallback name.
func (c *Codec) Title(n core.Note) string {
	if t := strings.TrimSpace(n.Title()); t != "" {
		return t
	}
	if h := c.firstHeading([]byte(n.Content)); h != "" {
		return h
	}
	return core.Sanitize("")
}

func (c *Codec) firstHeading(src []byte) string {
	doc := c.md.Parser().Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			title = strings.TrimSpace(inlineText(heading, src))
			if title != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return title
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch t := child.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(inlineText(child, src))
		}
	}
	return b.String()
}

// splitFrontMatter returns the YAML between an opening "---" line and the
// next line consisting solely of "---", plus everything after that line.
func splitFrontMatter(data []byte) (front, body []byte, ok bool) {
	var rest []byte
	switch {
	case bytes.HasPrefix(data, []byte(frontMatterDelimiter+"\n")):
		rest = data[len(frontMatterDelimiter)+1:]
	case bytes.HasPrefix(data, []byte(frontMatterDelimiter+"\r\n")):
		rest = data[len(frontMatterDelimiter)+2:]
	default:
		return nil, data, false
	}

	offset := 0
	for offset <= len(rest) {
		end := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		if end < 0 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+end]
		}

		if string(bytes.TrimSuffix(line, []byte("\r"))) == frontMatterDelimiter {
			front = rest[:offset]
			if end < 0 {
				return front, nil, true
			}
			return front, rest[offset+end+1:], true
		}

		if end < 0 {
			break
		}
		offset += end + 1
	}
	return nil, data, false
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
