// Package frontmatter reads and writes the YAML frontmatter that heads
// agent, skill and command markdown templates.
package frontmatter

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Document is a parsed markdown template.
type Document struct {
	Meta           map[string]any
	Body           string
	HasFrontmatter bool
}

// ErrMissing is returned by Require when a document has no frontmatter.
var ErrMissing = errors.New("missing frontmatter")

// Parse splits content into frontmatter metadata and body. Content without
// a leading delimiter is returned as a body-only document.
func Parse(content []byte) (*Document, error) {
	md := goldmark.New(goldmark.WithExtensions(meta.Meta))

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "invalid frontmatter yaml")
	}

	body, found := extractBody(string(content))
	return &Document{
		Meta:           metaData,
		Body:           body,
		HasFrontmatter: found,
	}, nil
}

// Require is Parse for documents that must carry frontmatter.
func Require(content []byte) (*Document, error) {
	doc, err := Parse(content)
	if err != nil {
		return nil, err
	}
	if !doc.HasFrontmatter || len(doc.Meta) == 0 {
		return nil, ErrMissing
	}
	return doc, nil
}

// Decode maps frontmatter into out, a pointer to a struct tagged with
// `mapstructure`. String-list fields accept either a YAML sequence or a
// comma-separated string.
func (d *Document) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       commaSeparatedHook,
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create frontmatter decoder")
	}
	if err := decoder.Decode(d.Meta); err != nil {
		return errors.Wrap(err, "failed to decode frontmatter")
	}
	return nil
}

// String returns a frontmatter field as a string, or "" if absent or not a scalar.
func (d *Document) String(key string) string {
	switch v := d.Meta[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

func commaSeparatedHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}
	return SplitList(data.(string)), nil
}

// SplitList splits a comma-separated list, trimming blanks and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Render serializes front as YAML frontmatter followed by body.
func Render(front any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(front); err != nil {
		return nil, errors.Wrap(err, "failed to encode frontmatter")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode frontmatter")
	}

	buf.WriteString(delimiter + "\n")
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(strings.TrimLeft(body, "\n"))
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// extractBody removes the frontmatter block and returns the body and
// whether a complete block was found.
func extractBody(content string) (string, bool) {
	if !strings.HasPrefix(content, delimiter) {
		return content, false
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			end = i
			break
		}
	}
	if end == -1 {
		return content, false
	}

	return strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n"), true
}
