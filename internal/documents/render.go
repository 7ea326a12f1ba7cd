package documents

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
)

var (
	boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)
	linkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
)

type block struct {
	Tag   string
	Body  template.HTML
	Items []template.HTML
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{ .Title }}</title>
<style>
body { font-family: sans-serif; max-width: 800px; margin: 2em auto; line-height: 1.5; color: #222; }
h1, h2 { border-bottom: 1px solid #ccc; }
</style>
</head>
<body>
{{ range .Blocks }}{{ if eq .Tag "ul" }}<ul>
{{ range .Items }}<li>{{ . }}</li>
{{ end }}</ul>
{{ else if eq .Tag "h1" }}<h1>{{ .Body }}</h1>
{{ else if eq .Tag "h2" }}<h2>{{ .Body }}</h2>
{{ else if eq .Tag "h3" }}<h3>{{ .Body }}</h3>
{{ else }}<p>{{ .Body }}</p>
{{ end }}{{ end }}</body>
</html>
`))

// Render converts the markdown source of a document into format. Only the
// markdown subset the generators emit is understood.
func Render(source string, format Format, title string) (string, error) {
	switch format {
	case Markdown:
		return source, nil
	case Text:
		return toText(source), nil
	case HTML:
		return toHTML(source, title)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func toText(source string) string {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		level, heading := headingOf(line)
		line = linkPattern.ReplaceAllString(heading, "$1 ($2)")
		line = boldPattern.ReplaceAllString(line, "$1")
		if level > 0 && level < 3 {
			line = strings.ToUpper(line)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func toHTML(source, title string) (string, error) {
	var (
		blocks    []block
		paragraph []string
		items     []template.HTML
	)

	flushParagraph := func() {
		if len(paragraph) > 0 {
			blocks = append(blocks, block{Tag: "p", Body: template.HTML(strings.Join(paragraph, "<br>\n"))})
			paragraph = nil
		}
	}
	flushList := func() {
		if len(items) > 0 {
			blocks = append(blocks, block{Tag: "ul", Items: items})
			items = nil
		}
	}

	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		level, heading := headingOf(trimmed)
		switch {
		case trimmed == "":
			flushParagraph()
			flushList()
		case level > 0:
			flushParagraph()
			flushList()
			blocks = append(blocks, block{Tag: fmt.Sprintf("h%d", min(level, 3)), Body: inline(heading)})
		case strings.HasPrefix(trimmed, "- "):
			flushParagraph()
			items = append(items, inline(strings.TrimPrefix(trimmed, "- ")))
		default:
			flushList()
			paragraph = append(paragraph, string(inline(trimmed)))
		}
	}
	flushParagraph()
	flushList()

	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title  string
		Blocks []block
	}{Title: title, Blocks: blocks})
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func headingOf(line string) (int, string) {
	level := 0
	for level < len(line) && level < 6 && line[level] == '#' {
		level++
	}
	if level == 0 || level >= len(line) || line[level] != ' ' {
		return 0, line
	}
	return level, strings.TrimSpace(line[level:])
}

// inline escapes text and then applies bold and link markup.
func inline(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	escaped = linkPattern.ReplaceAllString(escaped, `<a href="$2">$1</a>`)
	escaped = boldPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
	return template.HTML(escaped)
}
