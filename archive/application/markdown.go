package application

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	maxLength = 200

	// excerptLength is how much of a post body a card previews when it has no image.
	excerptLength = 300

	untitledPost = "Untitled Post"
)

// archiveBaseKey carries the URL prefix of the archive being rendered.
var archiveBaseKey = parser.NewContextKey()

// MarkdownProcessingResult contains the results of processing a markdown file
type MarkdownProcessingResult struct {
	Title       string
	Snippet     string
	HTMLContent []byte
}

// relativeLinkTransformer points relative images at the archive's image
// route and relative post links at the archive's post route.
type relativeLinkTransformer struct{}

func (t *relativeLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	base, _ := pc.Get(archiveBaseKey).(string)
	if base == "" {
		return
	}

	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		link, linkOk := n.(*ast.Link)
		img, imgOk := n.(*ast.Image)
		if !linkOk && !imgOk {
			return ast.WalkContinue, nil
		}

		dest := ""
		if linkOk {
			dest = string(link.Destination)
		} else if imgOk {
			dest = string(img.Destination)
		}

		if dest == "" || strings.HasPrefix(dest, "#") || !isRelativeLink(dest) {
			return ast.WalkContinue, nil
		}

		destFile := path.Base(dest)
		if imgOk {
			img.Destination = []byte(base + "/images/" + destFile)
			return ast.WalkContinue, nil
		}

		// Only links to other post files are rewritten
		if !strings.HasSuffix(destFile, ".md") {
			return ast.WalkContinue, nil
		}
		postID := extractPostID("posts/" + destFile)
		if postID == "" {
			postID = strings.TrimSuffix(destFile, ".md")
		}
		link.Destination = []byte(base + "/posts/" + postID)

		return ast.WalkContinue, nil
	})
}

func isRelativeLink(dest string) bool {
	// Absolute path check
	if strings.HasPrefix(dest, "/") {
		if strings.HasPrefix(dest, "//") {
			return false
		}
		return true
	}

	if strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../") {
		return true
	}

	if strings.Contains(dest, ":") {
		return false
	}

	return true
}

// MarkdownRenderer defines the interface for converting markdown to HTML.
type MarkdownRenderer interface {
	Render(archiveID string, markdown []byte) (*MarkdownProcessingResult, error)
}

type MarkdownRendererImpl struct {
	renderer goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRendererImpl {
	renderer := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&relativeLinkTransformer{}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &MarkdownRendererImpl{
		renderer: renderer,
	}
}

// Render converts a post body to HTML. Relative links resolve against the
// archive's routes; an empty archiveID leaves them untouched.
func (r *MarkdownRendererImpl) Render(archiveID string, markdown []byte) (*MarkdownProcessingResult, error) {
	title := extractPostTitle(markdown)
	snippet := extractSnippet(markdown)

	pc := parser.NewContext()
	if archiveID != "" {
		pc.Set(archiveBaseKey, "/archives/"+archiveID)
	}

	var buf bytes.Buffer
	if err := r.renderer.Convert(markdown, &buf, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	return &MarkdownProcessingResult{
		Title:       title,
		Snippet:     snippet,
		HTMLContent: buf.Bytes(),
	}, nil
}

// Excerpt returns the start of a post body that a card previews.
func Excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLength {
		return content
	}
	return string(runes[:excerptLength])
}

// CardTags returns the tags a card has room for. Poster overlays show two.
func CardTags(style domain.CardStyle, tags []string) []string {
	limit := 3
	if style.Resolve() == domain.CardPosterOverlay {
		limit = 2
	}
	if len(tags) <= limit {
		return tags
	}
	return tags[:limit]
}

func extractPostTitle(markdown []byte) string {
	lines := strings.SplitN(string(markdown), "\n", 2)
	if len(lines) == 0 {
		return untitledPost
	}

	firstLine := strings.TrimSpace(lines[0])
	title, found := strings.CutPrefix(firstLine, "# ")
	if !found {
		return untitledPost
	}

	return strings.TrimSpace(title)
}

func extractSnippet(markdown []byte) string {
	lines := strings.Split(string(markdown), "\n")
	var paragraphLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Skip headings before we find content
		if strings.HasPrefix(trimmed, "#") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		if trimmed == "" {
			if len(paragraphLines) > 0 {
				break // End of first paragraph
			}
			continue
		}

		// Stop at code blocks, horizontal rules, lists, tables
		if strings.HasPrefix(trimmed, "```") ||
			strings.HasPrefix(trimmed, "---") ||
			strings.HasPrefix(trimmed, "***") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "+ ") ||
			strings.HasPrefix(trimmed, "|") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		paragraphLines = append(paragraphLines, trimmed)
	}

	if len(paragraphLines) == 0 {
		return ""
	}

	snippet := strings.Join(paragraphLines, " ")

	if runes := []rune(snippet); len(runes) > maxLength {
		snippet = string(runes[:maxLength])
		if lastSpace := strings.LastIndexAny(snippet, " \t"); lastSpace > 0 {
			snippet = snippet[:lastSpace]
		}
		snippet += "..."
	}

	return snippet
}
