package application

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dfryer1193/dururack/archive/domain"
	"gopkg.in/yaml.v3"
)

// postFrontMatter holds the YAML header of a markdown post file.
type postFrontMatter struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Tags        tagList `yaml:"tags"`
	Image       string  `yaml:"image"`
	CreatedAt   string  `yaml:"created_at"`
}

// tagList accepts either a YAML sequence or a comma separated string.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var tags []string
		for _, tag := range strings.Split(node.Value, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		*t = tags
		return nil
	case yaml.SequenceNode:
		var tags []string
		if err := node.Decode(&tags); err != nil {
			return err
		}
		*t = tags
		return nil
	default:
		return fmt.Errorf("tags must be a list or a string, line %d", node.Line)
	}
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// markdown body. Content without a closed block is returned as the body.
func splitFrontMatter(content []byte) (*postFrontMatter, []byte, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(content, []byte("---")) {
		return &postFrontMatter{}, content, nil
	}

	rest := content[3:]
	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 || strings.TrimSpace(string(rest[:idx])) != "" {
		return &postFrontMatter{}, content, nil
	}
	rest = rest[idx+1:]

	var block, body []byte
	if bytes.HasPrefix(rest, []byte("---")) {
		body = rest[3:]
	} else {
		end := bytes.Index(rest, []byte("\n---"))
		if end < 0 {
			return &postFrontMatter{}, content, nil
		}
		block = rest[:end]
		body = rest[end+len("\n---"):]
	}

	// Drop the remainder of the closing delimiter line
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}

	var fm postFrontMatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, nil, fmt.Errorf("failed to parse front matter: %w", err)
	}

	return &fm, body, nil
}

// parsePostFile turns a markdown file into a post. The title falls back to
// the first "# " heading, the description to the first paragraph.
func parsePostFile(id string, content []byte) (*domain.Post, error) {
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = extractPostTitle(body)
	}

	description := strings.TrimSpace(fm.Description)
	if description == "" {
		description = extractSnippet(body)
	}

	post := &domain.Post{
		ID:              id,
		Title:           title,
		Content:         string(body),
		Description:     description,
		PreviewImageURL: strings.TrimSpace(fm.Image),
		Tags:            []string(fm.Tags),
	}

	if fm.CreatedAt != "" {
		post.CreatedAt = parseTimestamp(fm.CreatedAt)
	}

	return post, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// parseTimestamp reads the timestamp formats archive files carry. It returns
// the zero time when none match.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
