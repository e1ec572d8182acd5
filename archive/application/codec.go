package application

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dfryer1193/dururack/api"
	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/archive.schema.json
var archiveSchemaJSON []byte

var archiveSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(archiveSchemaJSON))
})

// DecodeArchive validates an archive file against the archive schema and
// converts it to a domain archive. Missing ids are generated.
// Every failure wraps domain.ErrInvalidArchive.
func DecodeArchive(data []byte) (*domain.Archive, error) {
	schema, err := archiveSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load archive schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArchive, err)
	}

	if !result.Valid() {
		problems := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			problems[i] = e.String()
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArchive, strings.Join(problems, "; "))
	}

	var file api.Archive
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArchive, err)
	}

	return archiveFromFile(file)
}

func archiveFromFile(file api.Archive) (*domain.Archive, error) {
	archive := &domain.Archive{
		ID:             strings.TrimSpace(file.ID),
		Name:           file.Name,
		Description:    file.Description,
		IsOnline:       file.IsOnline,
		SourceURL:      file.SourceURL,
		DisplayOptions: file.DisplayOptions,
		Posts:          make([]domain.Post, 0, len(file.Posts)),
	}
	if archive.ID == "" {
		archive.ID = uuid.NewString()
	}
	if archive.ID == "." || archive.ID == ".." || strings.ContainsAny(archive.ID, `/\`) {
		return nil, fmt.Errorf("%w: invalid archive id %q", domain.ErrInvalidArchive, archive.ID)
	}

	seen := make(map[string]struct{}, len(file.Posts))
	for _, p := range file.Posts {
		post := domain.Post{
			ID:              strings.TrimSpace(p.ID),
			ArchiveID:       archive.ID,
			Title:           p.Title,
			Content:         p.Content,
			Description:     p.Description,
			PreviewImageURL: p.PreviewImageURL,
			Tags:            p.Tags,
		}
		if post.ID == "" {
			post.ID = uuid.NewString()
		}

		if _, dup := seen[post.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate post id %q", domain.ErrInvalidArchive, post.ID)
		}
		seen[post.ID] = struct{}{}

		if p.CreatedAt != "" {
			post.CreatedAt = parseTimestamp(p.CreatedAt)
			if post.CreatedAt.IsZero() {
				log.Warn().Str("archive", archive.ID).Str("post", post.ID).Str("createdAt", p.CreatedAt).Msg("Ignoring malformed post timestamp")
			}
		}

		archive.Posts = append(archive.Posts, post)
	}

	return archive, nil
}

// EncodeArchive writes an archive in the archive file format.
func EncodeArchive(a *domain.Archive) ([]byte, error) {
	data, err := json.MarshalIndent(api.NewArchive(a), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive: %w", err)
	}
	return append(data, '\n'), nil
}
