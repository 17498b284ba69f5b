package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/internal/types"
)

type IngesterConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	MinChunkLength int
	// RateLimit bounds embedding calls per second during ingestion.
	RateLimit  float64
	Extensions []string
	OnProgress func(file string)
}

// Ingester turns a folder of course documents into catalog entries and
// content chunks in the embedding index.
type Ingester struct {
	config  IngesterConfig
	chunker Chunker
	index   types.VectorIndex
	limiter *rate.Limiter
}

func NewWithConfig(config IngesterConfig, index types.VectorIndex) *Ingester {
	if config.RateLimit == 0 {
		config.RateLimit = 10.0
	}
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".txt", ".md", ".html", ".htm"}
	}

	return &Ingester{
		config: config,
		chunker: NewChunker(ChunkerConfig{
			ChunkSize:      config.ChunkSize,
			ChunkOverlap:   config.ChunkOverlap,
			MinChunkLength: config.MinChunkLength,
		}),
		index:   index,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// SetOnProgress installs a callback invoked once per ingested file.
func (in *Ingester) SetOnProgress(fn func(file string)) {
	in.config.OnProgress = fn
}

// AddCourseFolder ingests every course document in path and returns the
// number of courses and chunks added. Courses whose title is already in the
// catalog are skipped, unless clearExisting wipes the index first.
func (in *Ingester) AddCourseFolder(ctx context.Context, path string, clearExisting bool) (int, int, error) {
	if clearExisting {
		if err := in.index.Clear(ctx); err != nil {
			return 0, 0, err
		}
	}

	existing, err := in.index.ListCourseTitles(ctx)
	if err != nil {
		return 0, 0, err
	}
	known := make(map[string]bool, len(existing))
	for _, title := range existing {
		known[title] = true
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read course folder: %v", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if in.allowedExtension(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	coursesAdded, chunksAdded := 0, 0
	for _, name := range files {
		doc, err := in.loadCourseDocument(filepath.Join(path, name))
		if err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("failed to parse %s: %v", name, err)
		}

		if known[doc.Course.Title] {
			continue
		}

		chunks := in.BuildChunks(doc)

		// Catalog entry goes in first so no content chunk ever
		// references a course the catalog does not know about.
		if err := in.limiter.Wait(ctx); err != nil {
			return coursesAdded, chunksAdded, err
		}
		if err := in.index.UpsertCatalogEntry(ctx, doc.Course); err != nil {
			return coursesAdded, chunksAdded, err
		}

		if err := in.limiter.Wait(ctx); err != nil {
			return coursesAdded, chunksAdded, err
		}
		if err := in.index.UpsertContentChunks(ctx, chunks); err != nil {
			return coursesAdded, chunksAdded, err
		}

		known[doc.Course.Title] = true
		coursesAdded++
		chunksAdded += len(chunks)

		if in.config.OnProgress != nil {
			in.config.OnProgress(name)
		}
	}

	return coursesAdded, chunksAdded, nil
}

// BuildChunks chunks every lesson text of a parsed document, assigning
// chunk indexes that are zero-based and unique within the course.
func (in *Ingester) BuildChunks(doc *CourseDocument) []models.Chunk {
	var chunks []models.Chunk
	index := 0

	for _, lessonText := range doc.Texts {
		for _, content := range in.chunker.Chunk(lessonText.Text) {
			chunks = append(chunks, models.Chunk{
				Content:     content,
				CourseTitle: doc.Course.Title,
				Lesson:      lessonText.Lesson,
				LessonLink:  lessonText.Link,
				Index:       index,
			})
			index++
		}
	}

	return chunks
}

func (in *Ingester) loadCourseDocument(path string) (*CourseDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := string(data)
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		raw, err = ExtractHTMLText(raw)
		if err != nil {
			return nil, err
		}
	}

	return ParseCourseDocument(raw)
}

func (in *Ingester) allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range in.config.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
