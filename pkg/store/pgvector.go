package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/sage/internal/models"
	"github.com/xhad/sage/internal/types"
)

type VectorStoreConfig struct {
	ConnString   string
	CatalogTable string
	ContentTable string
	VectorDim    int
	SearchLimit  int
	Embedder     types.Embedder
}

// VectorStore holds the two index namespaces: a catalog table with one row
// per course for fuzzy title resolution, and a content table with one row
// per chunk for filtered semantic search.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.CatalogTable == "" {
		config.CatalogTable = "course_catalog"
	}
	if config.ContentTable == "" {
		config.ContentTable = "course_content"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // Default for nomic-embed-text
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if config.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("%w: failed to create vector extension: %v", models.ErrIndexUnavailable, err)
	}

	createCatalog := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			title TEXT PRIMARY KEY,
			instructor TEXT,
			link TEXT,
			lessons JSONB,
			embedding vector(%d)
		)`, vs.config.CatalogTable, vs.config.VectorDim)

	if _, err = vs.pool.Exec(ctx, createCatalog); err != nil {
		return fmt.Errorf("%w: failed to create catalog table: %v", models.ErrIndexUnavailable, err)
	}

	createContent := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			course_title TEXT NOT NULL,
			lesson_number INTEGER,
			lesson_link TEXT,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, vs.config.ContentTable, vs.config.VectorDim)

	if _, err = vs.pool.Exec(ctx, createContent); err != nil {
		return fmt.Errorf("%w: failed to create content table: %v", models.ErrIndexUnavailable, err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.ContentTable, vs.config.ContentTable)

	if _, err = vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("%w: failed to create index: %v", models.ErrIndexUnavailable, err)
	}

	return nil
}

// UpsertCatalogEntry writes one catalog record keyed by title. Re-ingesting
// the same course overwrites the previous record.
func (vs *VectorStore) UpsertCatalogEntry(ctx context.Context, course models.Course) error {
	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("failed to serialize lessons: %v", err)
	}

	embedding, err := vs.config.Embedder.CreateEmbedding(ctx, []string{sanitizeUTF8(course.Title)})
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (title, instructor, link, lessons, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (title) DO UPDATE SET
			instructor = EXCLUDED.instructor,
			link = EXCLUDED.link,
			lessons = EXCLUDED.lessons,
			embedding = EXCLUDED.embedding`,
		vs.config.CatalogTable)

	_, err = vs.pool.Exec(ctx, stmt,
		course.Title,
		course.Instructor,
		course.Link,
		lessons,
		pgvector.NewVector(embedding[0]),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert catalog entry: %v", models.ErrIndexUnavailable, err)
	}
	return nil
}

// UpsertContentChunks writes chunk rows keyed by (course title, chunk
// index), so re-ingestion of unchanged content is idempotent.
func (vs *VectorStore) UpsertContentChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", models.ErrIndexUnavailable, err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, course_title, lesson_number, lesson_link, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			lesson_number = EXCLUDED.lesson_number,
			lesson_link = EXCLUDED.lesson_link,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.ContentTable)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = sanitizeUTF8(chunk.Content)
	}

	embeddings, err := vs.config.Embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return err
	}

	for i, chunk := range chunks {
		id := fmt.Sprintf("%s_%d", chunk.CourseTitle, chunk.Index)

		_, err = tx.Exec(ctx, stmt,
			id,
			chunk.CourseTitle,
			chunk.Lesson,
			lessonLink(chunk),
			chunk.Index,
			texts[i],
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("%w: failed to insert chunk: %v", models.ErrIndexUnavailable, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", models.ErrIndexUnavailable, err)
	}

	return nil
}

// QueryCatalog returns the closest catalog title to the given text, or nil
// when the catalog is empty. The similarity threshold is the caller's call.
func (vs *VectorStore) QueryCatalog(ctx context.Context, text string) (*types.CatalogMatch, error) {
	embedding, err := vs.config.Embedder.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT title, embedding <=> $1 AS distance
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT 1`,
		vs.config.CatalogTable)

	var match types.CatalogMatch
	row := vs.pool.QueryRow(ctx, query, pgvector.NewVector(embedding[0]))
	if err := row.Scan(&match.Title, &match.Distance); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to query catalog: %v", models.ErrIndexUnavailable, err)
	}

	return &match, nil
}

// QueryContent runs a filtered semantic search against the content
// namespace, ranked by increasing cosine distance.
func (vs *VectorStore) QueryContent(ctx context.Context, text string, filter types.ContentFilter, limit int) ([]models.SearchResult, error) {
	if limit == 0 {
		limit = vs.config.SearchLimit
	}

	embedding, err := vs.config.Embedder.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	args := []interface{}{pgvector.NewVector(embedding[0])}
	var conditions []string

	if filter.CourseTitle != "" {
		args = append(args, filter.CourseTitle)
		conditions = append(conditions, fmt.Sprintf("course_title = $%d", len(args)))
	}
	if filter.Lesson != nil {
		args = append(args, *filter.Lesson)
		conditions = append(conditions, fmt.Sprintf("lesson_number = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT content, course_title, lesson_number, lesson_link, embedding <=> $1 AS distance
		FROM %s
		%s
		ORDER BY embedding <=> $1, id
		LIMIT $%d`,
		vs.config.ContentTable, where, len(args))

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query content: %v", models.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var result models.SearchResult
		var link *string
		err := rows.Scan(
			&result.Content,
			&result.CourseTitle,
			&result.Lesson,
			&link,
			&result.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %v", models.ErrIndexUnavailable, err)
		}
		if link != nil {
			result.LessonLink = *link
		}
		results = append(results, result)
	}

	return results, nil
}

// ListCourseTitles returns every title in the catalog namespace.
func (vs *VectorStore) ListCourseTitles(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT title FROM %s ORDER BY title", vs.config.CatalogTable)

	rows, err := vs.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list course titles: %v", models.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("%w: failed to scan title: %v", models.ErrIndexUnavailable, err)
		}
		titles = append(titles, title)
	}

	return titles, nil
}

// Clear drops all records from both namespaces, used for forced rebuilds.
func (vs *VectorStore) Clear(ctx context.Context) error {
	stmt := fmt.Sprintf("TRUNCATE %s, %s", vs.config.CatalogTable, vs.config.ContentTable)
	if _, err := vs.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("%w: failed to clear index: %v", models.ErrIndexUnavailable, err)
	}
	return nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func lessonLink(chunk models.Chunk) *string {
	// Denormalized onto content rows so citations can carry the link
	// without a catalog lookup per result.
	if chunk.LessonLink == "" {
		return nil
	}
	link := chunk.LessonLink
	return &link
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Add this helper function
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
