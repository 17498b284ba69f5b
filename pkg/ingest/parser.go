package ingest

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/sage/internal/models"
)

var lessonHeader = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)

// LessonText pairs a lesson with its raw text. Text appearing before the
// first lesson header belongs to the course itself (Lesson is nil).
type LessonText struct {
	Lesson *int
	Link   string
	Text   string
}

// CourseDocument is one parsed source file: course metadata plus the
// ordered lesson texts that will be chunked and indexed.
type CourseDocument struct {
	Course models.Course
	Texts  []LessonText
}

// ParseCourseDocument reads the course document format:
//
//	Course Title: ...
//	Course Link: ...
//	Course Instructor: ...
//
//	Lesson 0: Introduction
//	Lesson Link: ...
//	<lesson text>
func ParseCourseDocument(raw string) (*CourseDocument, error) {
	doc := &CourseDocument{}

	var current *LessonText
	var body strings.Builder

	flush := func() {
		if current == nil {
			text := strings.TrimSpace(body.String())
			if text != "" {
				doc.Texts = append(doc.Texts, LessonText{Text: text})
			}
			body.Reset()
			return
		}
		current.Text = strings.TrimSpace(body.String())
		doc.Texts = append(doc.Texts, *current)
		current = nil
		body.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if value, ok := headerValue(line, "Course Title:"); ok && doc.Course.Title == "" {
			doc.Course.Title = value
			continue
		}
		if value, ok := headerValue(line, "Course Link:"); ok && doc.Course.Link == "" {
			doc.Course.Link = value
			continue
		}
		if value, ok := headerValue(line, "Course Instructor:"); ok && doc.Course.Instructor == "" {
			doc.Course.Instructor = value
			continue
		}

		if m := lessonHeader.FindStringSubmatch(line); m != nil {
			flush()
			number, _ := strconv.Atoi(m[1])
			current = &LessonText{Lesson: &number}
			doc.Course.Lessons = append(doc.Course.Lessons, models.Lesson{
				Number: number,
				Title:  strings.TrimSpace(m[2]),
			})
			continue
		}

		if value, ok := headerValue(line, "Lesson Link:"); ok && current != nil {
			current.Link = value
			doc.Course.Lessons[len(doc.Course.Lessons)-1].Link = value
			continue
		}

		body.WriteString(scanner.Text())
		body.WriteString("\n")
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read course document: %v", err)
	}
	if doc.Course.Title == "" {
		return nil, fmt.Errorf("course document has no title header")
	}

	return doc, nil
}

// ExtractHTMLText reduces an HTML course page to plain text so it can go
// through the same line-based parser as .txt documents.
func ExtractHTMLText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %v", err)
	}

	doc.Find("script, style, nav, header, footer").Remove()

	var lines []string
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	for _, line := range strings.Split(body.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n"), nil
}

func headerValue(line, prefix string) (string, bool) {
	if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix):]), true
}
