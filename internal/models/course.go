package models

type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

type Lesson struct {
	Number int
	Title  string
	Link   string
}

// Chunk is one contiguous span of lesson text. Index is zero-based and
// unique within the owning course, so re-ingesting unchanged content lands
// on the same rows.
type Chunk struct {
	Content     string
	CourseTitle string
	// Lesson is nil for course-level chunks.
	Lesson     *int
	LessonLink string
	Index      int
}
