package models

// SearchResult is one scored chunk from the content namespace. Distance is
// cosine distance, so smaller means more similar.
type SearchResult struct {
	Content     string
	CourseTitle string
	Lesson      *int
	LessonLink  string
	Distance    float32
}

// Citation points a user back at the course material an answer came from.
type Citation struct {
	CourseTitle string `json:"course_title"`
	Lesson      *int   `json:"lesson,omitempty"`
	LessonLink  string `json:"lesson_link,omitempty"`
}

// Exchange is one completed (question, answer) pair within a session.
type Exchange struct {
	Query  string
	Answer string
}
