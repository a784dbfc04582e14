package exam

import "time"

// Test is an answer key examinees are scored against.
type Test struct {
	ID        int64     `json:"id"`
	TestID    string    `json:"test_id"`
	Subject1  string    `json:"subject1"`
	Subject2  string    `json:"subject2"`
	Status    string    `json:"status"`
	Answers   string    `json:"answers"`
	CreatedAt time.Time `json:"created_at"`
}

// TestPatch carries a partial update; nil fields are left unchanged.
type TestPatch struct {
	Subject1 *string `json:"subject1,omitempty"`
	Subject2 *string `json:"subject2,omitempty"`
	Status   *string `json:"status,omitempty"`
	Answers  *string `json:"answers,omitempty"`
}

// Submission is what an examinee sends in.
type Submission struct {
	TestID     string  `json:"test_id"`
	TelegramID string  `json:"telegram_id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	MiddleName *string `json:"middle_name"`
	Region     string  `json:"region"`
	Answers    string  `json:"answers"`
}

// Response is a scored submission as stored in the test's relation.
type Response struct {
	ID         int64     `json:"id"`
	TestID     string    `json:"test_id"`
	TelegramID string    `json:"telegram_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	MiddleName *string   `json:"middle_name"`
	Region     string    `json:"region"`
	Answers    string    `json:"answers"`
	Score      float64   `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats summarises the scores stored for one test.
type Stats struct {
	TestID      string  `json:"test_id"`
	Responses   int     `json:"responses"`
	MinScore    float64 `json:"min_score"`
	MaxScore    float64 `json:"max_score"`
	AvgScore    float64 `json:"avg_score"`
	MaxPossible float64 `json:"max_possible"`
}

// RelationName is the logical name of the relation holding a test's responses.
func RelationName(testID string) string { return testID + "_answers" }
