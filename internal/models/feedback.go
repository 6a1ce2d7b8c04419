package models

import "time"

// FeedbackAnalysis stores one aggregated student-feedback row for a subject
// taught by a faculty member in a given term, with twelve question scores.
// ReportData holds the derived analysis as JSON once computed.
type FeedbackAnalysis struct {
	ID             string    `db:"id" json:"id"`
	Year           int       `db:"year" json:"year"`
	Term           string    `db:"term" json:"term"`
	Branch         string    `db:"branch" json:"branch"`
	Semester       int       `db:"semester" json:"semester"`
	SubjectCode    string    `db:"subject_code" json:"subject_code"`
	SubjectName    string    `db:"subject_name" json:"subject_name"`
	FacultyName    string    `db:"faculty_name" json:"faculty_name"`
	TotalResponses int       `db:"total_responses" json:"total_responses"`
	AverageScore   float64   `db:"average_score" json:"average_score"`
	Q1Score        float64   `db:"q1_score" json:"-"`
	Q2Score        float64   `db:"q2_score" json:"-"`
	Q3Score        float64   `db:"q3_score" json:"-"`
	Q4Score        float64   `db:"q4_score" json:"-"`
	Q5Score        float64   `db:"q5_score" json:"-"`
	Q6Score        float64   `db:"q6_score" json:"-"`
	Q7Score        float64   `db:"q7_score" json:"-"`
	Q8Score        float64   `db:"q8_score" json:"-"`
	Q9Score        float64   `db:"q9_score" json:"-"`
	Q10Score       float64   `db:"q10_score" json:"-"`
	Q11Score       float64   `db:"q11_score" json:"-"`
	Q12Score       float64   `db:"q12_score" json:"-"`
	ReportData     []byte    `db:"report_data" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FeedbackQuestionCount is the number of questions on the feedback form.
const FeedbackQuestionCount = 12

// QuestionScores returns the twelve question scores in order.
func (f *FeedbackAnalysis) QuestionScores() []float64 {
	return []float64{
		f.Q1Score, f.Q2Score, f.Q3Score, f.Q4Score, f.Q5Score, f.Q6Score,
		f.Q7Score, f.Q8Score, f.Q9Score, f.Q10Score, f.Q11Score, f.Q12Score,
	}
}

// ScoreFields exposes the question score fields for positional assignment.
func (f *FeedbackAnalysis) ScoreFields() []*float64 {
	return []*float64{
		&f.Q1Score, &f.Q2Score, &f.Q3Score, &f.Q4Score, &f.Q5Score, &f.Q6Score,
		&f.Q7Score, &f.Q8Score, &f.Q9Score, &f.Q10Score, &f.Q11Score, &f.Q12Score,
	}
}

// FeedbackStatistics summarises the score distribution of one feedback row.
type FeedbackStatistics struct {
	Mean           float64  `json:"mean"`
	Median         float64  `json:"median"`
	StdDev         float64  `json:"std_dev"`
	Min            float64  `json:"min"`
	Max            float64  `json:"max"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	TotalResponses int      `json:"total_responses"`
}

// FeedbackAnalysisResult is the persisted analysis of one feedback row.
type FeedbackAnalysisResult struct {
	FeedbackID      string             `json:"feedback_id"`
	Statistics      FeedbackStatistics `json:"statistics"`
	Recommendations []string           `json:"recommendations"`
	AnalyzedAt      time.Time          `json:"analyzed_at"`
}
