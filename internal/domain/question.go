package domain

// QuestionRow is one seed row of the tabular store: a question and its
// expected answer. The JSON tags match the newline-delimited seed file
// records.
type QuestionRow struct {
	Question       string `json:"question"`
	ExpectedAnswer string `json:"answer"`
}
