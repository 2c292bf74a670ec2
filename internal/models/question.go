package models

// Question is one multiple-choice question from the source dataset.
// Questions are read-only to the engine: the dataset loader owns them.
type Question struct {
	ID      string    `json:"id"`
	Subtask string    `json:"subtask"`
	Ordinal int       `json:"ordinal"`
	Text    string    `json:"question"`
	Choices [4]string `json:"choices"`

	// Answer is the index (0-3) of the correct option in the original order.
	Answer int `json:"answer"`
}

// AnswerLabel returns the correct option's letter in the original
// (unpermuted) arrangement.
func (q Question) AnswerLabel() string {
	return string(rune('A' + q.Answer))
}
