package model

// Category selects the content-specific part of the instructions.
type Category string

const (
	CategoryNotes Category = "notes"
	CategoryExam  Category = "exam"
)

// Instructions is the free-text guidance sent with every remote
// transcription call.
type Instructions struct {
	Category    Category `json:"category"`
	Handwritten bool     `json:"handwritten"`
	Text        string   `json:"-"`
}
