package models

// Document is the text extracted from one uploaded PDF.
type Document struct {
	ID    string
	Name  string
	Text  string
	Pages int
}

// Answer is the best span an extractive model found for one question.
type Answer struct {
	Text  string  `json:"answer"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// Audio holds one captured utterance.
type Audio struct {
	Data        []byte
	ContentType string
	SampleRate  int
}

type Chunk struct {
	DocumentID string
	Index      int
	Content    string
}
