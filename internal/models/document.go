package models

// Document is a single uploaded document after text extraction.
// Name is used for logging only and never contributes data.
type Document struct {
	Name string `json:"name" yaml:"name"`
	Text string `json:"text" yaml:"text"`
}
