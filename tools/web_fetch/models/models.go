package models

type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	HTML     string `json:"-"`
	Text     string `json:"text,omitempty"`
	HTMLHash string `json:"html_hash"`
	Status   int    `json:"status"`
	FetchMS  int    `json:"fetch_ms"`
}
