package doctree

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // One node per page, in page order
}

// DocNode holds the text of one page.
type DocNode struct {
	Title string // e.g. "Page 3"
	Text  string // Extracted page text
	Page  int    // 1-based page number
}

// Chunk is a sized text segment with its source page range, ready for
// embedding.
type Chunk struct {
	Text      string `json:"text"`
	Index     int    `json:"index"` // Sequence number within document
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
}

// Stats summarizes an ingested document.
type Stats struct {
	Pages  int `json:"pages"`
	Chars  int `json:"chars"`
	Chunks int `json:"chunks"`
}

// Text joins all page text with newlines.
func (t *DocTree) Text() string {
	n := 0
	for _, c := range t.Children {
		n += len(c.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, c := range t.Children {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, c.Text...)
	}
	return string(buf)
}
