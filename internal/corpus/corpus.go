package corpus

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve"
)

// Chunk is one indexed slice of a scraped page
type Chunk struct {
	DocID      string    `json:"doc_id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	ChunkIndex int       `json:"chunk_index"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Hit is one BM25 search result
type Hit struct {
	DocID   string  `json:"doc_id"`
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// Corpus is a per-process BM25 index over the chunks of pages already
// scraped, so the agent can re-query fetched material without refetching.
type Corpus struct {
	mu    sync.RWMutex
	index bleve.Index
	meta  map[string]Chunk
}

func New() (*Corpus, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Corpus{index: index, meta: make(map[string]Chunk)}, nil
}

// Add indexes the chunks of one page
func (c *Corpus) Add(url, title string, chunks []string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	added := 0
	for i, text := range chunks {
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunk := Chunk{
			DocID:      fmt.Sprintf("%s#%03d", sha1Hex(url), i),
			URL:        url,
			Title:      title,
			Text:       text,
			ChunkIndex: i,
			IndexedAt:  now,
		}
		if err := c.index.Index(chunk.DocID, chunk); err != nil {
			return added, fmt.Errorf("index chunk: %w", err)
		}
		c.meta[chunk.DocID] = chunk
		added++
	}
	return added, nil
}

// Search runs a BM25 query over the indexed chunks
func (c *Corpus) Search(q string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	res, err := c.index.Search(searchReq)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Hit
	for i, hit := range res.Hits {
		doc, ok := c.meta[hit.ID]
		if !ok {
			continue
		}
		out = append(out, Hit{
			DocID: hit.ID, URL: doc.URL, Title: doc.Title,
			Snippet: snippet(doc.Text),
			Score:   hit.Score, Rank: i + 1,
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// Len reports how many chunks are indexed
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.meta)
}

func snippet(text string) string {
	const max = 280
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut] + "…"
}

func sha1Hex(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}
