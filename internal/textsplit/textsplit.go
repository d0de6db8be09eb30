package textsplit

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Separator priority runs from paragraph breaks down to CJK and western
// sentence enders before giving up and cutting mid-word.
var DefaultSeparators = []string{"\n\n", "\n", "。", "！", "？", ".", "!", "?", " ", ""}

const (
	MinContentChars = 100
	MaxContentBytes = 1 << 20
)

var (
	ErrEmptyContent  = errors.New("content is empty")
	ErrContentShort  = errors.New("content is too short")
	ErrContentLarge  = errors.New("content exceeds size limit")
	ErrNotMeaningful = errors.New("content has no meaningful text")
)

// Splitter cuts text into overlapping chunks along natural boundaries
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Splitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}
}

// AutoParams picks chunk size and overlap suited to the text length
func AutoParams(textLen int) (int, int) {
	switch {
	case textLen < 1000:
		return 500, 50
	case textLen < 5000:
		return 1000, 100
	case textLen < 20000:
		return 1500, 150
	default:
		return 2000, 200
	}
}

// ValidateContent rejects text the extraction stage cannot work with
func ValidateContent(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(trimmed) < MinContentChars {
		return ErrContentShort
	}
	if len(text) > MaxContentBytes {
		return ErrContentLarge
	}
	if !isMeaningful(trimmed) {
		return ErrNotMeaningful
	}
	return nil
}

// isMeaningful accepts text with enough CJK characters, english words, or a
// reasonable ratio of content characters overall.
func isMeaningful(text string) bool {
	cjk := 0
	total := 0
	content := 0
	for _, r := range text {
		total++
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			cjk++
			content++
		} else if unicode.IsLetter(r) || unicode.IsDigit(r) {
			content++
		}
	}
	if cjk > 10 {
		return true
	}
	words := 0
	for _, w := range strings.Fields(text) {
		letters := 0
		for _, r := range w {
			if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
				letters++
			}
		}
		if letters >= 3 {
			words++
		}
	}
	if words > 5 {
		return true
	}
	return total > 0 && float64(content)/float64(total) > 0.3
}

// Split cuts text into chunks no longer than ChunkSize runes, overlapping
// by roughly ChunkOverlap runes.
func (s *Splitter) Split(text string) []string {
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return s.split(text, seps)
}

func (s *Splitter) split(text string, seps []string) []string {
	separator := ""
	var remaining []string
	for i, sp := range seps {
		if sp == "" {
			break
		}
		if strings.Contains(text, sp) {
			separator = sp
			remaining = seps[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		return s.hardSplit(text)
	}
	pieces = splitKeepSep(text, separator)

	var chunks []string
	var good []string
	for _, piece := range pieces {
		if runeLen(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			chunks = append(chunks, s.hardSplit(piece)...)
		} else {
			chunks = append(chunks, s.split(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge greedily packs pieces into chunks, carrying a tail window of
// pieces forward for overlap.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var cur []string
	curLen := 0
	for _, p := range pieces {
		pl := runeLen(p)
		if curLen+pl > s.ChunkSize && curLen > 0 {
			if c := strings.TrimSpace(strings.Join(cur, "")); c != "" {
				chunks = append(chunks, c)
			}
			for curLen > s.ChunkOverlap && len(cur) > 0 {
				curLen -= runeLen(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		curLen += pl
	}
	if c := strings.TrimSpace(strings.Join(cur, "")); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// hardSplit cuts by rune windows when no separator helps
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.ChunkOverlap
	if step <= 0 {
		step = s.ChunkSize
	}
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// splitKeepSep splits text by sep, keeping the separator attached to the
// preceding piece so sentence enders survive chunking.
func splitKeepSep(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// ChunkInfo summarizes a chunking pass for logs and telemetry
type ChunkInfo struct {
	Count    int `json:"count"`
	Total    int `json:"total_chars"`
	Avg      int `json:"avg_chars"`
	Min      int `json:"min_chars"`
	Max      int `json:"max_chars"`
}

func Info(chunks []string) ChunkInfo {
	info := ChunkInfo{Count: len(chunks)}
	for i, c := range chunks {
		n := runeLen(c)
		info.Total += n
		if i == 0 || n < info.Min {
			info.Min = n
		}
		if n > info.Max {
			info.Max = n
		}
	}
	if info.Count > 0 {
		info.Avg = info.Total / info.Count
	}
	return info
}
