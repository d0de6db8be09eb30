package textsplit

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestValidateContent(t *testing.T) {
	cases := []struct {
		name string
		text string
		want error
	}{
		{"empty", "   \n ", ErrEmptyContent},
		{"short", "too short", ErrContentShort},
		{"large", strings.Repeat("皮卡丘是电属性宝可梦。", MaxContentBytes/20), ErrContentLarge},
		{"symbols", strings.Repeat("-*# ", 50), ErrNotMeaningful},
		{"chinese", strings.Repeat("皮卡丘是一种电属性的宝可梦，拥有十万伏特。", 10), nil},
		{"english", strings.Repeat("Pikachu is an electric type pokemon with thunderbolt. ", 10), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateContent(tc.text); got != tc.want {
				t.Fatalf("ValidateContent(%s) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestAutoParams(t *testing.T) {
	cases := []struct {
		textLen, size, overlap int
	}{
		{500, 500, 50},
		{3000, 1000, 100},
		{10000, 1500, 150},
		{50000, 2000, 200},
	}
	for _, tc := range cases {
		size, overlap := AutoParams(tc.textLen)
		if size != tc.size || overlap != tc.overlap {
			t.Errorf("AutoParams(%d) = (%d, %d), want (%d, %d)", tc.textLen, size, overlap, tc.size, tc.overlap)
		}
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := New(100, 20)
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("Pikachu stores electricity in its cheeks. ")
	}
	chunks := s.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 150 {
			t.Errorf("chunk %d too long: %d runes", i, n)
		}
	}
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	s := New(60, 0)
	text := strings.Repeat("a", 50) + "\n\n" + strings.Repeat("b", 50)
	chunks := s.Split(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if !strings.Contains(chunks[0], "a") || !strings.Contains(chunks[1], "b") {
		t.Fatalf("paragraphs not kept separate: %q", chunks)
	}
}

func TestSplitChineseSentences(t *testing.T) {
	s := New(30, 5)
	text := strings.Repeat("皮卡丘是电属性宝可梦。它的特性是静电。进化自皮丘。", 5)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 45 {
			t.Errorf("chunk %d too long: %d runes", i, n)
		}
	}
}

func TestHardSplitNoSeparators(t *testing.T) {
	s := New(10, 2)
	text := strings.Repeat("x", 35)
	chunks := s.Split(text)
	if len(chunks) < 4 {
		t.Fatalf("expected rune-window chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 10 {
			t.Fatalf("hard split chunk over size: %q", c)
		}
	}
}

func TestInfo(t *testing.T) {
	info := Info([]string{"abcde", "ab", "abcdefghij"})
	if info.Count != 3 || info.Total != 17 || info.Min != 2 || info.Max != 10 || info.Avg != 5 {
		t.Fatalf("unexpected info: %+v", info)
	}
	empty := Info(nil)
	if empty.Count != 0 || empty.Avg != 0 {
		t.Fatalf("unexpected empty info: %+v", empty)
	}
}
