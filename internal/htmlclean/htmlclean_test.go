package htmlclean

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>皮卡丘 - 宝可梦图鉴</title><script>alert("x")</script></head>
<body>
<nav><a href="/home">Home</a></nav>
<div class="sidebar">ignore me</div>
<div id="ad-top">buy stuff</div>
<h1>皮卡丘</h1>
<p>皮卡丘是电属性宝可梦，全国图鉴编号025。</p>
<p>它的特性是<a href="/ability/static">静电</a>。</p>
<table><tr><td>HP</td><td>35</td></tr></table>
<ul><li>十万伏特</li><li>电光一闪</li></ul>
<img src="/img/pikachu.png" alt="pikachu">
<footer>copyright</footer>
</body>
</html>`

func TestCleanStripsNoise(t *testing.T) {
	doc, err := Clean(samplePage, "https://wiki.example.com/pokemon/25")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc.Text, "alert") {
		t.Error("script content leaked into text")
	}
	if strings.Contains(doc.Text, "Home") {
		t.Error("nav content leaked into text")
	}
	if strings.Contains(doc.Text, "ignore me") {
		t.Error("sidebar class content leaked into text")
	}
	if strings.Contains(doc.Text, "buy stuff") {
		t.Error("ad id content leaked into text")
	}
	if strings.Contains(doc.Text, "copyright") {
		t.Error("footer content leaked into text")
	}
	if !strings.Contains(doc.Text, "皮卡丘是电属性宝可梦") {
		t.Errorf("main content missing from text: %q", doc.Text)
	}
}

func TestCleanExtractsStructure(t *testing.T) {
	doc, err := Clean(samplePage, "https://wiki.example.com/pokemon/25")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "皮卡丘 - 宝可梦图鉴" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Structure.Headings) != 1 || doc.Structure.Headings[0].Level != 1 {
		t.Errorf("headings = %+v", doc.Structure.Headings)
	}
	if doc.Structure.Paragraphs != 2 {
		t.Errorf("paragraphs = %d, want 2", doc.Structure.Paragraphs)
	}
	if !doc.Structure.HasTables || !doc.Structure.HasLists {
		t.Errorf("tables/lists not detected: %+v", doc.Structure)
	}
}

func TestCleanResolvesRelativeURLs(t *testing.T) {
	doc, err := Clean(samplePage, "https://wiki.example.com/pokemon/25")
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, l := range doc.Links {
		if l.URL == "https://wiki.example.com/ability/static" {
			found = true
		}
	}
	if !found {
		t.Errorf("relative link not resolved: %+v", doc.Links)
	}
	if len(doc.Images) != 1 || doc.Images[0].URL != "https://wiki.example.com/img/pikachu.png" {
		t.Errorf("images = %+v", doc.Images)
	}
}

func TestQuality(t *testing.T) {
	doc, err := Clean(samplePage, "")
	if err != nil {
		t.Fatal(err)
	}
	score, _ := doc.Quality()
	// title + headings + paragraphs present, text under 500 bytes
	if score != 70 {
		t.Errorf("score = %d, want 70", score)
	}

	bare, err := Clean("<html><body><span>hi</span></body></html>", "")
	if err != nil {
		t.Fatal(err)
	}
	score, recs := bare.Quality()
	if score != 0 {
		t.Errorf("bare score = %d, want 0", score)
	}
	if len(recs) != 4 {
		t.Errorf("expected 4 recommendations, got %v", recs)
	}
}
