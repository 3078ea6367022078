package newsfetch

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const sampleNewsHTML = `
<html><body>
<article>
  <h3>Apple beats earnings expectations</h3>
  <div data-n-tid="9">Reuters</div>
  <span>Shares rose in after-hours trading</span>
</article>
<article>
  <h4>iPhone demand steady in Q3</h4>
  <div data-n-tid="9">Bloomberg</div>
  <span>Analysts remain split</span>
</article>
<article>
  <div>no headline element here</div>
</article>
<article>
  <h3>Services revenue hits record</h3>
  <div data-n-tid="9">CNBC</div>
  <span>Margin expansion continues</span>
</article>
</body></html>`

func parseTestDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleNewsHTML))
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	return doc
}

func TestParseArticles(t *testing.T) {
	items := parseArticles(parseTestDoc(t), 10)

	if len(items) != 3 {
		t.Fatalf("len = %d, want 3 (headline-less article skipped)", len(items))
	}
	if items[0].Title != "Apple beats earnings expectations" {
		t.Errorf("title = %q", items[0].Title)
	}
	if items[0].Source != "Reuters" {
		t.Errorf("source = %q", items[0].Source)
	}
	if items[1].Title != "iPhone demand steady in Q3" {
		t.Errorf("h4 fallback title = %q", items[1].Title)
	}
}

func TestParseArticlesRespectsLimit(t *testing.T) {
	items := parseArticles(parseTestDoc(t), 2)
	if len(items) != 2 {
		t.Errorf("len = %d, want limit 2", len(items))
	}
}

func TestParseArticlesEmptyDoc(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	if items := parseArticles(doc, 5); len(items) != 0 {
		t.Errorf("items = %v, want none", items)
	}
}
