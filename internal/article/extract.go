package article

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Content is the readable part of a page.
type Content struct {
	Title  string
	Byline *string
	Text   string
}

const untitled = "(untitled)"

// minExtractRunes is the length below which extraction is considered too
// thin and the page description is preferred when it is longer.
const minExtractRunes = 120

var (
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)

	mirrorTitle    = regexp.MustCompile(`(?i)^\s*title\s*:\s*(.+)$`)
	mirrorMetadata = regexp.MustCompile(`(?i)^\s*(url source|published time|markdown content)\s*:`)

	positiveHint = regexp.MustCompile(`(?i)(article|content|post|entry|story|main|body|text)`)
	negativeHint = regexp.MustCompile(`(?i)(comment|nav|footer|header|sidebar|menu|advert|promo|related|share|cookie|social|subscribe)`)
	bylineHint   = regexp.MustCompile(`(?i)(byline|author|writer)`)
)

const boilerplate = "script, style, noscript, header, footer, nav, aside, form, iframe"

// Extract pulls the title, byline and readable text out of an HTML page or
// a plain-text mirror response. The title is "(untitled)" when none is
// found; Text may be empty.
func Extract(body string) Content {
	body = controlChars.ReplaceAllString(body, "")
	if !strings.ContainsAny(body, "<>") {
		return extractPlain(body)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return extractPlain(body)
	}
	doc.Find(boilerplate).Remove()

	title := pageTitle(doc)
	container := bestContainer(doc)

	var byline *string
	by := container.Find("[class]").FilterFunction(hasBylineClass).First()
	if by.Length() == 0 {
		by = doc.Find("[class]").FilterFunction(hasBylineClass).First()
	}
	if t := flatText(by); t != "" {
		byline = &t
	}

	var blocks []string
	container.Find("p, h2, h3, li, blockquote").Each(func(_ int, el *goquery.Selection) {
		t := flatText(el)
		if t == "" {
			return
		}
		if name := goquery.NodeName(el); name != "h2" && name != "h3" && utf8.RuneCountInString(t) < 20 {
			return
		}
		blocks = append(blocks, t)
	})

	var text string
	if len(blocks) < 3 {
		text = strings.Join(textNodes(container), "\n")
	} else {
		text = strings.Join(blocks, "\n\n")
	}
	text = cleanText(text)

	if utf8.RuneCountInString(text) < minExtractRunes {
		desc := strings.TrimSpace(doc.Find(`meta[property="og:description"], meta[name="description"]`).First().AttrOr("content", ""))
		if utf8.RuneCountInString(desc) > utf8.RuneCountInString(text) {
			text = desc
		}
	}

	if title == "" {
		title = untitled
	}
	return Content{Title: title, Byline: byline, Text: text}
}

// extractPlain handles mirror output: a few "Key: value" metadata lines
// followed by the article text.
func extractPlain(body string) Content {
	lines := strings.Split(body, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}

	title := untitled
	for i := 0; i < len(lines) && i < 8; i++ {
		if m := mirrorTitle.FindStringSubmatch(lines[i]); m != nil {
			if t := strings.TrimSpace(m[1]); t != "" {
				title = t
			}
			lines[i] = ""
			break
		}
	}

	kept := lines[:0]
	for _, ln := range lines {
		if mirrorMetadata.MatchString(ln) {
			continue
		}
		kept = append(kept, ln)
	}
	return Content{Title: title, Text: cleanText(strings.Join(kept, "\n"))}
}

// pageTitle prefers the first h1, then og:title, then <title>.
func pageTitle(doc *goquery.Document) string {
	if t := flatText(doc.Find("h1").First()); t != "" {
		return t
	}
	og := doc.Find(`meta[property="og:title"], meta[name="og:title"]`).First()
	if t := strings.TrimSpace(og.AttrOr("content", "")); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// bestContainer picks the element most likely to hold the article body.
func bestContainer(doc *goquery.Document) *goquery.Selection {
	semantic := doc.Find("article").First()
	if semantic.Length() == 0 {
		semantic = doc.Find("main").First()
	}
	if semantic.Length() > 0 && containerScore(semantic) >= 5 {
		return semantic
	}

	var best *goquery.Selection
	bestScore := math.Inf(-1)
	doc.Find("article, main, section, div").Each(func(_ int, s *goquery.Selection) {
		if sc := containerScore(s); sc > bestScore {
			best, bestScore = s, sc
		}
	})

	body := doc.Find("body").First()
	if body.Length() == 0 {
		body = doc.Selection
	}
	if best == nil || bestScore < 3 {
		return body
	}
	return best
}

// containerScore rewards paragraph mass and article-like markup and
// penalizes navigation and link-heavy blocks.
func containerScore(s *goquery.Selection) float64 {
	var paraLen, longParas int
	s.Find("p").Each(func(_ int, p *goquery.Selection) {
		n := utf8.RuneCountInString(flatText(p))
		paraLen += n
		if n >= 40 {
			longParas++
		}
	})

	score := float64(paraLen)/100 + float64(longParas)*2
	switch goquery.NodeName(s) {
	case "article", "main":
		score += 10
	}
	ident := strings.ToLower(s.AttrOr("class", "") + " " + s.AttrOr("id", ""))
	if positiveHint.MatchString(ident) {
		score += 6
	}
	if negativeHint.MatchString(ident) {
		score -= 8
	}
	return score * math.Max(0.1, 1-linkDensity(s))
}

func linkDensity(s *goquery.Selection) float64 {
	n := utf8.RuneCountInString(flatText(s))
	if n == 0 {
		return 1
	}
	var links []string
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		links = append(links, flatText(a))
	})
	linkLen := utf8.RuneCountInString(strings.Join(links, " "))
	return math.Min(1, float64(linkLen)/float64(n))
}

func hasBylineClass(_ int, s *goquery.Selection) bool {
	return bylineHint.MatchString(s.AttrOr("class", ""))
}

// flatText is the selection's text with whitespace runs collapsed.
func flatText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

// textNodes returns the trimmed, non-empty text nodes under s in document
// order.
func textNodes(s *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return out
}

func cleanText(text string) string {
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
