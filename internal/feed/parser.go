package feed

import (
	"regexp"
	"strings"

	"github.com/ozgund/readbox/internal/models"
)

// Parser extracts normalized items from raw RSS 2.0 and Atom documents.
// It works by targeted tag and attribute matching rather than structural
// XML parsing, which keeps it tolerant of the half-broken markup
// real-world feeds serve: stray namespaces, unclosed elements outside the
// blocks we care about, servers lying about content types.
type Parser struct {
	channelRe   *regexp.Regexp
	itemRe      *regexp.Regexp
	itemOpenRe  *regexp.Regexp
	entryRe     *regexp.Regexp
	entryOpenRe *regexp.Regexp

	linkTagRe    *regexp.Regexp
	mediaThumbRe *regexp.Regexp
	mediaContRe  *regexp.Regexp
	enclosureRe  *regexp.Regexp

	cdataRe *regexp.Regexp
	tagRe   map[string]*regexp.Regexp
	attrRe  map[string]*regexp.Regexp
}

// tags the parser ever extracts text content from
var contentTags = []string{
	"title", "link", "description", "pubDate",
	"summary", "content", "published", "updated", "subtitle",
}

// attributes the parser ever reads off a single tag
var tagAttrs = []string{"url", "type", "medium", "href", "rel"}

func NewParser() *Parser {
	p := &Parser{
		channelRe:   regexp.MustCompile(`(?is)<channel(?:\s[^>]*)?>.*?</channel\s*>`),
		itemRe:      regexp.MustCompile(`(?is)<item(?:\s[^>]*)?>.*?</item\s*>`),
		itemOpenRe:  regexp.MustCompile(`(?i)<item[\s>]`),
		entryRe:     regexp.MustCompile(`(?is)<entry(?:\s[^>]*)?>.*?</entry\s*>`),
		entryOpenRe: regexp.MustCompile(`(?i)<entry[\s>]`),

		linkTagRe:    regexp.MustCompile(`(?is)<link\b[^>]*>`),
		mediaThumbRe: regexp.MustCompile(`(?is)<media:thumbnail\b[^>]*>`),
		mediaContRe:  regexp.MustCompile(`(?is)<media:content\b[^>]*>`),
		enclosureRe:  regexp.MustCompile(`(?is)<enclosure\b[^>]*>`),

		cdataRe: regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`),
		tagRe:   make(map[string]*regexp.Regexp, len(contentTags)),
		attrRe:  make(map[string]*regexp.Regexp, len(tagAttrs)),
	}
	for _, tag := range contentTags {
		p.tagRe[tag] = regexp.MustCompile(`(?is)<` + tag + `(?:\s[^>]*)?>(.*?)</` + tag + `\s*>`)
	}
	for _, attr := range tagAttrs {
		p.attrRe[attr] = regexp.MustCompile(`(?i)\b` + attr + `\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	}
	return p
}

// ParseItems extracts all items from a raw feed document, preserving
// document order. RSS 2.0 is tried first; Atom only when RSS yields
// nothing. An empty result is not an error: an empty feed is a valid feed.
func (p *Parser) ParseItems(doc string) []models.FeedItem {
	if items := p.parseRSS(doc); len(items) > 0 {
		return items
	}
	return p.parseAtom(doc)
}

// ParseInfo applies the channel-title rule used at feed registration: a
// document is a feed only if it carries a non-empty channel title (RSS) or
// top-level title (Atom). Anything else is ErrNotAFeed.
func (p *Parser) ParseInfo(doc string) (models.FeedInfo, error) {
	if channel := p.channelRe.FindString(doc); channel != "" {
		// Only look above the first item so an item's title can never
		// stand in for a missing channel title. An RSS-shaped document
		// without a channel title fails outright rather than being
		// retried as Atom.
		head := channel
		if loc := p.itemOpenRe.FindStringIndex(channel); loc != nil {
			head = channel[:loc[0]]
		}
		title := p.clean(p.tagContent(head, "title"))
		if title == "" {
			return models.FeedInfo{}, models.ErrNotAFeed
		}
		return models.FeedInfo{
			Title:       title,
			Description: p.clean(p.tagContent(head, "description")),
		}, nil
	}

	head := doc
	if loc := p.entryOpenRe.FindStringIndex(doc); loc != nil {
		head = doc[:loc[0]]
	}
	if title := p.clean(p.tagContent(head, "title")); title != "" {
		return models.FeedInfo{
			Title:       title,
			Description: p.clean(p.tagContent(head, "subtitle")),
		}, nil
	}

	return models.FeedInfo{}, models.ErrNotAFeed
}

func (p *Parser) parseRSS(doc string) []models.FeedItem {
	channel := p.channelRe.FindString(doc)
	if channel == "" {
		return nil
	}

	blocks := p.itemRe.FindAllString(channel, -1)
	items := make([]models.FeedItem, 0, len(blocks))
	for _, block := range blocks {
		items = append(items, models.FeedItem{
			Title:       p.clean(p.tagContent(block, "title")),
			Link:        p.clean(p.tagContent(block, "link")),
			Description: p.clean(p.tagContent(block, "description")),
			PublishedAt: p.clean(p.tagContent(block, "pubDate")),
			Thumbnail:   p.thumbnail(block),
		})
	}
	return items
}

func (p *Parser) parseAtom(doc string) []models.FeedItem {
	blocks := p.entryRe.FindAllString(doc, -1)
	items := make([]models.FeedItem, 0, len(blocks))
	for _, block := range blocks {
		description := p.clean(p.tagContent(block, "summary"))
		if description == "" {
			description = p.clean(p.tagContent(block, "content"))
		}

		published := p.clean(p.tagContent(block, "published"))
		if published == "" {
			published = p.clean(p.tagContent(block, "updated"))
		}

		items = append(items, models.FeedItem{
			Title:       p.clean(p.tagContent(block, "title")),
			Link:        p.entryLink(block),
			Description: description,
			PublishedAt: published,
			Thumbnail:   p.thumbnail(block),
		})
	}
	return items
}

// entryLink returns the href of an Atom entry's <link> element. Atom links
// live in attributes, not text content. When an entry carries several
// links, rel="alternate" (or no rel, which means the same thing) is the
// permalink; rel="self"/"edit" and friends are not.
func (p *Parser) entryLink(block string) string {
	fallback := ""
	for _, tag := range p.linkTagRe.FindAllString(block, -1) {
		href := p.attrValue(tag, "href")
		if href == "" {
			continue
		}
		rel := strings.ToLower(p.attrValue(tag, "rel"))
		if rel == "" || rel == "alternate" {
			return href
		}
		if fallback == "" {
			fallback = href
		}
	}
	return fallback
}

// thumbnail applies the three-tier heuristic shared by RSS and Atom:
// media:thumbnail wins, then a media:content that declares itself an
// image, then an enclosure with an image content type.
func (p *Parser) thumbnail(block string) string {
	if tag := p.mediaThumbRe.FindString(block); tag != "" {
		if url := p.attrValue(tag, "url"); url != "" {
			return url
		}
	}

	for _, tag := range p.mediaContRe.FindAllString(block, -1) {
		typ := strings.ToLower(p.attrValue(tag, "type"))
		medium := strings.ToLower(p.attrValue(tag, "medium"))
		if strings.Contains(typ, "image") || medium == "image" {
			if url := p.attrValue(tag, "url"); url != "" {
				return url
			}
		}
	}

	for _, tag := range p.enclosureRe.FindAllString(block, -1) {
		if strings.Contains(strings.ToLower(p.attrValue(tag, "type")), "image") {
			if url := p.attrValue(tag, "url"); url != "" {
				return url
			}
		}
	}

	return ""
}

// tagContent returns the raw text between <tag> and </tag> in block, or ""
func (p *Parser) tagContent(block, tag string) string {
	m := p.tagRe[tag].FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return m[1]
}

// attrValue returns the value of a single- or double-quoted attribute
func (p *Parser) attrValue(tag, attr string) string {
	m := p.attrRe[attr].FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// clean strips CDATA wrappers and surrounding whitespace
func (p *Parser) clean(s string) string {
	s = p.cdataRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
