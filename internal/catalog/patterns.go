// Package catalog finds product codes in the text of catalog pages.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CodeLength is the number of digits in a product code.
const CodeLength = 5

// FallbackCategory names matches found by the generic code pattern.
const FallbackCategory = "generic"

// Category pairs a keyword printed before product codes with the category
// it names. Accented spellings are separate entries.
type Category struct {
	Keyword string `mapstructure:"keyword" yaml:"keyword" json:"keyword"`
	Name    string `mapstructure:"name" yaml:"name" json:"name"`
}

// DefaultCategories is the keyword list in priority order.
var DefaultCategories = []Category{
	{Keyword: "CONJUNTO", Name: "conjunto"},
	{Keyword: "BERMUDA", Name: "bermuda"},
	{Keyword: "CAMISA", Name: "camisa"},
	{Keyword: "CAMISETA", Name: "camiseta"},
	{Keyword: "BONE", Name: "bone"},
	{Keyword: "BONÉ", Name: "bone"},
	{Keyword: "BLUSA", Name: "blusa"},
	{Keyword: "SAIA", Name: "saia"},
	{Keyword: "VESTIDO", Name: "vestido"},
	{Keyword: "MACACÃO", Name: "macacao"},
	{Keyword: "JAQUETA", Name: "jaqueta"},
	{Keyword: "BODY", Name: "body"},
	{Keyword: "CALÇA", Name: "calca"},
	{Keyword: "LENÇO", Name: "lenco"},
	{Keyword: "ÓCULOS", Name: "oculos"},
}

// Pattern is one compiled entry of the ordered pattern list.
type Pattern struct {
	Priority int
	Category string
	re       *regexp.Regexp
}

// Patterns is the ordered category pattern list plus the generic fallback.
type Patterns struct {
	categories []Pattern
	fallback   Pattern
}

// Whitespace between keyword and code also accepts no-break spaces.
const gap = `[\s\p{Zs}]+`

// Compile builds the pattern list. Keywords match case-insensitively and
// must be followed by whitespace and exactly CodeLength digits.
func Compile(categories []Category) (*Patterns, error) {
	p := &Patterns{categories: make([]Pattern, 0, len(categories))}
	for i, c := range categories {
		kw := strings.TrimSpace(norm.NFC.String(c.Keyword))
		if kw == "" {
			return nil, fmt.Errorf("category %d: empty keyword", i)
		}
		name := c.Name
		if name == "" {
			name = strings.ToLower(kw)
		}
		re, err := regexp.Compile(fmt.Sprintf(`(?i)%s%s(\d{%d})`, regexp.QuoteMeta(kw), gap, CodeLength))
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Keyword, err)
		}
		p.categories = append(p.categories, Pattern{Priority: i, Category: name, re: re})
	}
	p.fallback = Pattern{
		Priority: len(categories),
		Category: FallbackCategory,
		re:       regexp.MustCompile(fmt.Sprintf(`\b(\d{%d})\b`, CodeLength)),
	}
	return p, nil
}

// MustCompile is Compile for static lists.
func MustCompile(categories []Category) *Patterns {
	p, err := Compile(categories)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of category patterns.
func (p *Patterns) Len() int {
	return len(p.categories)
}

// Match collects the code matches of one page. Every category pattern is
// applied in priority order and all of their matches are kept; the generic
// pattern runs only when none of them matched.
func (p *Patterns) Match(page int, text string) []Match {
	text = norm.NFC.String(text)

	var matches []Match
	for _, pat := range p.categories {
		matches = append(matches, pat.find(page, text, false)...)
	}
	if len(matches) > 0 {
		return matches
	}
	return p.fallback.find(page, text, true)
}

func (pat Pattern) find(page int, text string, fallback bool) []Match {
	var out []Match
	for _, loc := range pat.re.FindAllStringSubmatchIndex(text, -1) {
		code := text[loc[2]:loc[3]]
		if !isCode(code) {
			continue
		}
		full := text[loc[0]:loc[1]]
		if fallback {
			full = code
		}
		out = append(out, Match{
			Page:     page,
			Code:     code,
			Text:     collapseSpace(full),
			Priority: pat.Priority,
			Category: pat.Category,
			Fallback: fallback,
		})
	}
	return out
}

func isCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// collapseSpace turns the keyword/code gap (possibly a line break) into one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
