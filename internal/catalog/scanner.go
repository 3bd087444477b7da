package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/pricetag/internal/common"
)

// Match is one occurrence of a product code on a page.
type Match struct {
	Page int    `json:"page" yaml:"page"`
	Code string `json:"code" yaml:"code"`
	// Text is the matched phrase, keyword included ("BONE 82969").
	Text     string `json:"text" yaml:"text"`
	Priority int    `json:"priority" yaml:"priority"`
	Category string `json:"category" yaml:"category"`
	Fallback bool   `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// TextSource yields the embedded text of a document page by 0-based index.
type TextSource interface {
	NumPages() int
	PageText(index int) (string, error)
}

// Result is the outcome of scanning a whole document.
type Result struct {
	Matches []Match
	Pages   int
	Skipped []*common.SkipError
}

// ByPage groups matches by page index, keeping their order.
func (r *Result) ByPage() map[int][]Match {
	out := make(map[int][]Match)
	for _, m := range r.Matches {
		out[m.Page] = append(out[m.Page], m)
	}
	return out
}

// Scanner applies a pattern list to every page of a document.
type Scanner struct {
	patterns *Patterns
	logger   *slog.Logger
}

// NewScanner creates a scanner. A nil logger uses slog.Default().
func NewScanner(patterns *Patterns, logger *slog.Logger) *Scanner {
	if patterns == nil {
		patterns = MustCompile(DefaultCategories)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{patterns: patterns, logger: logger}
}

// Scan extracts the text of every page and collects code matches. A page
// whose text cannot be extracted contributes no matches.
func (s *Scanner) Scan(ctx context.Context, src TextSource, progress common.ProgressFunc) (*Result, error) {
	total := src.NumPages()
	outcomes := make([]common.Outcome[[]Match], 0, total)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Report(fmt.Sprintf("Scanning codes on page %d of %d...", i+1, total), common.Step(i, total))
		outcomes = append(outcomes, s.scanPage(src, i))
	}

	pages, skips := common.Partition(outcomes)
	res := &Result{Pages: total, Skipped: skips}
	for _, m := range pages {
		res.Matches = append(res.Matches, m...)
	}

	common.LogSkips(s.logger, skips)
	s.logger.Info("catalog scanned", "pages", total, "matches", len(res.Matches), "skipped_pages", len(skips))
	return res, nil
}

func (s *Scanner) scanPage(src TextSource, index int) (o common.Outcome[[]Match]) {
	item := fmt.Sprintf("page %d", index+1)
	defer func() {
		if r := recover(); r != nil {
			o = common.Skipped[[]Match](common.Skip("scan", item, fmt.Errorf("text extraction panicked: %v", r)))
		}
	}()

	text, err := src.PageText(index)
	if err != nil {
		return common.Skipped[[]Match](common.Skip("scan", item, err))
	}
	matches := s.patterns.Match(index, text)
	s.logger.Debug("page scanned", "page", index+1, "matches", len(matches))
	return common.Ok(matches)
}
