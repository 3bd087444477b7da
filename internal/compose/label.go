package compose

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/pricetag/internal/catalog"
	"github.com/MeKo-Tech/pricetag/internal/common"
	"github.com/MeKo-Tech/pricetag/internal/pricing"
)

// Separator joins the labels of one page.
const Separator = " | "

// DefaultCurrency is printed before every price.
const DefaultCurrency = "R$"

// FormatLabel renders "<text> - <currency> <price>".
func FormatLabel(text, currency string, price int64) string {
	return fmt.Sprintf("%s - %s %d", text, currency, price)
}

// JoinLabels joins labels into the single-line form.
func JoinLabels(labels []string) string {
	return strings.Join(labels, Separator)
}

// SplitLabels undoes JoinLabels, dropping blank parts.
func SplitLabels(line string) []string {
	var out []string
	for _, part := range strings.Split(line, strings.TrimSpace(Separator)) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PageLabels builds the labels of one page from its matches, in match order.
// Matches whose code has no price are ignored; prices the rounding rule
// cannot represent are reported as skips.
func PageLabels(matches []catalog.Match, prices *pricing.PriceList, currency string) ([]string, []*common.SkipError) {
	var (
		labels []string
		skips  []*common.SkipError
	)
	for _, m := range matches {
		rec, ok := prices.Lookup(m.Code)
		if !ok {
			continue
		}
		rounded, err := pricing.RoundTo7(rec.Sale)
		if err != nil {
			skips = append(skips, common.Skip("compose", fmt.Sprintf("page %d code %s", m.Page+1, m.Code), err))
			continue
		}
		labels = append(labels, FormatLabel(m.Text, currency, rounded))
	}
	return labels, skips
}
