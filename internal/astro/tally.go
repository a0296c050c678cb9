package astro

import (
	"github.com/shopspring/decimal"

	"github.com/irfndi/astro-snapshot-go/internal/models"
)

// TallyElements folds body weights into the element of each body's sign.
func TallyElements(positions map[models.Body]models.BodyPosition) models.Tally {
	categories := make([]string, len(models.Elements))
	for i, e := range models.Elements {
		categories[i] = string(e)
	}
	return tally(positions, categories, func(s models.ZodiacSign) string {
		return string(s.Element())
	})
}

// TallyModalities folds body weights into the modality of each body's sign.
func TallyModalities(positions map[models.Body]models.BodyPosition) models.Tally {
	categories := make([]string, len(models.Modalities))
	for i, m := range models.Modalities {
		categories[i] = string(m)
	}
	return tally(positions, categories, func(s models.ZodiacSign) string {
		return string(s.Modality())
	})
}

func tally(positions map[models.Body]models.BodyPosition, categories []string, classify func(models.ZodiacSign) string) models.Tally {
	counts := make(map[string]int, len(categories))
	for _, c := range categories {
		counts[c] = 0
	}

	total := 0
	for _, body := range models.Bodies {
		pos := mustPosition(positions, body)
		counts[classify(pos.Sign)] += body.Weight()
		total += body.Weight()
	}

	return models.Tally{
		Counts:      counts,
		Percentages: Percentages(counts, total),
		Total:       total,
	}
}

// Percentages rounds 100*count/total for each category on its own, half away
// from zero. The results are not rebalanced, so they can sum to 99-101.
func Percentages(counts map[string]int, total int) map[string]int {
	out := make(map[string]int, len(counts))
	if total <= 0 {
		for k := range counts {
			out[k] = 0
		}
		return out
	}
	denominator := decimal.NewFromInt(int64(total))
	hundred := decimal.NewFromInt(100)
	for k, v := range counts {
		pct := decimal.NewFromInt(int64(v)).Mul(hundred).Div(denominator).Round(0)
		out[k] = int(pct.IntPart())
	}
	return out
}
