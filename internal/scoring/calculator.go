// Package scoring turns a resolved settings container, a task's call metrics,
// and its dictionary match results into a normalized 0..100 score.
package scoring

import (
	"log/slog"
	"math"

	"callscore/internal/config"
	"callscore/internal/logging"
	"callscore/internal/store"
)

// ItemScore is the per-criterion breakdown behind an aggregate score.
type ItemScore struct {
	Item         store.ResolvedItem
	Satisfaction float64
}

// Result is the outcome of scoring one settings container for one task.
// Score is nil when the container carries zero total weight: absence of
// configuration is not zero quality.
type Result struct {
	Score *int
	Items []ItemScore
}

// Calculator evaluates settings containers against task inputs. Thresholds
// for the numeric criteria come from configuration, not constants.
type Calculator struct {
	thresholds config.Scoring
	logger     *slog.Logger
}

// NewCalculator builds a Calculator with the given thresholds.
func NewCalculator(thresholds config.Scoring, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Calculator{thresholds: thresholds, logger: logger}
}

// Score evaluates one container. matches maps dictionary id to whether its
// phrases were found in the transcript. Missing inputs never block: an item
// whose inputs are absent counts as unsatisfied and the condition is logged.
func (c *Calculator) Score(settings *store.ResolvedSettings, metrics *store.CallMetrics, matches map[int64]bool) Result {
	weightSum := settings.WeightSum()
	items := make([]ItemScore, 0, len(settings.Items))

	var weighted float64
	for _, item := range settings.Items {
		satisfaction := c.satisfaction(settings, item, metrics, matches)
		weighted += satisfaction * float64(item.ScoreWeight)
		items = append(items, ItemScore{Item: item, Satisfaction: satisfaction})
	}

	if weightSum == 0 {
		return Result{Items: items}
	}

	score := int(math.Round(100 * weighted / float64(weightSum)))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return Result{Score: &score, Items: items}
}

func (c *Calculator) satisfaction(settings *store.ResolvedSettings, item store.ResolvedItem, metrics *store.CallMetrics, matches map[int64]bool) float64 {
	if item.Kind.DictionaryDriven() {
		return c.dictionarySatisfaction(settings, item, matches)
	}

	if metrics == nil {
		c.logger.Warn("call metrics missing, counting criterion as unsatisfied",
			slog.String(logging.FieldProjectID, settings.ProjectID),
			slog.String("item", item.Name),
			slog.String("kind", string(item.Kind)))
		return 0
	}

	switch item.Kind {
	case store.ItemSpeechRateRatio:
		return ratioSatisfaction(c.thresholds.SpeechRateRatio, metrics.EmployeeClientSpeechRatio)
	case store.ItemCallHolds:
		return countSatisfaction(c.thresholds.CallHolds, metrics.CallHoldsCount)
	case store.ItemSilencePauses:
		return countSatisfaction(c.thresholds.SilencePauses, metrics.SilencePauseCount)
	case store.ItemInterruptions:
		return countSatisfaction(c.thresholds.Interruptions, metrics.ClientInterruptionsCount)
	default:
		return 0
	}
}

// dictionarySatisfaction applies conjunctive polarity logic: every bound
// dictionary must independently satisfy its polarity for the item to hold.
// There is no partial credit across bindings, and a match result that never
// arrived counts against the item.
func (c *Calculator) dictionarySatisfaction(settings *store.ResolvedSettings, item store.ResolvedItem, matches map[int64]bool) float64 {
	if len(item.Bindings) == 0 {
		c.logger.Warn("dictionary criterion has no bindings, counting as unsatisfied",
			slog.String(logging.FieldProjectID, settings.ProjectID),
			slog.String("item", item.Name))
		return 0
	}

	for _, binding := range item.Bindings {
		found, ok := matches[binding.DictionaryID]
		if !ok {
			c.logger.Warn("dictionary match result missing, counting criterion as unsatisfied",
				slog.String(logging.FieldProjectID, settings.ProjectID),
				slog.String("item", item.Name),
				slog.Int64(logging.FieldDictionaryID, binding.DictionaryID))
			return 0
		}
		if found != binding.Contains {
			return 0
		}
	}
	return 1
}

// countSatisfaction maps an occurrence count onto 0..1: full credit at or
// below FullAt, none at or above ZeroAt, linear in between.
func countSatisfaction(band config.CountBand, count int) float64 {
	switch {
	case count <= band.FullAt:
		return 1
	case count >= band.ZeroAt:
		return 0
	default:
		return float64(band.ZeroAt-count) / float64(band.ZeroAt-band.FullAt)
	}
}

// ratioSatisfaction maps a percentage ratio onto 0..1 via a trapezoid: full
// credit inside [FullLow, FullHigh], none outside [ZeroBelow, ZeroAbove],
// linear on the shoulders.
func ratioSatisfaction(band config.RatioBand, ratio float64) float64 {
	switch {
	case ratio >= band.FullLow && ratio <= band.FullHigh:
		return 1
	case ratio <= band.ZeroBelow || ratio >= band.ZeroAbove:
		return 0
	case ratio < band.FullLow:
		return (ratio - band.ZeroBelow) / (band.FullLow - band.ZeroBelow)
	default:
		return (band.ZeroAbove - ratio) / (band.ZeroAbove - band.FullHigh)
	}
}
