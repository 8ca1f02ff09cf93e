package market

import "slices"

// Opportunity score weights and thresholds.
const (
	TrendingPoints = 40

	LowCapThreshold = 1e8
	LowCapPoints    = 40
	MidCapThreshold = 1e9
	MidCapPoints    = 20

	StrongMomentumThreshold = 10.0
	StrongMomentumPoints    = 20
	MomentumPoints          = 10

	HighScore   = 70
	MediumScore = 40

	// DefaultOpportunityLimit caps the ranked list.
	DefaultOpportunityLimit = 50
)

// Score labels.
const (
	LabelHigh   = "High"
	LabelMedium = "Medium"
	LabelLow    = "Low"
)

// Signals attached to an opportunity. Only the top bucket of a criterion
// emits its signal.
const (
	SignalTrending = "trending"
	SignalLowCap   = "low_cap"
	SignalMomentum = "momentum"
)

// IDSet is a set of coin ids.
type IDSet map[string]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// TrendingIDs collects the ids of the trending coins.
func TrendingIDs(coins []TrendingCoin) IDSet {
	ids := make(IDSet, len(coins))
	for _, c := range coins {
		ids[c.Item.ID] = struct{}{}
	}
	return ids
}

// Opportunity is a coin with its score, label and the signals that scored.
type Opportunity struct {
	Coin
	Score   int      `json:"score"`
	Label   string   `json:"label"`
	Signals []string `json:"signals"`
}

// Score computes the opportunity score of coin. Missing market cap and 7-day
// change count as 0.
func Score(coin Coin, trending IDSet) int {
	score, _ := scoreWithSignals(coin, trending)
	return score
}

func scoreWithSignals(coin Coin, trending IDSet) (int, []string) {
	score := 0
	signals := make([]string, 0, 3)

	if trending.Has(coin.ID) {
		score += TrendingPoints
		signals = append(signals, SignalTrending)
	}

	switch mcap := num(coin.MarketCap); {
	case mcap < LowCapThreshold:
		score += LowCapPoints
		signals = append(signals, SignalLowCap)
	case mcap < MidCapThreshold:
		score += MidCapPoints
	}

	switch mom := num(coin.PriceChangePercentage7dInCurrency); {
	case mom > StrongMomentumThreshold:
		score += StrongMomentumPoints
		signals = append(signals, SignalMomentum)
	case mom > 0:
		score += MomentumPoints
	}

	return score, signals
}

// Label maps a score to High (>= 70), Medium (>= 40) or Low.
func Label(score int) string {
	switch {
	case score >= HighScore:
		return LabelHigh
	case score >= MediumScore:
		return LabelMedium
	default:
		return LabelLow
	}
}

// Opportunities scores every coin, drops zero scores and returns at most
// limit coins ordered by score descending. Equal scores keep input order.
// A limit <= 0 means DefaultOpportunityLimit.
func Opportunities(coins []Coin, trending IDSet, limit int) []Opportunity {
	if limit <= 0 {
		limit = DefaultOpportunityLimit
	}

	scored := make([]Opportunity, 0, len(coins))
	for _, c := range coins {
		score, signals := scoreWithSignals(c, trending)
		if score <= 0 {
			continue
		}
		scored = append(scored, Opportunity{
			Coin:    c,
			Score:   score,
			Label:   Label(score),
			Signals: signals,
		})
	}

	slices.SortStableFunc(scored, func(a, b Opportunity) int {
		return b.Score - a.Score
	})

	return Head(scored, limit)
}
