// Package scoring holds the PROART score arithmetic: weighted averages grouped by
// scale or factor, and the threshold tables that classify a score.
package scoring

// QuestionStat is the aggregate result of a single survey question.
type QuestionStat struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Factor  string  `json:"factor"`
	Scale   string  `json:"scale"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// GroupAggregate is the weighted average of every QuestionStat sharing a key.
type GroupAggregate struct {
	Key             string  `json:"key"`
	WeightedAverage float64 `json:"weightedAverage"`
	Count           int     `json:"count"`
}

// ScaleAggregate is the weighted average of all questions of one scale.
type ScaleAggregate struct {
	Scale           string  `json:"scale"`
	WeightedAverage float64 `json:"weightedAverage"`
	Count           int     `json:"count"`
}

// KeyFunc selects the grouping key of a question.
type KeyFunc func(QuestionStat) string

type accumulator struct {
	sum   float64
	count int
}

func (a accumulator) average() float64 {
	return a.sum / float64(max(1, a.count))
}

// AggregateBy groups stats by key and returns one aggregate per distinct key in
// first-seen order. Input is not validated: negative counts or out-of-range averages
// flow into the arithmetic as-is. A group whose counts sum to zero reports 0.
func AggregateBy(stats []QuestionStat, key KeyFunc) []GroupAggregate {
	order := make([]string, 0)
	acc := make(map[string]*accumulator)

	for _, q := range stats {
		k := key(q)
		a, ok := acc[k]
		if !ok {
			a = &accumulator{}
			acc[k] = a
			order = append(order, k)
		}
		a.sum += q.Average * float64(q.Count)
		a.count += q.Count
	}

	out := make([]GroupAggregate, 0, len(order))
	for _, k := range order {
		a := acc[k]
		out = append(out, GroupAggregate{
			Key:             k,
			WeightedAverage: a.average(),
			Count:           a.count,
		})
	}
	return out
}

// AggregateByScale returns the weighted average of each scale in first-seen order.
func AggregateByScale(stats []QuestionStat) []ScaleAggregate {
	groups := AggregateBy(stats, func(q QuestionStat) string { return q.Scale })
	out := make([]ScaleAggregate, len(groups))
	for i, g := range groups {
		out[i] = ScaleAggregate{Scale: g.Key, WeightedAverage: g.WeightedAverage, Count: g.Count}
	}
	return out
}

// AggregateByFactor returns the weighted average of each factor in first-seen order.
func AggregateByFactor(stats []QuestionStat) []GroupAggregate {
	return AggregateBy(stats, func(q QuestionStat) string { return q.Factor })
}

// OverallAverage is the weighted average across every question, and the total
// number of answers behind it.
func OverallAverage(stats []QuestionStat) (float64, int) {
	var a accumulator
	for _, q := range stats {
		a.sum += q.Average * float64(q.Count)
		a.count += q.Count
	}
	return a.average(), a.count
}
