package training

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ClassMetrics holds precision, recall and F1 for one label
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ClassificationReport is the evaluation of predictions on a held-out set
type ClassificationReport struct {
	Accuracy    float64        `json:"accuracy"`
	Classes     []ClassMetrics `json:"classes"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Total       int            `json:"total"`
}

// Evaluate compares predicted labels to truth. Labels appearing in either
// slice are reported; a metric with an empty denominator is 0.
func Evaluate(truth, predicted []string) *ClassificationReport {
	labels := slices.Concat(truth, predicted)
	slices.Sort(labels)
	labels = slices.Compact(labels)

	report := &ClassificationReport{Total: len(truth)}
	if len(truth) == 0 {
		return report
	}

	truePositive := make(map[string]int)
	predictedCount := make(map[string]int)
	support := make(map[string]int)
	correct := 0

	for i, want := range truth {
		got := predicted[i]
		support[want]++
		predictedCount[got]++
		if got == want {
			truePositive[want]++
			correct++
		}
	}
	report.Accuracy = float64(correct) / float64(len(truth))

	var precisions, recalls, f1s, weights []float64
	for _, label := range labels {
		m := ClassMetrics{
			Label:     label,
			Precision: ratio(truePositive[label], predictedCount[label]),
			Recall:    ratio(truePositive[label], support[label]),
			Support:   support[label],
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.Classes = append(report.Classes, m)

		precisions = append(precisions, m.Precision)
		recalls = append(recalls, m.Recall)
		f1s = append(f1s, m.F1)
		weights = append(weights, float64(m.Support))
	}

	report.MacroAvg = ClassMetrics{
		Label:     "macro avg",
		Precision: stat.Mean(precisions, nil),
		Recall:    stat.Mean(recalls, nil),
		F1:        stat.Mean(f1s, nil),
		Support:   len(truth),
	}
	report.WeightedAvg = ClassMetrics{
		Label:     "weighted avg",
		Precision: stat.Mean(precisions, weights),
		Recall:    stat.Mean(recalls, weights),
		F1:        stat.Mean(f1s, weights),
		Support:   len(truth),
	}

	return report
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
