package metrics

import (
	"sort"

	dto "github.com/prometheus/client_model/go"
)

// SeriesTotal is what one label tuple has recorded so far.
type SeriesTotal struct {
	Labels       Labels
	Requests     uint64
	Observations uint64
	DurationSum  float64
}

// Summary aggregates the request families of a gathered registry.
type Summary struct {
	Requests uint64
	Series   []SeriesTotal
}

// Summarize folds the request counter and duration histogram of namespace
// into per-series totals, busiest series first.
func Summarize(families []*dto.MetricFamily, namespace string) Summary {
	counterName := namespace + "_" + requestsTotalName
	histogramName := namespace + "_" + requestDurationName

	series := make(map[Labels]*SeriesTotal)
	get := func(m *dto.Metric) *SeriesTotal {
		l := labelsOf(m)
		st, ok := series[l]
		if !ok {
			st = &SeriesTotal{Labels: l}
			series[l] = st
		}
		return st
	}

	var summary Summary
	for _, mf := range families {
		switch mf.GetName() {
		case counterName:
			for _, m := range mf.GetMetric() {
				n := uint64(m.GetCounter().GetValue())
				get(m).Requests += n
				summary.Requests += n
			}
		case histogramName:
			for _, m := range mf.GetMetric() {
				st := get(m)
				st.Observations += m.GetHistogram().GetSampleCount()
				st.DurationSum += m.GetHistogram().GetSampleSum()
			}
		}
	}

	summary.Series = make([]SeriesTotal, 0, len(series))
	for _, st := range series {
		summary.Series = append(summary.Series, *st)
	}
	sort.Slice(summary.Series, func(i, j int) bool {
		a, b := summary.Series[i], summary.Series[j]
		if a.Requests != b.Requests {
			return a.Requests > b.Requests
		}
		if a.Labels.Endpoint != b.Labels.Endpoint {
			return a.Labels.Endpoint < b.Labels.Endpoint
		}
		if a.Labels.Method != b.Labels.Method {
			return a.Labels.Method < b.Labels.Method
		}
		return a.Labels.Status < b.Labels.Status
	})

	return summary
}

func labelsOf(m *dto.Metric) Labels {
	var l Labels
	for _, lp := range m.GetLabel() {
		switch lp.GetName() {
		case "endpoint":
			l.Endpoint = lp.GetValue()
		case "method":
			l.Method = lp.GetValue()
		case "status":
			l.Status = lp.GetValue()
		}
	}
	return l
}
