package compute

import (
	"fmt"
	"math"

	"statflow/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// descriptive summarizes each group. Statistic, PValue, and DF stay
// zero; the per-group standard errors and 95% confidence bounds land in
// Details keyed by label.
func (s *Service) descriptive(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	resp := &ports.ComputeResponse{
		Operation: ports.OpDescriptive,
		Groups:    summarize(req),
		Details:   map[string]float64{},
	}

	for i, g := range req.Groups {
		label := req.Labels[i]
		n := float64(len(g))
		sd := math.Sqrt(sampleVariance(g))
		se := sd / math.Sqrt(n)
		resp.Details["se_"+label] = se

		if len(g) > 1 {
			t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
			crit := t.Quantile(0.975)
			m := mean(g)
			resp.Details["ci95_lower_"+label] = m - crit*se
			resp.Details["ci95_upper_"+label] = m + crit*se
		}
	}
	return resp, nil
}

// summarize builds the shared per-group descriptive block
func summarize(req *ports.ComputeRequest) []ports.GroupSummary {
	out := make([]ports.GroupSummary, len(req.Groups))
	for i, g := range req.Groups {
		out[i] = ports.GroupSummary{
			Label:  req.Labels[i],
			N:      len(g),
			Mean:   mean(g),
			Std:    math.Sqrt(sampleVariance(g)),
			Min:    minOf(g),
			Max:    maxOf(g),
			Median: median(g),
		}
	}
	return out
}

// normality screens each group with the Jarque-Bera statistic
// n/6 * (g1^2 + g2^2/4), chi-squared with 2 degrees of freedom under
// the null. The response carries the worst (smallest p) group;
// Significant means at least one group deviates from normality.
func (s *Service) normality(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	chi2 := distuv.ChiSquared{K: 2}

	resp := &ports.ComputeResponse{
		Operation: ports.OpNormality,
		Groups:    summarize(req),
		Details:   map[string]float64{},
		PValue:    1,
		DF:        2,
	}

	allNormal := 1.0
	for i, g := range req.Groups {
		label := req.Labels[i]
		n := float64(len(g))
		g1 := skewness(g)
		g2 := excessKurtosis(g)
		jb := n / 6 * (g1*g1 + g2*g2/4)
		p := chi2.Survival(jb)

		resp.Details["skewness_"+label] = g1
		resp.Details["kurtosis_"+label] = g2
		resp.Details["statistic_"+label] = jb
		resp.Details["p_"+label] = p

		if p <= req.Alpha {
			allNormal = 0
		}
		if p < resp.PValue || i == 0 {
			resp.Statistic = jb
			resp.PValue = p
		}
	}
	resp.Details["all_normal"] = allNormal
	resp.Significant = resp.PValue < req.Alpha
	return resp, nil
}

// levene tests homogeneity of variance with median centering
// (Brown-Forsythe variant), which holds its level without a normality
// assumption
func (s *Service) levene(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	k := len(req.Groups)
	if k < 2 {
		return nil, fmt.Errorf("levene needs at least two groups: %w", errInsufficient(k))
	}

	// spread scores: absolute deviation from the group median
	z := make([][]float64, k)
	total := 0
	for i, g := range req.Groups {
		med := median(g)
		z[i] = make([]float64, len(g))
		for j, x := range g {
			z[i][j] = math.Abs(x - med)
		}
		total += len(g)
	}

	var grand float64
	for _, zi := range z {
		grand += mean(zi) * float64(len(zi))
	}
	grand /= float64(total)

	var between, within float64
	for _, zi := range z {
		mi := mean(zi)
		between += float64(len(zi)) * (mi - grand) * (mi - grand)
		for _, v := range zi {
			within += (v - mi) * (v - mi)
		}
	}

	df1 := float64(k - 1)
	df2 := float64(total - k)
	if within == 0 || df2 <= 0 {
		return nil, errInsufficient(total)
	}
	w := (df2 / df1) * (between / within)
	p := distuv.F{D1: df1, D2: df2}.Survival(w)

	return &ports.ComputeResponse{
		Operation:   ports.OpLevene,
		Statistic:   w,
		PValue:      p,
		DF:          df1,
		Significant: p < req.Alpha,
		Groups:      summarize(req),
		Details:     map[string]float64{"df1": df1, "df2": df2},
	}, nil
}
