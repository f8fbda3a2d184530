package compute

import (
	"fmt"
	"math"

	"statflow/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// studentTTest runs the pooled-variance independent samples t-test for
// two groups, or a one-sample t-test against zero for a single group
func (s *Service) studentTTest(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	switch len(req.Groups) {
	case 1:
		return s.oneSampleTTest(req)
	case 2:
	default:
		return nil, fmt.Errorf("t-test takes one or two groups, got %d", len(req.Groups))
	}

	a, b := req.Groups[0], req.Groups[1]
	n1, n2 := float64(len(a)), float64(len(b))
	if len(a) < 2 || len(b) < 2 {
		return nil, errInsufficient(len(a) + len(b))
	}

	v1, v2 := sampleVariance(a), sampleVariance(b)
	df := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	if pooled == 0 {
		return nil, errInsufficient(len(a) + len(b))
	}

	t := (mean(a) - mean(b)) / math.Sqrt(pooled*(1/n1+1/n2))
	p := twoSidedT(t, df)

	return &ports.ComputeResponse{
		Operation:   ports.OpTTest,
		Statistic:   t,
		PValue:      p,
		DF:          df,
		Significant: p < req.Alpha,
		Groups:      summarize(req),
		Details:     map[string]float64{"cohens_d": cohensD(a, b)},
	}, nil
}

func (s *Service) oneSampleTTest(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	g := req.Groups[0]
	if len(g) < 2 {
		return nil, errInsufficient(len(g))
	}
	n := float64(len(g))
	sd := math.Sqrt(sampleVariance(g))
	if sd == 0 {
		return nil, errInsufficient(len(g))
	}

	t := mean(g) / (sd / math.Sqrt(n))
	df := n - 1
	p := twoSidedT(t, df)

	return &ports.ComputeResponse{
		Operation:   ports.OpTTest,
		Statistic:   t,
		PValue:      p,
		DF:          df,
		Significant: p < req.Alpha,
		Groups:      summarize(req),
		Details:     map[string]float64{"mu": 0},
	}, nil
}

// welch dispatches on group count: two groups get Welch's t-test with
// Satterthwaite degrees of freedom, three or more get Welch's ANOVA.
// Both drop the equal-variance assumption.
func (s *Service) welch(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	switch {
	case len(req.Groups) < 2:
		return nil, fmt.Errorf("welch needs at least two groups: %w", errInsufficient(len(req.Groups)))
	case len(req.Groups) == 2:
		return s.welchTTest(req)
	default:
		return s.welchANOVA(req)
	}
}

func (s *Service) welchTTest(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	a, b := req.Groups[0], req.Groups[1]
	if len(a) < 2 || len(b) < 2 {
		return nil, errInsufficient(len(a) + len(b))
	}
	n1, n2 := float64(len(a)), float64(len(b))
	v1, v2 := sampleVariance(a), sampleVariance(b)

	se2 := v1/n1 + v2/n2
	if se2 == 0 {
		return nil, errInsufficient(len(a) + len(b))
	}
	t := (mean(a) - mean(b)) / math.Sqrt(se2)
	df := se2 * se2 / (v1*v1/(n1*n1*(n1-1)) + v2*v2/(n2*n2*(n2-1)))
	p := twoSidedT(t, df)

	return &ports.ComputeResponse{
		Operation:   ports.OpWelch,
		Statistic:   t,
		PValue:      p,
		DF:          df,
		Significant: p < req.Alpha,
		Groups:      summarize(req),
		Details:     map[string]float64{"cohens_d": cohensD(a, b)},
	}, nil
}

// welchANOVA is the variance-weighted one-way comparison for k groups
func (s *Service) welchANOVA(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	k := len(req.Groups)
	weights := make([]float64, k)
	means := make([]float64, k)
	var sumW, sumWM float64

	for i, g := range req.Groups {
		if len(g) < 2 {
			return nil, errInsufficient(len(g))
		}
		v := sampleVariance(g)
		if v == 0 {
			return nil, errInsufficient(len(g))
		}
		weights[i] = float64(len(g)) / v
		means[i] = mean(g)
		sumW += weights[i]
		sumWM += weights[i] * means[i]
	}
	grand := sumWM / sumW

	var numerator float64
	for i := range weights {
		numerator += weights[i] * (means[i] - grand) * (means[i] - grand)
	}
	numerator /= float64(k - 1)

	var lambda float64
	for i, g := range req.Groups {
		n := float64(len(g))
		term := (1 - weights[i]/sumW) * (1 - weights[i]/sumW) / (n - 1)
		lambda += term
	}
	lambda *= 3 / float64(k*k-1)

	f := numerator / (1 + 2*lambda*float64(k-2)/3)
	df1 := float64(k - 1)
	df2 := 1 / lambda
	p := distuv.F{D1: df1, D2: df2}.Survival(f)

	return &ports.ComputeResponse{
		Operation:   ports.OpWelch,
		Statistic:   f,
		PValue:      p,
		DF:          df1,
		Significant: p < req.Alpha,
		Groups:      summarize(req),
		Details:     map[string]float64{"df1": df1, "df2": df2},
	}, nil
}

// twoSidedT converts a t statistic into a two-sided p-value
func twoSidedT(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

// cohensD is the pooled-standard-deviation effect size for two groups
func cohensD(a, b []float64) float64 {
	n1, n2 := float64(len(a)), float64(len(b))
	pooled := ((n1-1)*sampleVariance(a) + (n2-1)*sampleVariance(b)) / (n1 + n2 - 2)
	if pooled == 0 {
		return 0
	}
	return (mean(a) - mean(b)) / math.Sqrt(pooled)
}
