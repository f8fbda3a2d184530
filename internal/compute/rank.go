package compute

import (
	"fmt"
	"math"

	"statflow/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// mannWhitney runs the two-sided Mann-Whitney U test with the
// tie-corrected normal approximation and continuity correction. The
// statistic is U for the first group.
func (s *Service) mannWhitney(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	if len(req.Groups) != 2 {
		return nil, fmt.Errorf("mann-whitney takes exactly two groups, got %d", len(req.Groups))
	}
	a, b := req.Groups[0], req.Groups[1]
	n1, n2 := float64(len(a)), float64(len(b))

	combined := make([]float64, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	ranks, tieSum := rankData(combined)

	var r1 float64
	for i := 0; i < len(a); i++ {
		r1 += ranks[i]
	}
	u1 := r1 - n1*(n1+1)/2

	n := n1 + n2
	mu := n1 * n2 / 2
	variance := n1 * n2 / 12 * (n + 1 - tieSum/(n*(n-1)))
	if variance == 0 {
		return nil, errInsufficient(int(n))
	}

	// continuity correction toward the mean
	z := (u1 - mu)
	switch {
	case z > 0:
		z -= 0.5
	case z < 0:
		z += 0.5
	}
	z /= math.Sqrt(variance)
	p := 2 * distuv.Normal{Mu: 0, Sigma: 1}.Survival(math.Abs(z))
	if p > 1 {
		p = 1
	}

	// rank-biserial effect size r = 1 - 2U/(n1*n2)
	rb := 1 - 2*u1/(n1*n2)

	return &ports.ComputeResponse{
		Operation:   ports.OpMannWhitney,
		Statistic:   u1,
		PValue:      p,
		Significant: p < req.Alpha,
		Groups:      summarize(req),
		Details:     map[string]float64{"z": z, "rank_biserial": rb},
	}, nil
}

// anova is the classic one-way fixed-effects F test
func (s *Service) anova(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	k := len(req.Groups)
	if k < 2 {
		return nil, fmt.Errorf("anova needs at least two groups: %w", errInsufficient(k))
	}

	total := 0
	var grandSum float64
	for _, g := range req.Groups {
		total += len(g)
		for _, x := range g {
			grandSum += x
		}
	}
	grand := grandSum / float64(total)

	var ssBetween, ssWithin float64
	for _, g := range req.Groups {
		m := mean(g)
		ssBetween += float64(len(g)) * (m - grand) * (m - grand)
		for _, x := range g {
			ssWithin += (x - m) * (x - m)
		}
	}

	df1 := float64(k - 1)
	df2 := float64(total - k)
	if ssWithin == 0 || df2 <= 0 {
		return nil, errInsufficient(total)
	}

	f := (ssBetween / df1) / (ssWithin / df2)
	p := distuv.F{D1: df1, D2: df2}.Survival(f)

	return &ports.ComputeResponse{
		Operation:   ports.OpANOVA,
		Statistic:   f,
		PValue:      p,
		DF:          df1,
		Significant: p < req.Alpha,
		Groups:      summarize(req),
		Details: map[string]float64{
			"df1":         df1,
			"df2":         df2,
			"eta_squared": ssBetween / (ssBetween + ssWithin),
		},
	}, nil
}

// kruskalWallis is the rank-based k-group test with tie correction,
// chi-squared approximated with k-1 degrees of freedom
func (s *Service) kruskalWallis(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	k := len(req.Groups)
	if k < 2 {
		return nil, fmt.Errorf("kruskal-wallis needs at least two groups: %w", errInsufficient(k))
	}

	total := 0
	for _, g := range req.Groups {
		total += len(g)
	}
	combined := make([]float64, 0, total)
	for _, g := range req.Groups {
		combined = append(combined, g...)
	}
	ranks, tieSum := rankData(combined)

	n := float64(total)
	var h float64
	offset := 0
	for _, g := range req.Groups {
		var ri float64
		for j := 0; j < len(g); j++ {
			ri += ranks[offset+j]
		}
		h += ri * ri / float64(len(g))
		offset += len(g)
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	// tie correction
	correction := 1 - tieSum/(n*n*n-n)
	if correction == 0 {
		return nil, errInsufficient(total)
	}
	h /= correction

	df := float64(k - 1)
	p := distuv.ChiSquared{K: df}.Survival(h)

	// epsilon squared effect size
	eps := h * (n + 1) / (n * n - 1)

	return &ports.ComputeResponse{
		Operation:   ports.OpKruskal,
		Statistic:   h,
		PValue:      p,
		DF:          df,
		Significant: p < req.Alpha,
		Groups:      summarize(req),
		Details:     map[string]float64{"epsilon_squared": eps},
	}, nil
}
