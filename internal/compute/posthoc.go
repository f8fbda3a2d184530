package compute

import (
	"fmt"
	"math"

	"statflow/domain/core"
	"statflow/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// postHoc runs pairwise comparisons after an omnibus test across three
// or more groups. The method follows the same assumption screens as
// auto-select: Tukey HSD on the ANOVA path, Games-Howell when variances
// differ, Dunn's test when normality fails. Every pair's p-value gets a
// Bonferroni adjustment over the number of pairs.
func (s *Service) postHoc(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	k := len(req.Groups)
	if k < 3 {
		return nil, fmt.Errorf("post-hoc needs at least 3 groups, got %d: %w", k, core.ErrInsufficientData)
	}
	for _, g := range req.Groups {
		if len(g) < 2 {
			return nil, errInsufficient(len(g))
		}
	}

	normality, err := s.normality(req)
	if err != nil {
		return nil, err
	}
	allNormal := normality.Details["all_normal"] == 1

	levene, err := s.levene(req)
	if err != nil {
		return nil, err
	}
	equalVariance := !levene.Significant

	var method string
	var compare func(i, j int) (p, lo, hi float64)
	switch {
	case allNormal && equalVariance:
		method = "Tukey HSD"
		mse := pooledMSE(req.Groups)
		compare = func(i, j int) (float64, float64, float64) {
			return tukeyPair(req.Groups[i], req.Groups[j], mse)
		}
	case allNormal:
		method = "Games-Howell"
		compare = func(i, j int) (float64, float64, float64) {
			return gamesHowellPair(req.Groups[i], req.Groups[j], req.Alpha)
		}
	default:
		method = "Dunn's test"
		meanRanks, total := groupMeanRanks(req.Groups)
		compare = func(i, j int) (float64, float64, float64) {
			p := dunnPair(meanRanks[i], meanRanks[j], len(req.Groups[i]), len(req.Groups[j]), total)
			return p, 0, 0
		}
	}

	pairs := float64(k*(k-1)) / 2
	comparisons := make([]ports.PairComparison, 0, int(pairs))
	anySignificant := false
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			p, lo, hi := compare(i, j)
			adjusted := math.Min(p*pairs, 1)
			significant := adjusted < req.Alpha
			if significant {
				anySignificant = true
			}
			comparisons = append(comparisons, ports.PairComparison{
				Group1:      req.Labels[i],
				Group2:      req.Labels[j],
				MeanDiff:    mean(req.Groups[i]) - mean(req.Groups[j]),
				PValue:      p,
				AdjustedP:   adjusted,
				Significant: significant,
				CILower:     lo,
				CIUpper:     hi,
			})
		}
	}

	return &ports.ComputeResponse{
		Operation:   ports.OpPostHoc,
		Method:      method,
		Significant: anySignificant,
		Groups:      summarize(req),
		Comparisons: comparisons,
		Details: map[string]float64{
			"all_normal":       normality.Details["all_normal"],
			"levene_p":         levene.PValue,
			"comparisons":      pairs,
			"bonferroni_alpha": req.Alpha / pairs,
		},
	}, nil
}

// pooledMSE is the ANOVA within-group mean square shared by every Tukey
// pair
func pooledMSE(groups [][]float64) float64 {
	sse, n := 0.0, 0
	for _, g := range groups {
		m := mean(g)
		for _, x := range g {
			d := x - m
			sse += d * d
		}
		n += len(g)
	}
	return sse / float64(n-len(groups))
}

// tukeyPair compares one pair against the pooled error. The studentized
// range p-value uses the normal approximation of q/sqrt(2); the interval
// uses the conventional q critical value of 3.5.
func tukeyPair(g1, g2 []float64, mse float64) (p, lo, hi float64) {
	n1, n2 := float64(len(g1)), float64(len(g2))
	diff := mean(g1) - mean(g2)
	se := math.Sqrt(mse * (1/n1 + 1/n2) / 2)
	if se == 0 {
		if diff == 0 {
			return 1, 0, 0
		}
		return 0, diff, diff
	}
	q := math.Abs(diff) / se
	p = distuv.Normal{Mu: 0, Sigma: 1}.Survival(q / math.Sqrt2)
	margin := 3.5 * se
	return p, diff - margin, diff + margin
}

// gamesHowellPair compares one pair with its own variances and
// Welch-Satterthwaite degrees of freedom
func gamesHowellPair(g1, g2 []float64, alpha float64) (p, lo, hi float64) {
	n1, n2 := float64(len(g1)), float64(len(g2))
	v1, v2 := sampleVariance(g1), sampleVariance(g2)
	diff := mean(g1) - mean(g2)

	se := math.Sqrt(v1/n1 + v2/n2)
	if se == 0 {
		if diff == 0 {
			return 1, 0, 0
		}
		return 0, diff, diff
	}

	t := math.Abs(diff) / se
	a, b := v1/n1, v2/n2
	df := (a + b) * (a + b) / (a*a/(n1-1) + b*b/(n2-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.Survival(t)
	margin := dist.Quantile(1-alpha/2) * se
	return p, diff - margin, diff + margin
}

// groupMeanRanks ranks the pooled sample once and returns each group's
// mean rank plus the pooled size
func groupMeanRanks(groups [][]float64) (meanRanks []float64, total int) {
	var pooled []float64
	for _, g := range groups {
		pooled = append(pooled, g...)
	}
	ranks, _ := rankData(pooled)

	meanRanks = make([]float64, len(groups))
	offset := 0
	for i, g := range groups {
		meanRanks[i] = mean(ranks[offset : offset+len(g)])
		offset += len(g)
	}
	return meanRanks, len(pooled)
}

// dunnPair is the z-test on mean rank difference under the pooled
// ranking
func dunnPair(r1, r2 float64, n1, n2, total int) float64 {
	nt := float64(total)
	se := math.Sqrt(nt * (nt + 1) / 12 * (1/float64(n1) + 1/float64(n2)))
	z := math.Abs(r1-r2) / se
	return 2 * distuv.Normal{Mu: 0, Sigma: 1}.Survival(z)
}
