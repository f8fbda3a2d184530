package compute

import (
	"statflow/ports"
)

// autoSelect picks the appropriate test for the request and runs it.
// Selection follows the assumption screens: with two or more normal
// groups and equal variances the parametric test applies (t-test or
// ANOVA); normal groups with unequal variances get the Welch variant;
// non-normal data falls back to the rank test (Mann-Whitney U or
// Kruskal-Wallis). A single group always gets the one-sample t-test.
func (s *Service) autoSelect(req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	if len(req.Groups) == 1 {
		return s.selected(req, ports.OpTTest)
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

	var op ports.Operation
	if len(req.Groups) == 2 {
		switch {
		case allNormal && equalVariance:
			op = ports.OpTTest
		case allNormal:
			op = ports.OpWelch
		default:
			op = ports.OpMannWhitney
		}
	} else {
		switch {
		case allNormal && equalVariance:
			op = ports.OpANOVA
		case allNormal:
			op = ports.OpWelch
		default:
			op = ports.OpKruskal
		}
	}

	resp, err := s.selected(req, op)
	if err != nil {
		return nil, err
	}
	resp.Details["all_normal"] = normality.Details["all_normal"]
	resp.Details["levene_p"] = levene.PValue
	return resp, nil
}

// selected runs op and rewrites the response as an auto-select outcome
func (s *Service) selected(req *ports.ComputeRequest, op ports.Operation) (*ports.ComputeResponse, error) {
	resp, err := s.handlers[op](req)
	if err != nil {
		return nil, err
	}
	resp.SelectedTest = op
	resp.Operation = ports.OpAutoSelect
	if resp.Details == nil {
		resp.Details = map[string]float64{}
	}
	return resp, nil
}
