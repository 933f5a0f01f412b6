package stats

import (
	"fmt"
	"math"
	"sort"

	"SignalBench/internal/model"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestResult is the outcome of one significance test.
type TestResult struct {
	Name       string  `json:"name"`
	Statistic  float64 `json:"statistic"`
	PValue     float64 `json:"p_value"`
	Computable bool    `json:"computable"`
	Reason     string  `json:"reason,omitempty"`
}

// Significant reports whether the test was computable and p < alpha.
func (t TestResult) Significant(alpha float64) bool {
	return t.Computable && t.PValue < alpha
}

func notComputable(name, reason string) TestResult {
	return TestResult{Name: name, Computable: false, Reason: reason}
}

// EffectSize is Cohen's d with a conventional magnitude label.
type EffectSize struct {
	D          float64 `json:"d"`
	Magnitude  string  `json:"magnitude"`
	Computable bool    `json:"computable"`
	Reason     string  `json:"reason,omitempty"`
}

// Comparison holds every pairwise test between two trade samples.
type Comparison struct {
	LabelA    string     `json:"label_a"`
	LabelB    string     `json:"label_b"`
	NA        int        `json:"n_a"`
	NB        int        `json:"n_b"`
	MeanA     float64    `json:"mean_a"`
	MeanB     float64    `json:"mean_b"`
	WinRateA  float64    `json:"win_rate_a"`
	WinRateB  float64    `json:"win_rate_b"`
	TTest     TestResult `json:"t_test"`
	RankSum   TestResult `json:"rank_sum"`
	ChiSquare TestResult `json:"chi_square"`
	CohensD   EffectSize `json:"cohens_d"`
}

// Compare runs every test on two experiments' pooled trades. Experiments sampled with a
// different methodology are rejected with model.ErrIncomparable.
func Compare(a, b *model.ExperimentResult) (*Comparison, error) {
	if !a.Comparable(b) {
		return nil, fmt.Errorf("%w: runs %d/%d, sample size %d/%d",
			model.ErrIncomparable, a.Runs, b.Runs, a.SampleSize, b.SampleSize)
	}
	return CompareTrades(a.Label, a.Trades, b.Label, b.Trades), nil
}

// CompareTrades runs every test on two trade samples.
func CompareTrades(labelA string, a []model.Trade, labelB string, b []model.Trade) *Comparison {
	pa, pb := pnls(a), pnls(b)
	wa, wb := wins(a), wins(b)
	c := &Comparison{
		LabelA:    labelA,
		LabelB:    labelB,
		NA:        len(a),
		NB:        len(b),
		WinRateA:  WinRate(wa, len(a)),
		WinRateB:  WinRate(wb, len(b)),
		TTest:     WelchTTest(pa, pb),
		RankSum:   RankSum(pa, pb),
		ChiSquare: ChiSquare(wa, len(a)-wa, wb, len(b)-wb),
		CohensD:   CohensD(pa, pb),
	}
	if len(pa) > 0 {
		c.MeanA = stat.Mean(pa, nil)
	}
	if len(pb) > 0 {
		c.MeanB = stat.Mean(pb, nil)
	}
	return c
}

func pnls(trades []model.Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.PnLPct
	}
	return out
}

func wins(trades []model.Trade) int {
	n := 0
	for _, t := range trades {
		if t.Win() {
			n++
		}
	}
	return n
}

// WelchTTest is the two-sided unequal-variance t-test on the sample means.
func WelchTTest(a, b []float64) TestResult {
	const name = "welch_t"
	if len(a) < 2 || len(b) < 2 {
		return notComputable(name, "need at least two observations per sample")
	}
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))
	sa, sb := va/na, vb/nb
	se := math.Sqrt(sa + sb)
	if se == 0 || math.IsNaN(se) {
		return notComputable(name, "zero variance in both samples")
	}
	t := (ma - mb) / se
	df := (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	return TestResult{Name: name, Statistic: t, PValue: clampP(p), Computable: true}
}

// RankSum is the two-sided Mann-Whitney U test using the normal approximation with tie
// and continuity corrections. Statistic is U for sample a.
func RankSum(a, b []float64) TestResult {
	const name = "mann_whitney_u"
	if len(a) == 0 || len(b) == 0 {
		return notComputable(name, "empty sample")
	}
	type obs struct {
		v     float64
		fromA bool
	}
	all := make([]obs, 0, len(a)+len(b))
	for _, v := range a {
		all = append(all, obs{v, true})
	}
	for _, v := range b {
		all = append(all, obs{v, false})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].v < all[j].v })

	n := float64(len(all))
	var rankSumA, tieTerm float64
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		rank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if all[k].fromA {
				rankSumA += rank
			}
		}
		t := float64(j - i)
		tieTerm += t*t*t - t
		i = j
	}

	n1, n2 := float64(len(a)), float64(len(b))
	u := rankSumA - n1*(n1+1)/2
	mu := n1 * n2 / 2
	variance := n1 * n2 / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if n < 2 || variance <= 0 {
		return notComputable(name, "all observations tied")
	}
	diff := math.Abs(u-mu) - 0.5
	if diff < 0 {
		diff = 0
	}
	z := diff / math.Sqrt(variance)
	p := 2 * (1 - distuv.UnitNormal.CDF(z))
	return TestResult{Name: name, Statistic: u, PValue: clampP(p), Computable: true}
}

// ChiSquare is Pearson's chi-square test of independence on the 2x2 win/loss table.
func ChiSquare(winsA, lossesA, winsB, lossesB int) TestResult {
	const name = "chi_square"
	obs := [2][2]float64{
		{float64(winsA), float64(lossesA)},
		{float64(winsB), float64(lossesB)},
	}
	rows := [2]float64{obs[0][0] + obs[0][1], obs[1][0] + obs[1][1]}
	cols := [2]float64{obs[0][0] + obs[1][0], obs[0][1] + obs[1][1]}
	total := rows[0] + rows[1]
	if rows[0] == 0 || rows[1] == 0 {
		return notComputable(name, "a sample has no trades")
	}
	if cols[0] == 0 || cols[1] == 0 {
		return notComputable(name, "no variation in outcome")
	}
	var chi float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			e := rows[i] * cols[j] / total
			d := obs[i][j] - e
			chi += d * d / e
		}
	}
	p := 1 - distuv.ChiSquared{K: 1}.CDF(chi)
	return TestResult{Name: name, Statistic: chi, PValue: clampP(p), Computable: true}
}

// CohensD is the standardized mean difference using the pooled sample standard deviation.
func CohensD(a, b []float64) EffectSize {
	if len(a) < 2 || len(b) < 2 {
		return EffectSize{Reason: "need at least two observations per sample"}
	}
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))
	pooled := math.Sqrt(((na-1)*va + (nb-1)*vb) / (na + nb - 2))
	if pooled == 0 || math.IsNaN(pooled) {
		return EffectSize{Reason: "zero pooled variance"}
	}
	d := (ma - mb) / pooled
	return EffectSize{D: d, Magnitude: magnitude(d), Computable: true}
}

func magnitude(d float64) string {
	switch ad := math.Abs(d); {
	case ad < 0.2:
		return "negligible"
	case ad < 0.5:
		return "small"
	case ad < 0.8:
		return "medium"
	default:
		return "large"
	}
}

func clampP(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
