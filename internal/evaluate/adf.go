package evaluate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/andresuchdata/salesbot/internal/domain"
)

// ADFResult holds the augmented Dickey-Fuller test output.
type ADFResult struct {
	Statistic      float64            `json:"statistic"`
	PValue         float64            `json:"p_value"`
	UsedLag        int                `json:"used_lag"`
	NObs           int                `json:"n_obs"`
	CriticalValues map[string]float64 `json:"critical_values"`
}

// MacKinnon large-sample critical values for the constant-only case.
var adfCriticalValues = map[string]float64{
	"1%":  -3.43,
	"5%":  -2.86,
	"10%": -2.57,
}

// ADFTest runs the augmented Dickey-Fuller regression with a constant term,
// selecting the lag order by AIC up to the Schwert bound. The p-value is a
// piecewise-linear interpolation over the tabulated critical values, clamped
// at the extremes.
func ADFTest(series []float64) (*ADFResult, error) {
	n := len(series)
	if n < 12 {
		return nil, &domain.DataError{Stage: "adf", Reason: "series too short for stationarity test"}
	}

	maxLag := int(math.Floor(12 * math.Pow(float64(n)/100, 0.25)))
	if maxLag > n/2-2 {
		maxLag = n/2 - 2
	}
	if maxLag < 0 {
		maxLag = 0
	}

	bestAIC := math.Inf(1)
	var best *ADFResult
	for lag := 0; lag <= maxLag; lag++ {
		res, aic, err := adfRegression(series, lag)
		if err != nil {
			continue
		}
		if aic < bestAIC {
			bestAIC = aic
			best = res
		}
	}
	if best == nil {
		return nil, &domain.ModelError{Reason: "stationarity regression failed for every lag"}
	}
	return best, nil
}

func adfRegression(y []float64, lag int) (*ADFResult, float64, error) {
	n := len(y)
	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = y[i] - y[i-1]
	}

	// Rows: t = lag+1 .. len(diff)-1 over the differenced index.
	rows := len(diff) - lag
	k := 2 + lag // constant, level term, lagged differences
	if rows <= k+1 {
		return nil, 0, &domain.DataError{Stage: "adf", Reason: "not enough observations"}
	}

	X := mat.NewDense(rows, k, nil)
	Y := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := r + lag
		X.Set(r, 0, 1)
		X.Set(r, 1, y[t]) // y_{t-1} relative to diff[t]
		for j := 1; j <= lag; j++ {
			X.Set(r, 1+j, diff[t-j])
		}
		Y.SetVec(r, diff[t])
	}

	var qr mat.QR
	qr.Factorize(X)
	beta := mat.NewVecDense(k, nil)
	if err := qr.SolveVecTo(beta, false, Y); err != nil {
		return nil, 0, err
	}

	fitted := mat.NewVecDense(rows, nil)
	fitted.MulVec(X, beta)
	rss := 0.0
	for r := 0; r < rows; r++ {
		e := Y.AtVec(r) - fitted.AtVec(r)
		rss += e * e
	}
	sigma2 := rss / float64(rows-k)

	// Standard error of the level coefficient from (X'X)^{-1}.
	var gram, gramInv mat.Dense
	gram.Mul(X.T(), X)
	if err := gramInv.Inverse(&gram); err != nil {
		return nil, 0, err
	}
	se := math.Sqrt(sigma2 * gramInv.At(1, 1))
	if se == 0 || math.IsNaN(se) {
		return nil, 0, &domain.ModelError{Reason: "degenerate stationarity regression"}
	}

	stat := beta.AtVec(1) / se
	aic := float64(rows)*math.Log(math.Max(rss/float64(rows), 1e-12)) + 2*float64(k)

	return &ADFResult{
		Statistic:      stat,
		PValue:         adfPValue(stat),
		UsedLag:        lag,
		NObs:           rows,
		CriticalValues: adfCriticalValues,
	}, aic, nil
}

// adfPValue interpolates the test statistic against the tabulated critical
// values. An approximation, but monotone and adequate for reporting.
func adfPValue(stat float64) float64 {
	type point struct{ stat, p float64 }
	pts := []point{
		{-3.43, 0.01},
		{-2.86, 0.05},
		{-2.57, 0.10},
	}
	switch {
	case stat <= pts[0].stat:
		return 0.01 * math.Exp(stat-pts[0].stat)
	case stat >= pts[2].stat:
		p := 0.10 + (stat-pts[2].stat)*0.15
		return math.Min(p, 0.99)
	case stat <= pts[1].stat:
		frac := (stat - pts[0].stat) / (pts[1].stat - pts[0].stat)
		return pts[0].p + frac*(pts[1].p-pts[0].p)
	default:
		frac := (stat - pts[1].stat) / (pts[2].stat - pts[1].stat)
		return pts[1].p + frac*(pts[2].p-pts[1].p)
	}
}
