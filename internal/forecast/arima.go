package forecast

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/features"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

// longARLag caps the stage-one autoregression used to proxy the innovation
// series (Hannan-Rissanen).
const longARLag = 10

// Fit estimates an ARIMAX(p,d,q) model over the target series with the given
// exogenous regressors via two-stage conditional least squares. Numerical
// failure (singular design, too few observations) returns a ModelError so the
// grid search can skip the candidate.
func Fit(y []float64, exog [][]float64, featureNames []string, order Order) (*ModelArtifact, error) {
	if len(y) != len(exog) {
		return nil, &domain.ModelError{Reason: "target and exogenous lengths differ"}
	}

	// Difference the target d times, remembering the last value at every
	// level so forecasts can be integrated back.
	w := append([]float64(nil), y...)
	tailY := make([]float64, 0, order.D)
	for k := 0; k < order.D; k++ {
		if len(w) < 2 {
			return nil, &domain.ModelError{Reason: "series too short to difference"}
		}
		tailY = append(tailY, w[len(w)-1])
		diffed := make([]float64, len(w)-1)
		for i := 1; i < len(w); i++ {
			diffed[i-1] = w[i] - w[i-1]
		}
		w = diffed
	}
	exogW := exog[order.D:]

	n := len(w)
	nExog := len(featureNames)
	k := 1 + order.P + order.Q + nExog

	// Stage one: long-AR residuals stand in for the unobservable innovations.
	resid := make([]float64, n)
	residStart := 0
	if order.Q > 0 {
		var err error
		resid, residStart, err = longARResiduals(w)
		if err != nil {
			return nil, err
		}
	}

	start := order.P
	if s := residStart + order.Q; order.Q > 0 && s > start {
		start = s
	}
	rows := n - start
	if rows <= k+2 {
		return nil, &domain.ModelError{Reason: "not enough observations for order " + order.String()}
	}

	X := mat.NewDense(rows, k, nil)
	Y := mat.NewVecDense(rows, nil)
	for t := start; t < n; t++ {
		r := t - start
		c := 0
		X.Set(r, c, 1)
		c++
		for i := 1; i <= order.P; i++ {
			X.Set(r, c, w[t-i])
			c++
		}
		for j := 1; j <= order.Q; j++ {
			X.Set(r, c, resid[t-j])
			c++
		}
		for e := 0; e < nExog; e++ {
			X.Set(r, c, exogW[t][e])
			c++
		}
		Y.SetVec(r, w[t])
	}

	beta, err := solveOLS(X, Y)
	if err != nil {
		return nil, err
	}

	// Residuals and fit statistics on the regression sample.
	fitted := mat.NewVecDense(rows, nil)
	fitted.MulVec(X, beta)
	rss := 0.0
	regResid := make([]float64, rows)
	for r := 0; r < rows; r++ {
		e := Y.AtVec(r) - fitted.AtVec(r)
		regResid[r] = e
		rss += e * e
	}
	if math.IsNaN(rss) || math.IsInf(rss, 0) {
		return nil, &domain.ModelError{Reason: "non-convergent fit for order " + order.String()}
	}
	nf := float64(rows)
	aic := nf*math.Log(math.Max(rss/nf, 1e-12)) + 2*float64(k)
	sigma := math.Sqrt(rss / math.Max(nf-float64(k), 1))

	coeffs := Coefficients{Intercept: beta.AtVec(0)}
	c := 1
	for i := 0; i < order.P; i++ {
		coeffs.AR = append(coeffs.AR, beta.AtVec(c))
		c++
	}
	for j := 0; j < order.Q; j++ {
		coeffs.MA = append(coeffs.MA, beta.AtVec(c))
		c++
	}
	for e := 0; e < nExog; e++ {
		coeffs.Exog = append(coeffs.Exog, beta.AtVec(c))
		c++
	}

	tailW := make([]float64, 0, order.P)
	for i := n - order.P; i < n; i++ {
		tailW = append(tailW, w[i])
	}
	tailResid := make([]float64, 0, order.Q)
	for j := rows - order.Q; j < rows; j++ {
		if j >= 0 {
			tailResid = append(tailResid, regResid[j])
		}
	}

	return &ModelArtifact{
		Order:     order,
		Target:    "Sales",
		Features:  featureNames,
		Coeffs:    coeffs,
		Sigma:     sigma,
		AIC:       aic,
		NObs:      rows,
		TailW:     tailW,
		TailResid: tailResid,
		TailY:     tailY,
	}, nil
}

// longARResiduals fits an AR(L) by least squares and returns its residuals,
// defined from index L onward.
func longARResiduals(w []float64) ([]float64, int, error) {
	n := len(w)
	l := longARLag
	if m := n / 4; m < l {
		l = m
	}
	if l < 1 {
		l = 1
	}
	rows := n - l
	if rows <= l+2 {
		return nil, 0, &domain.ModelError{Reason: "series too short for innovation proxy"}
	}

	X := mat.NewDense(rows, l+1, nil)
	Y := mat.NewVecDense(rows, nil)
	for t := l; t < n; t++ {
		r := t - l
		X.Set(r, 0, 1)
		for i := 1; i <= l; i++ {
			X.Set(r, i, w[t-i])
		}
		Y.SetVec(r, w[t])
	}
	beta, err := solveOLS(X, Y)
	if err != nil {
		return nil, 0, err
	}

	resid := make([]float64, n)
	for t := l; t < n; t++ {
		pred := beta.AtVec(0)
		for i := 1; i <= l; i++ {
			pred += beta.AtVec(i) * w[t-i]
		}
		resid[t] = w[t] - pred
	}
	return resid, l, nil
}

func solveOLS(X *mat.Dense, Y *mat.VecDense) (*mat.VecDense, error) {
	var qr mat.QR
	qr.Factorize(X)
	_, cols := X.Dims()
	beta := mat.NewVecDense(cols, nil)
	if err := qr.SolveVecTo(beta, false, Y); err == nil && finiteVec(beta) {
		return beta, nil
	}

	// Collinear or constant columns leave the QR factor rank deficient.
	// Re-solve the normal equations with a small ridge term instead of
	// rejecting the candidate.
	return solveRidge(X, Y)
}

const ridgeLambda = 1e-6

func solveRidge(X *mat.Dense, Y *mat.VecDense) (*mat.VecDense, error) {
	_, cols := X.Dims()

	var gram mat.Dense
	gram.Mul(X.T(), X)
	for i := 0; i < cols; i++ {
		gram.Set(i, i, gram.At(i, i)+ridgeLambda)
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), Y)

	beta := mat.NewVecDense(cols, nil)
	if err := beta.SolveVec(&gram, &xty); err != nil {
		return nil, &domain.ModelError{Reason: "singular design matrix: " + err.Error()}
	}
	if !finiteVec(beta) {
		return nil, &domain.ModelError{Reason: "non-finite coefficient estimate"}
	}
	return beta, nil
}

func finiteVec(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		if x := v.AtVec(i); math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// TrainedArimaForecaster wraps a persisted artifact and produces one forecast
// per feature row, iterating forward from the training tail state.
type TrainedArimaForecaster struct {
	artifact *ModelArtifact
}

func NewTrainedArimaForecaster(artifact *ModelArtifact) *TrainedArimaForecaster {
	return &TrainedArimaForecaster{artifact: artifact}
}

func (f *TrainedArimaForecaster) Name() string { return "arima" + f.artifact.Order.String() }

func (f *TrainedArimaForecaster) Artifact() *ModelArtifact { return f.artifact }

func (f *TrainedArimaForecaster) Forecast(rows []domain.FeatureRow) ([]Prediction, error) {
	a := f.artifact
	if err := checkFeatures(a.Features); err != nil {
		return nil, err
	}

	sel, err := featureSelector(a.Features)
	if err != nil {
		return nil, err
	}

	// Local copies of the tail state; forecasting must not mutate the model.
	wLags := append([]float64(nil), a.TailW...)
	eLags := append([]float64(nil), a.TailResid...)
	intTail := append([]float64(nil), a.TailY...)

	intervalOK := a.Sigma > 0 && !math.IsNaN(a.Sigma) && !math.IsInf(a.Sigma, 0)
	if !intervalOK {
		logger.Log.Warn().Msg("residual sigma not finite, returning point forecasts only")
	}

	preds := make([]Prediction, len(rows))
	for h, row := range rows {
		exog := sel(row)
		what := a.Coeffs.Intercept
		for i, phi := range a.Coeffs.AR {
			if idx := len(wLags) - 1 - i; idx >= 0 {
				what += phi * wLags[idx]
			}
		}
		for j, theta := range a.Coeffs.MA {
			if idx := len(eLags) - 1 - j; idx >= 0 {
				what += theta * eLags[idx]
			}
		}
		for e, b := range a.Coeffs.Exog {
			what += b * exog[e]
		}

		// Integrate back through each differencing level.
		point := what
		for k := len(intTail) - 1; k >= 0; k-- {
			point += intTail[k]
			intTail[k] = point
		}
		// Negative demand is not meaningful.
		if point < 0 {
			point = 0
		}

		p := Prediction{Point: point}
		if intervalOK {
			width := 1.96 * a.Sigma * math.Sqrt(float64(h+1))
			p.Lower = math.Max(0, point-width)
			p.Upper = point + width
			p.HasInterval = true
		}
		preds[h] = p

		// Future innovations are unknown; shift zero in.
		wLags = append(wLags, what)
		if len(wLags) > len(a.Coeffs.AR) && len(wLags) > 0 {
			wLags = wLags[1:]
		}
		if len(eLags) > 0 {
			eLags = append(eLags[1:], 0)
		}
	}

	return preds, nil
}

// featureSelector maps a FeatureRow onto the artifact's trained feature
// order.
func featureSelector(trained []string) (func(domain.FeatureRow) []float64, error) {
	canonical := features.Names()
	index := make(map[string]int, len(canonical))
	for i, name := range canonical {
		index[name] = i
	}
	idxs := make([]int, len(trained))
	var missing []string
	for i, name := range trained {
		pos, ok := index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		idxs[i] = pos
	}
	if len(missing) > 0 {
		return nil, &domain.ModelError{MissingFeatures: missing}
	}
	return func(r domain.FeatureRow) []float64 {
		vec := features.Vector(r)
		out := make([]float64, len(idxs))
		for i, pos := range idxs {
			out[i] = vec[pos]
		}
		return out
	}, nil
}
