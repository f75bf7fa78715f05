package forecast

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/salesbot/internal/domain"
	"github.com/andresuchdata/salesbot/internal/features"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

// Order is the ARIMA (p,d,q) triple.
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// Coefficients holds the fitted parameters of an ARIMAX model.
type Coefficients struct {
	Intercept float64   `json:"intercept"`
	AR        []float64 `json:"ar"`
	MA        []float64 `json:"ma"`
	Exog      []float64 `json:"exog"`
}

// ModelArtifact is the serialized model contract: the chosen order, the fitted
// coefficients, and the exact exogenous feature set present at train time.
// Inference requires that feature set to be present in full.
type ModelArtifact struct {
	Order     Order        `json:"order"`
	Target    string       `json:"target"`
	Features  []string     `json:"features"`
	Coeffs    Coefficients `json:"coefficients"`
	Sigma     float64      `json:"sigma"`
	AIC       float64      `json:"aic"`
	NObs      int          `json:"n_obs"`
	TailW     []float64    `json:"tail_w"`     // last p differenced values
	TailResid []float64    `json:"tail_resid"` // last q residuals
	TailY     []float64    `json:"tail_y"`     // last d levels, for integration
}

// Save overwrites the artifact at path as a JSON blob.
func (m *ModelArtifact) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadArtifact reads a persisted model artifact.
func LoadArtifact(path string) (*ModelArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m ModelArtifact
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m.Features) == 0 {
		return nil, fmt.Errorf("artifact %s has no trained feature list", path)
	}
	return &m, nil
}

// Prediction is a single point forecast with an optional 95% interval.
type Prediction struct {
	Point       float64
	Lower       float64
	Upper       float64
	HasInterval bool
}

// Forecaster produces one prediction per feature row. The two variants are
// selected explicitly at load time, never improvised at the call site.
type Forecaster interface {
	Name() string
	Forecast(rows []domain.FeatureRow) ([]Prediction, error)
}

// NaiveLastValueForecaster predicts the previous period's sales. Used when no
// trained artifact can be loaded.
type NaiveLastValueForecaster struct{}

func (NaiveLastValueForecaster) Name() string { return "naive_last_value" }

func (NaiveLastValueForecaster) Forecast(rows []domain.FeatureRow) ([]Prediction, error) {
	preds := make([]Prediction, len(rows))
	for i, r := range rows {
		preds[i] = Prediction{Point: r.SalesLag1}
	}
	return preds, nil
}

// LoadForecaster returns the trained forecaster when the artifact at path
// loads cleanly, otherwise the naive fallback. The choice is logged.
func LoadForecaster(path string) Forecaster {
	artifact, err := LoadArtifact(path)
	if err != nil {
		logger.Log.Warn().Err(err).Str("path", path).Msg("model artifact unavailable, using naive last-value forecaster")
		return NaiveLastValueForecaster{}
	}
	logger.Log.Info().Str("order", artifact.Order.String()).Str("path", path).Msg("loaded trained model")
	return &TrainedArimaForecaster{artifact: artifact}
}

// checkFeatures verifies the artifact's trained feature set is available,
// returning a ModelError naming the missing columns otherwise.
func checkFeatures(trained []string) error {
	available := make(map[string]struct{})
	for _, name := range features.Names() {
		available[name] = struct{}{}
	}
	var missing []string
	for _, name := range trained {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &domain.ModelError{MissingFeatures: missing}
	}
	return nil
}
