package regressor

import (
	"math"
	"math/rand"

	"github.com/handwerkml/pricing-backend/internal/ml/features"
	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
)

const (
	// MinTrainingSamples is the hard floor for training. Below it the model
	// overfits to noise; the caller gets an error, never a degraded fit.
	MinTrainingSamples = 30

	// ModelVersion is written into every saved bundle and every prediction
	// audit row.
	ModelVersion = "v1.0.0"

	testFraction = 0.2

	// earlyStoppingRounds stops boosting when the held-out RMSE has not
	// improved for this many consecutive rounds.
	earlyStoppingRounds = 10
)

// Params are the boosting hyperparameters. DefaultParams matches the tuned
// production configuration; tests shrink NEstimators for speed.
type Params struct {
	NEstimators  int     `json:"n_estimators"`
	LearningRate float64 `json:"learning_rate"`
	MaxDepth     int     `json:"max_depth"`
	MinLeaf      int     `json:"min_leaf"`
	Seed         int64   `json:"seed"`
}

func DefaultParams() Params {
	return Params{
		NEstimators:  100,
		LearningRate: 0.1,
		MaxDepth:     5,
		MinLeaf:      3,
		Seed:         42,
	}
}

func (p Params) sanitized() Params {
	if p.NEstimators <= 0 {
		p.NEstimators = DefaultParams().NEstimators
	}
	if p.LearningRate <= 0 {
		p.LearningRate = DefaultParams().LearningRate
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = DefaultParams().MaxDepth
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = DefaultParams().MinLeaf
	}
	return p
}

// Metrics reports fit quality on BOTH splits. A model that only knows its
// train error cannot be trusted; the held-out numbers are the ones the
// training endpoint surfaces.
type Metrics struct {
	TrainMAPE       float64 `json:"train_mape"`
	TestMAPE        float64 `json:"test_mape"`
	TrainRMSE       float64 `json:"train_rmse"`
	TestRMSE        float64 `json:"test_rmse"`
	TrainingSamples int     `json:"training_samples"`
	TestSamples     int     `json:"test_samples"`
	ModelVersion    string  `json:"model_version"`
}

// Regressor is a gradient-boosted ensemble of regression trees with squared
// loss. It carries the fitted feature-engineer state so a loaded model can
// rebuild the exact feature pipeline it was trained with.
type Regressor struct {
	params  Params
	base    float64
	trees   []*node
	state   features.State
	version string
	trained bool
}

func New(params Params) *Regressor {
	return &Regressor{params: params.sanitized(), version: ModelVersion}
}

// SetFeatureState attaches the fitted feature-engineer state that produced
// the training matrix. It is persisted with the model.
func (r *Regressor) SetFeatureState(s features.State) { r.state = s }

// FeatureState returns the persisted feature-engineer state.
func (r *Regressor) FeatureState() features.State { return r.state }

func (r *Regressor) Version() string { return r.version }

func (r *Regressor) Trained() bool { return r.trained }

// Train fits the ensemble on X/y with a seeded 80/20 split and returns
// metrics for both splits. Boosting stops early when the held-out RMSE
// stalls, keeping the ensemble at its best round.
func (r *Regressor) Train(X [][]float64, y []float64) (Metrics, error) {
	if len(X) != len(y) {
		return Metrics{}, mlerr.Validation("training_data", len(X), "feature matrix and target length differ")
	}
	if len(X) < MinTrainingSamples {
		return Metrics{}, mlerr.InsufficientData(MinTrainingSamples, len(X))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return Metrics{}, mlerr.Validation("training_data", i, "ragged feature matrix")
		}
	}

	trainX, trainY, testX, testY := split(X, y, r.params.Seed)

	r.base = mean(trainY)
	r.trees = r.trees[:0]

	trainPred := filled(len(trainY), r.base)
	testPred := filled(len(testY), r.base)

	rows := make([]int, len(trainX))
	for i := range rows {
		rows[i] = i
	}
	residual := make([]float64, len(trainY))

	bestRMSE := math.Inf(1)
	bestRound := 0
	stale := 0

	for round := 0; round < r.params.NEstimators; round++ {
		for i := range trainY {
			residual[i] = trainY[i] - trainPred[i]
		}
		tree := buildNode(trainX, residual, rows, 0, r.params.MaxDepth, r.params.MinLeaf)
		r.trees = append(r.trees, tree)

		for i, x := range trainX {
			trainPred[i] += r.params.LearningRate * tree.predict(x)
		}
		for i, x := range testX {
			testPred[i] += r.params.LearningRate * tree.predict(x)
		}

		if cur := rmse(testY, testPred); cur < bestRMSE {
			bestRMSE = cur
			bestRound = round
			stale = 0
		} else {
			stale++
			if stale >= earlyStoppingRounds {
				break
			}
		}
	}
	r.trees = r.trees[:bestRound+1]
	r.trained = true

	trainOut, err := r.Predict(trainX)
	if err != nil {
		return Metrics{}, err
	}
	testOut, err := r.Predict(testX)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		TrainMAPE:       round2(mape(trainY, trainOut)),
		TestMAPE:        round2(mape(testY, testOut)),
		TrainRMSE:       round2(rmse(trainY, trainOut)),
		TestRMSE:        round2(rmse(testY, testOut)),
		TrainingSamples: len(trainX),
		TestSamples:     len(testX),
		ModelVersion:    r.version,
	}, nil
}

// Predict scores a batch of feature vectors. An untrained model is a
// reported condition, never a fabricated price.
func (r *Regressor) Predict(X [][]float64) ([]float64, error) {
	if !r.trained {
		return nil, mlerr.ModelUnavailable("price-regressor", nil)
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = r.predictOne(x)
	}
	return out, nil
}

// PredictOne scores a single feature vector.
func (r *Regressor) PredictOne(x []float64) (float64, error) {
	if !r.trained {
		return 0, mlerr.ModelUnavailable("price-regressor", nil)
	}
	return r.predictOne(x), nil
}

func (r *Regressor) predictOne(x []float64) float64 {
	pred := r.base
	for _, t := range r.trees {
		pred += r.params.LearningRate * t.predict(x)
	}
	return pred
}

// split shuffles row indices with the fixed seed and carves off the trailing
// fifth as the held-out set. Same seed, same data, same split.
func split(X [][]float64, y []float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(X))

	nTest := int(math.Round(float64(len(X)) * testFraction))
	if nTest < 1 {
		nTest = 1
	}
	nTrain := len(X) - nTest

	for k, i := range perm {
		if k < nTrain {
			trainX = append(trainX, X[i])
			trainY = append(trainY, y[i])
		} else {
			testX = append(testX, X[i])
			testY = append(testY, y[i])
		}
	}
	return trainX, trainY, testX, testY
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
