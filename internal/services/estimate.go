package services

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/confidence"
	"github.com/handwerkml/pricing-backend/internal/ml/embeddings"
	"github.com/handwerkml/pricing-backend/internal/ml/features"
	"github.com/handwerkml/pricing-backend/internal/ml/similarity"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

// PredictRequest carries the draft project attributes to estimate.
type PredictRequest struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	ProjectType  string     `json:"project_type"`
	Region       string     `json:"region"`
	WoodType     string     `json:"wood_type"`
	TotalAreaSqm *float64   `json:"total_area_sqm,omitempty"`
	Complexity   *int       `json:"complexity,omitempty"`
	ProjectDate  *time.Time `json:"project_date,omitempty"`
}

func (r PredictRequest) attributes() features.Attributes {
	return features.Attributes{
		Name:         r.Name,
		Description:  r.Description,
		ProjectType:  r.ProjectType,
		Region:       r.Region,
		WoodType:     r.WoodType,
		TotalAreaSqm: r.TotalAreaSqm,
		Complexity:   r.Complexity,
		ProjectDate:  r.ProjectDate,
	}
}

// SimilarProjectSummary is the neighbor view returned to callers.
type SimilarProjectSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	FinalPrice  float64   `json:"final_price"`
	WoodType    string    `json:"wood_type"`
	ProjectType string    `json:"project_type"`
	Complexity  int       `json:"complexity"`
	Similarity  float64   `json:"similarity"`
}

type PriceRange struct {
	Lower float64 `json:"lower_bound"`
	Upper float64 `json:"upper_bound"`
}

type PredictResponse struct {
	PredictionID         uuid.UUID               `json:"prediction_id"`
	PredictedPrice       float64                 `json:"predicted_price"`
	PriceRange           PriceRange              `json:"price_range"`
	Confidence           float64                 `json:"confidence"`
	ConfidenceLevel      confidence.Level        `json:"confidence_level"`
	DataQuality          float64                 `json:"data_quality"`
	SimilarProjects      []SimilarProjectSummary `json:"similar_projects"`
	SimilarProjectsCount int                     `json:"similar_projects_count"`
	UnseenCategories     []string                `json:"unseen_categories,omitempty"`
	ModelVersion         string                  `json:"model_version"`
}

// AccuracyReport aggregates the stored percentage errors of predictions
// that received feedback.
type AccuracyReport struct {
	SampleSize int     `json:"sample_size"`
	MeanMAPE   float64 `json:"mean_mape"`
	MedianMAPE float64 `json:"median_mape"`
	StdDev     float64 `json:"std_dev"`
	MinError   float64 `json:"min_error"`
	MaxError   float64 `json:"max_error"`
}

type EstimateService interface {
	Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error)
	Feedback(ctx context.Context, id uuid.UUID, actual *float64, accepted *bool, modified *float64) (*types.PricePrediction, error)
	AccuracyMetrics(ctx context.Context) (*AccuracyReport, error)
}

type estimateService struct {
	db             *gorm.DB
	log            *logger.Logger
	store          *ModelStore
	provider       embeddings.Provider
	retriever      *similarity.Retriever
	predictionRepo repos.PredictionRepo
}

func NewEstimateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store *ModelStore,
	provider embeddings.Provider,
	retriever *similarity.Retriever,
	predictionRepo repos.PredictionRepo,
) EstimateService {
	return &estimateService{
		db:             db,
		log:            baseLog.With("service", "EstimateService"),
		store:          store,
		provider:       provider,
		retriever:      retriever,
		predictionRepo: predictionRepo,
	}
}

// Predict runs the full estimation pipeline: data-quality scoring, neighbor
// retrieval, regression, confidence, and the audit write. An unreachable
// vector index degrades to a model-only estimate; a missing trained model
// is a hard, typed failure.
func (s *estimateService) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	model, engineer, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	attrs := req.attributes()

	// Feature extraction validates input up front; nothing below runs on
	// malformed attributes.
	vector, err := engineer.Extract(attrs)
	if err != nil {
		return nil, err
	}

	quality := features.QualityScore(attrs)

	matches, err := s.findNeighbors(ctx, req.Description)
	if err != nil {
		return nil, err
	}

	predicted, err := model.PredictOne(vector)
	if err != nil {
		return nil, err
	}
	if predicted < 0 {
		predicted = 0
	}

	variance := similarity.PriceVariance(matches)
	avgMonths := similarity.AvgMonthsOld(matches, time.Now().UTC())
	score := confidence.Calculate(len(matches), variance, predicted, quality, avgMonths)
	level := confidence.Classify(score)

	priceRange := uncertaintyBand(predicted, score)

	response := &PredictResponse{
		PredictedPrice:       round2(predicted),
		PriceRange:           priceRange,
		Confidence:           score,
		ConfidenceLevel:      level,
		DataQuality:          quality,
		SimilarProjects:      summarize(matches),
		SimilarProjectsCount: len(matches),
		UnseenCategories:     engineer.UnseenCategories(attrs),
		ModelVersion:         model.Version(),
	}

	audit, err := s.audit(ctx, req, response)
	if err != nil {
		return nil, err
	}
	response.PredictionID = audit.ID
	return response, nil
}

// findNeighbors embeds the description and retrieves neighbors. The predict
// path opts into index degradation: a down Qdrant costs confidence, not the
// whole estimate. A blank description embeds to the zero vector and simply
// retrieves nothing.
func (s *estimateService) findNeighbors(ctx context.Context, description string) ([]similarity.Match, error) {
	emb, err := s.provider.Embed(ctx, description)
	if err != nil {
		return nil, err
	}
	return s.retriever.FindSimilar(ctx, emb, similarity.Options{AllowDegraded: true})
}

func (s *estimateService) audit(ctx context.Context, req PredictRequest, res *PredictResponse) (*types.PricePrediction, error) {
	rawFeatures, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return s.predictionRepo.Create(ctx, nil, &types.PricePrediction{
		Timestamp:            time.Now().UTC(),
		ProjectFeatures:      datatypes.JSON(rawFeatures),
		PredictedPrice:       res.PredictedPrice,
		PriceLower:           res.PriceRange.Lower,
		PriceUpper:           res.PriceRange.Upper,
		ConfidenceScore:      res.Confidence,
		ConfidenceLevel:      res.ConfidenceLevel.Name,
		SimilarProjectsCount: res.SimilarProjectsCount,
		ModelVersion:         res.ModelVersion,
	})
}

func (s *estimateService) Feedback(ctx context.Context, id uuid.UUID, actual *float64, accepted *bool, modified *float64) (*types.PricePrediction, error) {
	return s.predictionRepo.RecordFeedback(ctx, nil, id, actual, accepted, modified)
}

func (s *estimateService) AccuracyMetrics(ctx context.Context) (*AccuracyReport, error) {
	predictions, err := s.predictionRepo.ListWithFeedback(ctx, nil)
	if err != nil {
		return nil, err
	}
	var errs []float64
	for _, p := range predictions {
		if p.PredictionError != nil {
			errs = append(errs, *p.PredictionError)
		}
	}
	if len(errs) == 0 {
		return &AccuracyReport{}, nil
	}
	sort.Float64s(errs)

	report := &AccuracyReport{
		SampleSize: len(errs),
		MeanMAPE:   round2(stat.Mean(errs, nil)),
		MedianMAPE: round2(stat.Quantile(0.5, stat.Empirical, errs, nil)),
		MinError:   round2(errs[0]),
		MaxError:   round2(errs[len(errs)-1]),
	}
	if len(errs) > 1 {
		report.StdDev = round2(stat.StdDev(errs, nil))
	}
	return report, nil
}

// uncertaintyBand widens with falling confidence: 5% of the price at full
// confidence, up to 50% at zero.
func uncertaintyBand(predicted, score float64) PriceRange {
	half := (0.05 + 0.45*(1-score)) * predicted
	lower := predicted - half
	if lower < 0 {
		lower = 0
	}
	return PriceRange{Lower: round2(lower), Upper: round2(predicted + half)}
}

func summarize(matches []similarity.Match) []SimilarProjectSummary {
	out := make([]SimilarProjectSummary, 0, len(matches))
	for _, m := range matches {
		p := m.Project
		price := 0.0
		if p.FinalPrice != nil {
			price = *p.FinalPrice
		}
		out = append(out, SimilarProjectSummary{
			ID:          p.ID,
			Name:        p.Name,
			Description: truncate(p.Description, 100),
			FinalPrice:  price,
			WoodType:    p.WoodType,
			ProjectType: p.ProjectType,
			Complexity:  p.Complexity,
			Similarity:  round3(m.Score),
		})
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
