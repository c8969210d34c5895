package features

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
)

// Attributes are the raw project fields the engine consumes. Pointer fields
// distinguish "absent" from a real zero; absent numerics are filled with the
// frozen training statistic, absent categoricals with the training mode.
type Attributes struct {
	Name         string
	Description  string
	ProjectType  string
	Region       string
	WoodType     string
	TotalAreaSqm *float64
	Complexity   *int
	ProjectDate  *time.Time
	FinalPrice   *float64
}

// MissingStrategy selects the frozen fill statistic for numeric gaps.
type MissingStrategy string

const (
	FillMean   MissingStrategy = "mean"
	FillMedian MissingStrategy = "median"
)

const (
	minComplexity = 1
	maxComplexity = 5

	recentMonths = 6.0
	daysPerMonth = 30.0
)

// The interaction set is a fixed configuration, not something inferred from
// data. Adding a pair is a model-version change.
var featureNames = []string{
	"total_area_sqm",
	"complexity",
	"wood_type_encoded",
	"project_type_encoded",
	"region_encoded",
	"area_per_complexity",
	"months_old",
	"is_recent",
	"wood_area_interaction",
	"total_area_sqm_x_complexity",
	"total_area_sqm_x_months_old",
}

// Engineer turns Attributes into numeric feature vectors. It must be fitted
// on the training batch before Extract is valid: fitting freezes the
// categorical encoders and the fill statistics so predict-time rows never
// leak their own batch statistics.
type Engineer struct {
	strategy MissingStrategy

	woodEncoder   *LabelEncoder
	typeEncoder   *LabelEncoder
	regionEncoder *LabelEncoder
	numericFill   map[string]float64
	categoricFill map[string]string
	fitted        bool

	// now is injectable for deterministic month arithmetic in tests.
	now func() time.Time
}

func NewEngineer(strategy MissingStrategy) *Engineer {
	if strategy != FillMedian {
		strategy = FillMean
	}
	return &Engineer{
		strategy:      strategy,
		woodEncoder:   NewLabelEncoder(),
		typeEncoder:   NewLabelEncoder(),
		regionEncoder: NewLabelEncoder(),
		numericFill:   map[string]float64{},
		categoricFill: map[string]string{},
		now:           time.Now,
	}
}

// Fit validates the training rows, fits the three categorical encoders and
// freezes numeric/categorical fill statistics.
func (e *Engineer) Fit(rows []Attributes) error {
	if len(rows) == 0 {
		return mlerr.Validation("training_rows", 0, "at least one row required to fit")
	}

	areas := make([]float64, 0, len(rows))
	complexities := make([]float64, 0, len(rows))
	woods := make([]string, 0, len(rows))
	ptypes := make([]string, 0, len(rows))
	regions := make([]string, 0, len(rows))

	for _, row := range rows {
		if err := validateRow(row); err != nil {
			return err
		}
		if row.TotalAreaSqm != nil {
			areas = append(areas, *row.TotalAreaSqm)
		}
		if row.Complexity != nil {
			complexities = append(complexities, float64(*row.Complexity))
		}
		if normalizeCategory(row.WoodType) != "" {
			woods = append(woods, row.WoodType)
		}
		if normalizeCategory(row.ProjectType) != "" {
			ptypes = append(ptypes, row.ProjectType)
		}
		if normalizeCategory(row.Region) != "" {
			regions = append(regions, row.Region)
		}
	}

	e.woodEncoder.Fit(woods)
	e.typeEncoder.Fit(ptypes)
	e.regionEncoder.Fit(regions)

	e.numericFill["total_area_sqm"] = fillStatistic(areas, e.strategy)
	e.numericFill["complexity"] = fillStatistic(complexities, e.strategy)
	if e.numericFill["complexity"] < minComplexity {
		e.numericFill["complexity"] = minComplexity
	}
	e.categoricFill["wood_type"] = modeOf(woods)
	e.categoricFill["project_type"] = modeOf(ptypes)
	e.categoricFill["region"] = modeOf(regions)

	e.fitted = true
	return nil
}

// Extract computes the feature vector for one row. Deterministic: the same
// attributes against the same fitted state always produce the same vector.
func (e *Engineer) Extract(a Attributes) ([]float64, error) {
	if !e.fitted {
		return nil, mlerr.ModelUnavailable("feature-engineer", nil)
	}
	if err := validateRow(a); err != nil {
		return nil, err
	}

	area := e.fillNumeric(a.TotalAreaSqm, "total_area_sqm")
	complexity := e.fillNumeric(intPtrToFloat(a.Complexity), "complexity")
	wood := e.fillCategory(a.WoodType, "wood_type")
	ptype := e.fillCategory(a.ProjectType, "project_type")
	region := e.fillCategory(a.Region, "region")

	woodCode := float64(e.woodEncoder.Transform(wood))
	typeCode := float64(e.typeEncoder.Transform(ptype))
	regionCode := float64(e.regionEncoder.Transform(region))

	areaPerComplexity := area / math.Max(complexity, 1)

	monthsOld := 0.0
	isRecent := 0.0
	if a.ProjectDate != nil {
		days := e.now().Sub(*a.ProjectDate).Hours() / 24
		monthsOld = math.Max(0, days/daysPerMonth)
		if monthsOld < recentMonths {
			isRecent = 1
		}
	}

	return []float64{
		area,
		complexity,
		woodCode,
		typeCode,
		regionCode,
		areaPerComplexity,
		monthsOld,
		isRecent,
		area * (woodCode + 1),
		area * complexity,
		area * monthsOld,
	}, nil
}

// ExtractBatch extracts every row and flags numeric outliers across the
// batch. Outliers are diagnostic only; no row is dropped.
func (e *Engineer) ExtractBatch(rows []Attributes) ([][]float64, []Outlier, error) {
	matrix := make([][]float64, 0, len(rows))
	for _, row := range rows {
		vec, err := e.Extract(row)
		if err != nil {
			return nil, nil, err
		}
		matrix = append(matrix, vec)
	}
	return matrix, DetectOutliers(matrix, featureNames, 3.0), nil
}

func (e *Engineer) FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// UnseenCategories lists the categorical inputs of a row that will resolve
// to the unknown bucket. Useful for logging prediction quality.
func (e *Engineer) UnseenCategories(a Attributes) []string {
	if !e.fitted {
		return nil
	}
	var out []string
	if v := e.fillCategory(a.WoodType, "wood_type"); !e.woodEncoder.Known(v) {
		out = append(out, "wood_type")
	}
	if v := e.fillCategory(a.ProjectType, "project_type"); !e.typeEncoder.Known(v) {
		out = append(out, "project_type")
	}
	if v := e.fillCategory(a.Region, "region"); !e.regionEncoder.Known(v) {
		out = append(out, "region")
	}
	return out
}

func (e *Engineer) fillNumeric(v *float64, name string) float64 {
	if v != nil {
		return *v
	}
	return e.numericFill[name]
}

func (e *Engineer) fillCategory(v, name string) string {
	if normalizeCategory(v) != "" {
		return v
	}
	return e.categoricFill[name]
}

func validateRow(a Attributes) error {
	if a.TotalAreaSqm != nil && *a.TotalAreaSqm < 0 {
		return mlerr.Validation("total_area_sqm", *a.TotalAreaSqm, "area must be >= 0")
	}
	if a.Complexity != nil && (*a.Complexity < minComplexity || *a.Complexity > maxComplexity) {
		return mlerr.Validation("complexity", *a.Complexity, "complexity must be within [1,5]")
	}
	return nil
}

func intPtrToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func fillStatistic(values []float64, strategy MissingStrategy) float64 {
	if len(values) == 0 {
		return 0
	}
	if strategy == FillMedian {
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return stat.Mean(values, nil)
}

func modeOf(values []string) string {
	counts := map[string]int{}
	for _, v := range values {
		counts[normalizeCategory(v)]++
	}
	best := ""
	bestCount := 0
	// Iterate sorted keys so ties resolve deterministically.
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestCount {
			best = k
			bestCount = counts[k]
		}
	}
	return best
}
