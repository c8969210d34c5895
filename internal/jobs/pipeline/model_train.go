package pipeline

import (
	"github.com/handwerkml/pricing-backend/internal/jobs"
	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/services"
	"github.com/handwerkml/pricing-backend/internal/types"
)

// ModelTrain retrains the price regressor from all finalized priced projects
// and hot-swaps the serving model on success.
type ModelTrain struct {
	log      *logger.Logger
	training services.TrainingService
}

func NewModelTrain(baseLog *logger.Logger, training services.TrainingService) *ModelTrain {
	return &ModelTrain{
		log:      baseLog.With("pipeline", types.JobTypeModelTrain),
		training: training,
	}
}

func (p *ModelTrain) Type() string { return types.JobTypeModelTrain }

func (p *ModelTrain) Run(jc *jobs.Context) {
	jc.Progress("train", 10)
	metrics, err := p.training.Train(jc.Ctx)
	if err != nil {
		jc.Fail("train", err)
		return
	}
	jc.Succeed("done", metrics)
}
