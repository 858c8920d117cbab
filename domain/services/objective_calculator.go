package services

import (
	"errors"
	"math"

	"tumulte/domain/entities"
)

// ErrObjectiveMisconfigured is returned when neither a coefficient nor a minimum objective is set
var ErrObjectiveMisconfigured = errors.New("objective coefficient and minimum objective are both unset")

// ViewerObjectiveCalculator sizes objectives from the streamer audience.
// The objective is max(minimum, ceil(viewers * coefficient)) and progress is
// the number of contributions that were not refunded.
type ViewerObjectiveCalculator struct{}

func NewViewerObjectiveCalculator() *ViewerObjectiveCalculator {
	return &ViewerObjectiveCalculator{}
}

func (c *ViewerObjectiveCalculator) Calculate(
	event *entities.GamificationEvent,
	config *entities.CampaignGamificationConfig,
	contributions []*entities.GamificationContribution,
	streamerCtx entities.StreamerContext,
) (entities.ObjectiveProgress, error) {
	progress := 0
	for _, contribution := range contributions {
		if !contribution.Refunded {
			progress++
		}
	}

	objective := streamerCtx.FixedObjective
	if objective <= 0 {
		coefficient := event.DefaultObjectiveCoefficient
		minimum := event.DefaultMinimumObjective
		if config != nil {
			coefficient = config.EffectiveObjectiveCoefficient(event)
			minimum = config.EffectiveMinimumObjective(event)
		}
		if coefficient <= 0 && minimum <= 0 {
			return entities.ObjectiveProgress{Progress: progress}, ErrObjectiveMisconfigured
		}

		objective = int(math.Ceil(float64(streamerCtx.ViewerCount) * coefficient))
		if objective < minimum {
			objective = minimum
		}
		if objective < 1 {
			objective = 1
		}
	}

	return entities.ObjectiveProgress{
		Progress:     progress,
		Objective:    objective,
		ObjectiveMet: progress >= objective,
	}, nil
}
