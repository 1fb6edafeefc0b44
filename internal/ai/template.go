package ai

import (
	"context"
	"fmt"
	"strings"

	"decision-intel/backend/internal/intel"
)

// TemplateDrafter writes a deterministic narrative without any outbound call.
type TemplateDrafter struct{}

func NewTemplateDrafter() TemplateDrafter {
	return TemplateDrafter{}
}

func (TemplateDrafter) Enabled() bool { return true }

// Draft summarises both sources separately and labels the overall stance.
func (TemplateDrafter) Draft(_ context.Context, result intel.AggregateResult) (Narrative, error) {
	var sentences []string
	var caveats []string
	label := LabelInsufficient

	internal := result.Internal
	switch {
	case internal.Status != intel.SourceOK || internal.Recommendation == nil:
		sentences = append(sentences, fmt.Sprintf("Your organization's history was %s for this request.", internal.Status))
	case internal.Recommendation.HasRecommendation:
		rec := internal.Recommendation
		sentences = append(sentences, fmt.Sprintf(
			"Across %d similar past decisions (%d%% successful), %q is favoured with %d%% confidence.",
			rec.SimilarCount, rec.SuccessRate, rec.RecommendedOption.Name, rec.Confidence))
		label = LabelAdopt
		if rec.NotRecommendedOption != nil {
			caveats = append(caveats, fmt.Sprintf("%q matches patterns of past failures.", rec.NotRecommendedOption.Name))
		}
		caveats = append(caveats, rec.Warnings...)
	default:
		sentences = append(sentences, fmt.Sprintf(
			"Your organization's %d similar past decisions do not point clearly at one option.",
			internal.Recommendation.SimilarCount))
	}

	external := result.External
	if external.Status == intel.SourceOK && external.TotalAnalyzed > 0 && len(external.FailurePatterns) > 0 {
		top := external.FailurePatterns[0]
		sentences = append(sentences, fmt.Sprintf(
			"In %d external %s failures, the most common cause was %q (%d cases).",
			external.TotalAnalyzed, strings.ReplaceAll(result.Category, "_", " "), top.FailureReason, top.Count))
		for _, tpl := range external.Templates {
			caveats = append(caveats, tpl.Warnings...)
		}
		if label == LabelInsufficient && result.RecommendationQuality != intel.QualityLow {
			label = LabelCaution
		}
	} else if external.Status != intel.SourceOK {
		sentences = append(sentences, fmt.Sprintf("External failure data was %s.", external.Status))
	}

	if label == LabelAdopt && len(caveats) > 0 {
		label = LabelCaution
	}

	return Narrative{
		Summary:        strings.Join(sentences, " "),
		Recommendation: label,
		Caveats:        caveats,
	}, nil
}
