package gemini

import "google.golang.org/genai"

// moderatedCategories are the harm categories every request carries a threshold for.
var moderatedCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// DefaultSafetySettings blocks only the most severe tier in each moderated category.
func DefaultSafetySettings() []*genai.SafetySetting {
	settings := make([]*genai.SafetySetting, 0, len(moderatedCategories))
	for _, category := range moderatedCategories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
		})
	}
	return settings
}
