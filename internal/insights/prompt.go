package insights

import (
	"fmt"
	"sort"
	"strings"
)

const promptHeader = `You are a neutral data analyst. Explain patterns and trends in the following health metrics using factual, neutral language.

RULES:
- Do not provide medical advice or diagnosis
- Do not use motivational or coaching language
- Do not say "you should" or give recommendations
- Use phrases like "data shows", "compared to baseline", "trend indicates"
- Be factual and analytical

DATA:
`

const promptFooter = `
Provide 3-4 brief observations about the data. Focus on:
1. How recent data compares to averages
2. Any notable deviations or patterns
3. Potential relationships between activity and sleep (if correlation data is available)

Format each observation as a single paragraph. Be concise and factual.
`

// buildPrompt renders the structured context into the analyst prompt.
func buildPrompt(insightCtx Context) string {
	var b strings.Builder
	b.WriteString(promptHeader)

	if sleep := insightCtx.SleepSummary; sleep != nil {
		last := sleep.LastNight
		fmt.Fprintf(&b, "\nSLEEP DATA:\n")
		fmt.Fprintf(&b, "Last night (%s):\n", last.Date)
		fmt.Fprintf(&b, "  - Sleep duration: %g hours\n", last.TimeAsleepHours)
		fmt.Fprintf(&b, "  - REM sleep: %g%%\n", last.REMPercentage)
		fmt.Fprintf(&b, "  - Deep sleep: %g%%\n", last.DeepPercentage)
		fmt.Fprintf(&b, "  - Time awake: %g minutes\n", last.AwakeMinutes)
		fmt.Fprintf(&b, "  - Bedtime: %s\n", orNA(last.Bedtime))
		fmt.Fprintf(&b, "  - Wake time: %s\n", orNA(last.WakeTime))

		fmt.Fprintf(&b, "\n%d-day average:\n", sleep.WindowDays)
		fmt.Fprintf(&b, "  - Sleep duration: %g hours\n", sleep.Average.TimeAsleepHours)
		fmt.Fprintf(&b, "  - REM sleep: %g%%\n", sleep.Average.REMPercentage)
		fmt.Fprintf(&b, "  - Deep sleep: %g%%\n", sleep.Average.DeepPercentage)

		if avg30 := insightCtx.SleepAverage30; avg30 != nil {
			fmt.Fprintf(&b, "\n30-day average:\n")
			fmt.Fprintf(&b, "  - Sleep duration: %g hours\n", avg30.TimeAsleepHours)
			fmt.Fprintf(&b, "  - REM sleep: %g%%\n", avg30.REMPercentage)
			fmt.Fprintf(&b, "  - Deep sleep: %g%%\n", avg30.DeepPercentage)
		}
	}

	if activity := insightCtx.ActivitySummary; activity != nil {
		fmt.Fprintf(&b, "\nACTIVITY DATA:\n")
		fmt.Fprintf(&b, "Yesterday (%s):\n", activity.Yesterday.Date)
		fmt.Fprintf(&b, "  - Steps: %d\n", activity.Yesterday.Steps)
		fmt.Fprintf(&b, "  - Active calories: %g\n", activity.Yesterday.MoveCalories)
		fmt.Fprintf(&b, "  - Stand hours: %d\n", activity.Yesterday.StandHours)

		fmt.Fprintf(&b, "\n%d-day average:\n", activity.WindowDays)
		fmt.Fprintf(&b, "  - Steps: %d\n", activity.Average.Steps)
		fmt.Fprintf(&b, "  - Active calories: %g\n", activity.Average.MoveCalories)
		fmt.Fprintf(&b, "  - Stand hours: %d\n", activity.Average.StandHours)
	}

	if len(insightCtx.NotablePatterns) > 0 {
		fmt.Fprintf(&b, "\nNOTABLE PATTERNS:\n")
		for _, pattern := range insightCtx.NotablePatterns {
			fmt.Fprintf(&b, "  - %s\n", pattern)
		}
	}

	if len(insightCtx.Correlations) > 0 {
		fmt.Fprintf(&b, "\nCORRELATIONS:\n")
		keys := make([]string, 0, len(insightCtx.Correlations))
		for key := range insightCtx.Correlations {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "  - %s: %g\n", key, insightCtx.Correlations[key])
		}
	}

	b.WriteString(promptFooter)
	return b.String()
}

var insightCategories = []string{"sleep_duration", "sleep_stages", "activity_correlation", "general_pattern"}

// parseResponse splits the model output into up to four categorized
// observations plus a one-paragraph summary.
func parseResponse(text string) *Report {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	report := &Report{Insights: []Insight{}, Summary: "Insufficient data for analysis."}
	if len(paragraphs) > 0 {
		report.Summary = paragraphs[0]
	}

	for i, paragraph := range paragraphs {
		if i >= len(insightCategories) {
			break
		}
		// Very short lines are formatting noise, not observations.
		if len(paragraph) <= 20 {
			continue
		}
		report.Insights = append(report.Insights, Insight{
			Category:    insightCategories[i],
			Observation: paragraph,
		})
	}
	return report
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}
