package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// SampleLimit caps how many samples the console report lists per series.
const SampleLimit = 100

// FormatReport renders the full console report of a run.
func FormatReport(rep *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s | %s | %s to %s (%d price points)\n",
		rep.RunID, rep.Symbol, rep.From, rep.To, rep.PricePoints)
	if rep.MaxRequests > 0 && rep.RequestsMade >= rep.MaxRequests {
		fmt.Fprintf(&b, "\nMax options requests (%d) reached.\n", rep.MaxRequests)
	}
	fmt.Fprintf(&b, "\nTotal options_data requests made: %d\n", rep.RequestsMade)
	fmt.Fprintf(&b, "Total relevant options collected for IV accuracy: %d\n", len(rep.Contracts))

	fmt.Fprintf(&b, "\nIV Accuracy (first %d entries, based on %d options): %s\n",
		SampleLimit, len(rep.Contracts), formatSamples(rep.IV, SampleLimit))
	fmt.Fprintf(&b, "\nFiltered HV Accuracy (first %d entries): %s\n",
		SampleLimit, formatSamples(rep.HV, SampleLimit))

	b.WriteString(statLine("Mean Absolute Error (MAE) of IV", rep.IVMAE,
		"Could not calculate MAE. Not enough common data points."))
	b.WriteString(statLine("Mean Absolute Error (MAE) of HV", rep.HVMAE,
		"Could not calculate MAE. Not enough common data points."))
	b.WriteString(statLine("Correlation between IV and HV accuracy", rep.Correlation,
		"Could not calculate correlation. Not enough common data points."))
	return b.String()
}

// FormatSummary renders a short HTML message for Telegram.
func FormatSummary(rep *model.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>IV vs HV accuracy</b> | %s\n\n", html.EscapeString(rep.Symbol))
	fmt.Fprintf(&b, "Window: %s → %s (%d days of prices)\n", rep.From, rep.To, rep.PricePoints)
	fmt.Fprintf(&b, "Chain requests: %d/%d\n", rep.RequestsMade, rep.MaxRequests)
	fmt.Fprintf(&b, "Contracts: %d | IV samples: %d | HV samples: %d (%d total)\n\n",
		len(rep.Contracts), len(rep.IV), len(rep.HV), len(rep.HVFull))
	fmt.Fprintf(&b, "MAE IV: %s\n", formatStat(rep.IVMAE))
	fmt.Fprintf(&b, "MAE HV: %s\n", formatStat(rep.HVMAE))
	fmt.Fprintf(&b, "Correlation: %s\n", formatStat(rep.Correlation))
	if rep.IVMAE.Defined && rep.HVMAE.Defined {
		better := "IV"
		if rep.HVMAE.Value < rep.IVMAE.Value {
			better = "HV"
		}
		fmt.Fprintf(&b, "\nLower error: <b>%s</b>\n", better)
	}
	return b.String()
}

// FormatSamples lists IV and IV-date HV samples side by side as HTML preformatted
// rows, dropping rows that would push the text past budget runes.
func FormatSamples(rep *model.Report, budget int) string {
	if len(rep.IV) == 0 {
		return ""
	}
	hv := make(map[model.Date]float64, len(rep.HV))
	for _, s := range rep.HV {
		hv[s.Date] = s.Error
	}
	const head, tail = "<pre>date        IV err    HV err\n", "</pre>"
	var b strings.Builder
	b.WriteString(head)
	used := len(head) + len(tail)
	for i, s := range rep.IV {
		if i == SampleLimit {
			break
		}
		hvCol := "n/a"
		if v, ok := hv[s.Date]; ok {
			hvCol = fmt.Sprintf("%.4f", v)
		}
		row := fmt.Sprintf("%s  %8.4f  %8s\n", s.Date, s.Error, hvCol)
		if used+len(row) > budget {
			break
		}
		b.WriteString(row)
		used += len(row)
	}
	if b.Len() == len(head) {
		return ""
	}
	b.WriteString(tail)
	return b.String()
}

func statLine(label string, s model.Stat, missing string) string {
	if !s.Defined {
		return missing + "\n"
	}
	return fmt.Sprintf("%s: %.4f\n", label, s.Value)
}

func formatStat(s model.Stat) string {
	if !s.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", s.Value)
}

func formatSamples(samples []model.AccuracySample, limit int) string {
	if len(samples) > limit {
		samples = samples[:limit]
	}
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = fmt.Sprintf("(%s, %.4f)", s.Date, s.Error)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
