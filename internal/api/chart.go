package api

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ldl-target-server/internal/service"
)

var statusColors = map[service.GoalStatus]string{
	service.GoalStatusAtGoal:    "#2e7d32",
	service.GoalStatusNearGoal:  "#f9a825",
	service.GoalStatusAboveGoal: "#c62828",
}

// RenderComparisonChart draws the three regional targets as bars with the
// current LDL as a horizontal mark line. Bars are coloured by goal status.
func RenderComparisonChart(report *service.EvaluationReport) ([]byte, error) {
	if report == nil || len(report.Outcomes) == 0 {
		return nil, fmt.Errorf("rendering chart: empty report")
	}

	xAxis := make([]string, 0, len(report.Outcomes))
	bars := make([]opts.BarData, 0, len(report.Outcomes))
	yMax := report.CurrentLDL
	for _, o := range report.Outcomes {
		xAxis = append(xAxis, fmt.Sprintf("%s (%s)", o.Region, o.Guideline))
		bars = append(bars, opts.BarData{
			Name:      o.RiskCategory,
			Value:     o.TargetLDL,
			ItemStyle: &opts.ItemStyle{Color: statusColors[o.Status]},
		})
		if o.TargetLDL > yMax {
			yMax = o.TargetLDL
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "LDL target comparison",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "LDL-C targets by guideline",
			Subtitle: fmt.Sprintf("Current LDL-C %d mg/dL", report.CurrentLDL),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "mg/dL",
			Min:  0,
			Max:  yMax + 20,
		}),
	)

	bar.SetXAxis(xAxis).
		AddSeries("Target LDL-C", bars).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:     opts.Bool(true),
				Position: "top",
			}),
			func(s *charts.SingleSeries) {
				s.MarkLines = &opts.MarkLines{
					Data: []interface{}{
						opts.MarkLineNameYAxisItem{Name: "Current LDL-C", YAxis: report.CurrentLDL},
					},
					MarkLineStyle: opts.MarkLineStyle{
						Symbol: []string{"none", "none"},
						LineStyle: &opts.LineStyle{
							Color: "rgba(33, 33, 33, 0.8)",
							Type:  "dashed",
							Width: 2,
						},
					},
				}
			},
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}
	return buf.Bytes(), nil
}
