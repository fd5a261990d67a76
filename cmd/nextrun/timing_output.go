package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"nextrun/internal/pipeline"
)

var stageVerbs = map[pipeline.Stage]string{
	pipeline.StageConfig:  "configured",
	pipeline.StageCompile: "compiled",
	pipeline.StageRun:     "ran",
}

// printStageTimings renders one row per finished stage and a total footer.
func printStageTimings(out io.Writer, timings pipeline.Timings) error {
	if out == nil {
		return nil
	}
	table := tablewriter.NewTable(out)
	table.Header("stage", "time")
	rows := 0
	for _, stage := range pipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		if err := table.Append([]string{stageVerbs[stage], formatMillis(timings.Duration(stage))}); err != nil {
			return err
		}
		rows++
	}
	if rows == 0 {
		return nil
	}
	table.Footer("total", formatMillis(timings.Sum(pipeline.Stages...)))
	return table.Render()
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.1f ms", toMillis(d))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
