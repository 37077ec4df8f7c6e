package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/sitekb/pkg/pipeline"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printSummary(result pipeline.Result, path, model string) {
	fmt.Println()
	color.Green("✓ Knowledge base written to %s\n", path)
	fmt.Printf("  Records:    %d\n", len(result.Records))
	fmt.Printf("  Documents:  %d processed, %d skipped\n", result.Processed, result.Skipped)
	if result.Fallbacks > 0 {
		color.Yellow("  Fallbacks:  %d answers used the fallback text\n", result.Fallbacks)
	}
	fmt.Printf("  Model:      %s\n", model)
	fmt.Printf("  Duration:   %s\n", result.Duration.Round(time.Second/10))
	fmt.Printf("  Run:        %s\n", result.RunID)
}
