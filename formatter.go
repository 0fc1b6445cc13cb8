package fwts

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-fwts/exitcodes"
	"github.com/ethereum-optimism/infra/op-fwts/reporting"
	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// ResultFormatter is responsible for formatting and displaying test results.
type ResultFormatter interface {
	FormatResults(report *reporting.Report) error
}

// ConsoleResultFormatter prints a results table followed by the per-bucket
// summary.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

func NewConsoleResultFormatter(logger log.Logger, out io.Writer) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
		out:    out,
	}
}

// FormatResults formats and displays the results of a run.
func (f *ConsoleResultFormatter) FormatResults(report *reporting.Report) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("fwts Results (%s)", formatDuration(report.Duration)))

	t.AppendHeader(table.Row{"Test", "Result", "Exit", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Result", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Exit", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})
	for _, entry := range report.Tests {
		t.AppendRow(table.Row{
			entry.ID,
			strings.Join(entry.Buckets, ", "),
			entry.ExitCode,
			formatDuration(entry.Duration),
		})
	}

	if report.Sleep != nil && len(report.Sleep.Iterations) > 0 {
		t.AppendSeparator()
		for _, it := range report.Sleep.Iterations {
			t.AppendRow(table.Row{
				fmt.Sprintf("└─ cycle %d", it.Index),
				cycleResult(it),
				"",
				fmt.Sprintf("%.3fs / %.3fs", it.SleepElapsed, it.ResumeElapsed),
			})
		}
	}

	if report.ExitCode == exitcodes.Success {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}
	t.AppendFooter(table.Row{
		"VERDICT",
		fmt.Sprintf("fail level %s", report.FailLevel),
		report.ExitCode,
		formatDuration(report.Duration),
	})
	t.Render()

	return reporting.WriteConsoleSummary(f.out, report)
}

func cycleResult(it types.SleepIteration) string {
	if it.Failed() {
		if it.Error != "" {
			return "✗ " + it.Error
		}
		return "✗ fail"
	}
	return "✓ pass"
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
