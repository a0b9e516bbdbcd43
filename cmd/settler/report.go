package main

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/muhvmmv/Tyche-Betting/internal/settlement"
)

func printReport(w io.Writer, rep settlement.Report) {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	table.Append("scanned", strconv.Itoa(rep.Scanned))
	table.Append("fixtures", strconv.Itoa(rep.Fixtures))
	table.Append("won", strconv.Itoa(rep.Won))
	table.Append("lost", strconv.Itoa(rep.Lost))
	table.Append("skipped", strconv.Itoa(rep.Skipped))
	table.Append("failed", strconv.Itoa(rep.Failed))
	table.Append("credited", rep.Credited.String())
	table.Append("duration", rep.Duration.Round(time.Millisecond).String())
	table.Render()
}
