package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/muhvmmv/Tyche-Betting/internal/money"
	"github.com/muhvmmv/Tyche-Betting/internal/settlement"
)

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, settlement.Report{Scanned: 4, Won: 1, Lost: 2, Skipped: 1, Credited: money.MustParse("25"), Duration: 1500 * time.Millisecond})

	out := buf.String()
	for _, want := range []string{"scanned", "25.00", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
