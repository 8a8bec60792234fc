package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/models"
	"github.com/joseph-ayodele/idcard-extractor/internal/record"
)

var (
	errStyle   = color.New(color.FgRed, color.Bold)
	warnStyle  = color.New(color.FgYellow)
	okStyle    = color.New(color.FgGreen, color.Bold)
	labelStyle = color.New(color.FgCyan)
	dimStyle   = color.New(color.Faint)
)

// printError prints to stderr, falling back to stdout if stderr fails.
func printError(format string, args ...any) {
	if _, err := errStyle.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// printInfo writes status lines to stderr so stdout stays machine-readable.
func printInfo(format string, args ...any) {
	_, _ = dimStyle.Fprintf(os.Stderr, format, args...)
}

func successMark() string {
	return okStyle.Sprint("OK")
}

// printDiagnostic renders a failed extraction with its hint.
func printDiagnostic(err error, endpoint string) {
	e, ok := llm.AsError(err)
	if !ok {
		printError("Error: %v\n", err)
		return
	}

	title := e.Kind.String()
	if e.StatusCode != 0 {
		title = fmt.Sprintf("%s (HTTP %d)", title, e.StatusCode)
	}
	printError("Extraction failed: %s\n", title)
	fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Sprint("Endpoint:"), endpoint)

	detail := strings.TrimSpace(e.Detail)
	if e.Cause != nil {
		detail = strings.TrimSpace(detail + ": " + e.Cause.Error())
	}
	if detail != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Sprint("Detail:"), truncate(detail, 600))
	}
	if e.Hint != nil {
		fmt.Fprintln(os.Stderr)
		_, _ = warnStyle.Fprintln(os.Stderr, e.Hint.Summary)
		for _, s := range e.Hint.Suggestions {
			fmt.Fprintf(os.Stderr, "  - %s\n", s)
		}
	}
}

func printRecord(hint llm.SchemaHint, res record.Result) {
	width := 0
	for _, name := range hint.Names() {
		width = max(width, len(name))
	}
	for _, name := range hint.Names() {
		v, ok := res.Record.Fields[name]
		if !ok {
			continue
		}
		fmt.Printf("%s %s\n", labelStyle.Sprintf("%-*s", width+1, name+":"), v)
	}

	var extra []string
	for k := range res.Record.Fields {
		if !containsName(hint, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		fmt.Printf("%s %s\n", labelStyle.Sprintf("%-*s", width+1, k+":"), res.Record.Fields[k])
	}

	for _, e := range res.Report.Errors {
		_, _ = errStyle.Fprintf(os.Stderr, "invalid: %s\n", e)
	}
	for _, w := range res.Report.Warnings {
		_, _ = warnStyle.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func containsName(hint llm.SchemaHint, name string) bool {
	for _, n := range hint.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func printRecommendation(rec models.Recommendation) {
	sel := rec.Selected.Model
	fmt.Printf("%s %s\n", labelStyle.Sprint("Document:"), strings.ToUpper(string(rec.Document)))
	fmt.Printf("%s %.1f GB\n", labelStyle.Sprint("VRAM:"), rec.AvailableVRAMGB)
	fmt.Printf("%s %s\n", labelStyle.Sprint("Recommended:"), okStyle.Sprint(sel.ID))
	fmt.Printf("  %s\n", rec.Selected.Reason)
	fmt.Printf("  %.1f GB VRAM, ~%.1fs per document, %.0f%% accuracy\n", sel.VRAMGB, sel.SpeedSeconds, sel.AccuracyPct)
	if !rec.Sufficient {
		_, _ = warnStyle.Println("  Not enough VRAM for this model.")
	}
	if len(rec.Alternatives) > 0 {
		fmt.Println(labelStyle.Sprint("Alternatives:"))
		for _, m := range rec.Alternatives {
			fmt.Printf("  %-20s %5.1f GB %6.1fs %4.0f%%\n", m.ID, m.VRAMGB, m.SpeedSeconds, m.AccuracyPct)
		}
	}
	fmt.Println(labelStyle.Sprint("Tips:"))
	for _, t := range rec.Tips {
		fmt.Printf("  - %s\n", t)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
