package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/iziplay/pubmed-records/pkg/convert"
)

const maxErrorWidth = 60

// UseColor reports whether w is a terminal that should get colored output.
func UseColor(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type cell struct {
	text  string
	paint *color.Color
}

// Write renders one row per archive followed by a run summary line.
func Write(w io.Writer, results []convert.FileResult, summary convert.Summary, colored bool) error {
	paint := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	green, yellow, red := paint(color.FgGreen), paint(color.FgYellow), paint(color.FgRed)
	bold := paint(color.Bold)

	rows := [][]cell{{
		{text: "ARCHIVE", paint: bold},
		{text: "STATUS", paint: bold},
		{text: "RECORDS", paint: bold},
		{text: "SKIPPED", paint: bold},
		{text: "WARNINGS", paint: bold},
		{text: "SIZE", paint: bold},
		{text: "TIME", paint: bold},
		{text: "ERROR", paint: bold},
	}}

	for _, r := range results {
		status := cell{text: string(convert.StatusConverted), paint: green}
		errText := ""
		switch {
		case r.Err != nil:
			status = cell{text: string(convert.StatusFailed), paint: red}
			errText = runewidth.Truncate(r.Err.Error(), maxErrorWidth, "…")
		case r.Existing:
			status = cell{text: string(convert.StatusExisting), paint: yellow}
		}

		rows = append(rows, []cell{
			{text: r.Name},
			status,
			{text: humanize.Comma(int64(r.Records))},
			{text: humanize.Comma(int64(r.Skipped))},
			{text: humanize.Comma(int64(len(r.Warnings)))},
			{text: humanize.Bytes(uint64(r.Bytes))},
			{text: r.Duration.Round(time.Millisecond).String()},
			{text: errText, paint: red},
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c.text))
		}
	}

	for _, row := range rows {
		var sb strings.Builder
		for i, c := range row {
			text := c.text
			if c.paint != nil && text != "" {
				text = c.paint.Sprint(text)
			}
			sb.WriteString(text)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(c.text)+2))
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")); err != nil {
			return err
		}
	}

	line := fmt.Sprintf("%d/%d archives converted, %d existing, %d failed: %s records (%s skipped, %s deleted), %s written in %s",
		summary.Converted, summary.Archives, summary.Existing, summary.Failed,
		humanize.Comma(int64(summary.Records)), humanize.Comma(int64(summary.Skipped)), humanize.Comma(int64(summary.Deleted)),
		humanize.Bytes(uint64(summary.Bytes)), summary.Duration.Round(time.Millisecond))

	summaryColor := green
	if summary.Failed > 0 {
		summaryColor = red
	}
	_, err := fmt.Fprintln(w, "\n"+summaryColor.Sprint(line))
	return err
}
