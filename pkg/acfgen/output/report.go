package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/acfgen/pkg/acfgen/generator"
	"github.com/jamesainslie/acfgen/pkg/acfgen/history"
	"github.com/jamesainslie/acfgen/pkg/acfgen/library"
)

// RenderReport builds the styled summary of a generator run.
func RenderReport(r *generator.Report) string {
	var sb strings.Builder

	header := fmt.Sprintf("%s %s  %s %s",
		LabelStyle.Render("Run:"), ValueStyle.Render(r.RunID),
		LabelStyle.Render("Took:"), ValueStyle.Render(formatDuration(r.Finished.Sub(r.Started))))
	sb.WriteString(HeaderBox.Render(header))
	sb.WriteString("\n")

	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, reportRow(res))
	}
	sb.WriteString(renderTable([]string{"STATUS", "APP", "NAME", "BUILD", "SIZE", "DEPOTS"}, rows))

	var failures []string
	for _, res := range r.Results {
		if res.Err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", res.AppID, res.Err))
		}
	}
	if len(failures) > 0 {
		sb.WriteString("\n")
		sb.WriteString(ErrorStyle.Bold(true).Render("Errors:"))
		sb.WriteString("\n")
		for _, f := range failures {
			sb.WriteString(ErrorStyle.Render("  " + f))
			sb.WriteString("\n")
		}
	}

	if len(r.Skipped) > 0 {
		sb.WriteString("\n")
		sb.WriteString(WarningStyle.Bold(true).Render("Skipped output blocks:"))
		sb.WriteString("\n")
		for _, err := range r.Skipped {
			sb.WriteString(WarningStyle.Render("  " + err.Error()))
			sb.WriteString("\n")
		}
	}

	failed := len(r.Results) - r.Succeeded()
	footer := fmt.Sprintf("%s %s  %s %s",
		LabelStyle.Render("Written:"), SuccessStyle.Render(humanize.Comma(int64(r.Succeeded()))),
		LabelStyle.Render("Failed:"), failedStyle(failed).Render(humanize.Comma(int64(failed))))
	sb.WriteString(FooterBox.Render(footer))
	sb.WriteString("\n")

	return sb.String()
}

func reportRow(res generator.Result) []string {
	if res.Err != nil {
		return []string{ErrorStyle.Render("failed"), res.AppID.String(), res.Name, "", "", ""}
	}
	status := SuccessStyle.Render("written")
	if res.Unchanged {
		status = MutedStyle.Render("unchanged")
	}
	return []string{
		status,
		res.AppID.String(),
		res.Name,
		res.BuildID,
		SizeStyle.Render(humanize.IBytes(res.SizeOnDisk)),
		fmt.Sprintf("%d+%d", res.Installed, res.Shared),
	}
}

func failedStyle(n int) lipgloss.Style {
	if n > 0 {
		return ErrorStyle
	}
	return MutedStyle
}

// RenderLibrary builds a table of the manifests found in a library.
func RenderLibrary(entries []library.Entry) string {
	if len(entries) == 0 {
		return MutedStyle.Render("  No app manifests found") + "\n"
	}

	var total uint64
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		if e.Err != nil {
			rows = append(rows, []string{e.AppID.String(), ErrorStyle.Render(e.Err.Error()), "", "", MutedStyle.Render(e.Path)})
			continue
		}
		total += e.SizeOnDisk
		rows = append(rows, []string{
			e.AppID.String(),
			e.Name,
			e.BuildID,
			SizeStyle.Render(humanize.IBytes(e.SizeOnDisk)),
			PathStyle.Render(e.InstallDir),
		})
	}

	var sb strings.Builder
	sb.WriteString(renderTable([]string{"APP", "NAME", "BUILD", "SIZE", "INSTALLDIR"}, rows))
	footer := fmt.Sprintf("%s %s  %s %s",
		LabelStyle.Render("Apps:"), ValueStyle.Render(humanize.Comma(int64(len(entries)))),
		LabelStyle.Render("Total:"), SizeStyle.Render(humanize.IBytes(total)))
	sb.WriteString(FooterBox.Render(footer))
	sb.WriteString("\n")
	return sb.String()
}

// RenderHistory builds a table of history records relative to now.
func RenderHistory(records []history.Record, now time.Time) string {
	if len(records) == 0 {
		return MutedStyle.Render("  No history entries found") + "\n"
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.AppID.String(),
			rec.BuildID,
			SizeStyle.Render(humanize.IBytes(rec.SizeOnDisk)),
			shortDigest(rec.Digest),
			MutedStyle.Render(humanize.RelTime(rec.GeneratedAt, now, "ago", "from now")),
		})
	}
	return renderTable([]string{"APP", "BUILD", "SIZE", "DIGEST", "GENERATED"}, rows)
}

// RenderRecord builds the detail view of one history record.
func RenderRecord(rec *history.Record) string {
	fields := []struct{ label, value string }{
		{"App:", rec.AppID.String()},
		{"Path:", PathStyle.Render(rec.Path)},
		{"Build:", rec.BuildID},
		{"Size:", SizeStyle.Render(fmt.Sprintf("%s (%s bytes)", humanize.IBytes(rec.SizeOnDisk), humanize.Comma(int64(rec.SizeOnDisk))))},
		{"Depots:", fmt.Sprintf("%d installed, %d shared", rec.Installed, rec.Shared)},
		{"Digest:", rec.Digest},
		{"Run:", rec.RunID},
		{"Generated:", rec.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Manifest " + rec.AppID.String()))
	sb.WriteString("\n")
	for _, f := range fields {
		sb.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render(padRight(f.label, 11)), ValueStyle.Render(f.value)))
	}
	return sb.String()
}

// renderTable aligns rows under headers. Cells may already be styled.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(" ")
	for i, h := range headers {
		sb.WriteString(" ")
		sb.WriteString(TableHeaderStyle.Render(padRight(h, widths[i])))
	}
	sb.WriteString("\n")

	for _, row := range rows {
		sb.WriteString(" ")
		for i, cell := range row {
			sb.WriteString(" ")
			sb.WriteString(TableRowStyle.Render(cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
