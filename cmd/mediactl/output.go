package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/almensu/yanghooAI/internal/api/dto"
	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/layout"
	"github.com/almensu/yanghooAI/internal/processor"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"

	statusLabelWidth = 16
	maxTitleWidth    = 48
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type batchItem struct {
	URL      string `json:"url"`
	HashName string `json:"hash_name,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

func jobViews(jobs []domain.Job) []dto.VideoDTO {
	views := make([]dto.VideoDTO, len(jobs))
	for i := range jobs {
		views[i] = dto.NewVideoDTO(&jobs[i])
	}
	return views
}

func batchView(results []processor.BatchResult) []batchItem {
	items := make([]batchItem, len(results))
	for i, r := range results {
		items[i] = batchItem{URL: r.URL}
		if r.Err != nil {
			items[i].Error = r.Err.Error()
			continue
		}
		items[i].HashName = r.Job.HashName
		items[i].Status = processor.DeriveStatus(r.Job).String()
	}
	return items
}

var titleCaser = cases.Title(language.Und)

// stageLabel turns a stored status such as "generating_subtitle" into "Generating Subtitle".
func stageLabel(status string) string {
	if status == "" {
		return "-"
	}
	return titleCaser.String(strings.ReplaceAll(status, "_", " "))
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func jobRows(jobs []domain.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		title := job.Title.String
		if !job.Title.Valid {
			title = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.ID),
			job.HashName,
			truncate(title, maxTitleWidth),
			stageLabel(processor.DeriveStatus(&job).String()),
			job.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// renderJobStatus lists the job header and one line per artifact.
func renderJobStatus(job *domain.Job, colorize bool) []string {
	title := job.Title.String
	if !job.Title.Valid {
		title = "-"
	}

	lines := []string{
		fmt.Sprintf("%-*s %s", statusLabelWidth, "Hash:", job.HashName),
		fmt.Sprintf("%-*s %s", statusLabelWidth, "Title:", title),
		fmt.Sprintf("%-*s %s", statusLabelWidth, "Source:", job.SourceURL),
		fmt.Sprintf("%-*s %s", statusLabelWidth, "Stage:", stageLabel(processor.DeriveStatus(job).String())),
		"",
	}

	artifacts := []struct {
		label    string
		path     string
		optional bool
	}{
		{"Video", job.VideoPath.String, false},
		{"Thumbnail", job.ThumbnailPath.String, true},
		{"Audio", job.AudioPath.String, false},
		{"Transcript", job.TranscriptJSONPath.String, false},
		{"Word timings", job.WordLevelJSONPath.String, true},
		{"Translation", job.TranslatedJSONPath.String, false},
		{"Subtitles", job.SubtitleASSPath.String, false},
		{"English doc", job.DocEnPath.String, false},
		{"Chinese doc", job.DocZhPath.String, false},
	}
	for _, a := range artifacts {
		lines = append(lines, artifactLine(a.label, a.path, a.optional, colorize))
	}
	return lines
}

func artifactLine(label, path string, optional, colorize bool) string {
	state, color := "OK", ansiGreen
	switch {
	case layout.Exists(path):
	case optional:
		state, color, path = "SKIP", ansiYellow, ""
	default:
		state, color, path = "MISSING", ansiRed, ""
	}

	line := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, label+":", state, path)
	line = strings.TrimRight(line, " ")
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
