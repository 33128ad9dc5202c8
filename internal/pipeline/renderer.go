package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/net/html"

	"github.com/ppiankov/repcheck/internal/corpus"
	"github.com/ppiankov/repcheck/internal/model"
)

// Renderer writes reports as JSON, Markdown, marked-up HTML and a terminal summary
type Renderer struct {
	top   int // phrase rows shown; 0 = all
	color bool
}

// NewRenderer creates a renderer
func NewRenderer(top int, color bool) *Renderer {
	return &Renderer{top: top, color: color}
}

// ColorEnabled resolves an "auto", "always" or "never" setting for f
func ColorEnabled(setting string, f *os.File) bool {
	switch setting {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// RenderJSON writes the full report to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	var buf bytes.Buffer
	r.WriteMarkdown(&buf, report)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write Markdown: %w", err)
	}
	return nil
}

// WriteMarkdown renders the preamble, file table, ranked phrases and diagnostics
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) {
	s := report.Settings
	fmt.Fprintf(w, "# Repetitiveness Report\n\n")
	fmt.Fprintf(w, "- **Task:** %s\n", report.Task)
	fmt.Fprintf(w, "- **Case sensitive:** %s\n", yesNo(s.CaseSensitive))
	fmt.Fprintf(w, "- **Fuzzy level:** %s\n", s.FuzzyLabel)
	fmt.Fprintf(w, "- **Words/phrase:** %s\n", s.LengthRange())
	fmt.Fprintf(w, "- **Passes:** %d\n", s.Passes)
	fmt.Fprintf(w, "- **Weight:** %s (%s)\n", s.Model, s.ModelDescription)
	if s.Morphemes {
		fmt.Fprintf(w, "- **Units:** letters within words\n")
	}
	fmt.Fprintf(w, "- **Run:** `%s` at %s\n\n", report.RunID, report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(w, "**Repetitiveness: %.4f**\n\n", report.Repetitiveness)

	if len(report.Files) > 0 {
		fmt.Fprintf(w, "## Files\n\n")
		fmt.Fprintf(w, "| File | Tokens | Separators | Unmatched | Alikeness |\n")
		fmt.Fprintf(w, "|---|---:|---:|---:|---:|\n")
		for _, f := range report.Files {
			fmt.Fprintf(w, "| %s | %d | %d | %d | %.4f |\n",
				mdCell(f.Name), f.Tokens, f.SentenceSeparators, f.Unmatched, f.Alikeness)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "## Phrases\n\n")
	rows := r.rows(report)
	if len(rows) == 0 {
		fmt.Fprintf(w, "No repeated phrases.\n\n")
	} else {
		fmt.Fprintf(w, "| # | Count | Real count | Weight | Acc. repetitiveness | Phrase |\n")
		fmt.Fprintf(w, "|---:|---:|---:|---:|---:|---|\n")
		for _, p := range rows {
			fmt.Fprintf(w, "| %d | %d | %d | %.4f | %.4f | %s |\n",
				p.Rank, p.Count, p.RealCount, p.Weight, p.AccumulatedRepetitiveness, mdCell(p.Text))
		}
		if len(rows) < len(report.Phrases) {
			fmt.Fprintf(w, "\n_%d more phrases omitted._\n", len(report.Phrases)-len(rows))
		}
		fmt.Fprintln(w)
	}

	d := report.Diagnostics
	fmt.Fprintf(w, "## Diagnostics\n\n")
	fmt.Fprintf(w, "- Tokens: %d (%d sentence separators)\n", d.Tokens, d.SentenceSeparators)
	fmt.Fprintf(w, "- Types: %d, average frequency %.4f\n", d.Types, d.AverageTypeFrequency)
	fmt.Fprintf(w, "- Lowest frequency: %d (%s)\n", d.LowestFrequency, mdCell(d.LowestFrequencyType))
	fmt.Fprintf(w, "- Highest frequency: %d (%s)\n", d.HighestFrequency, mdCell(d.HighestFrequencyType))
	fmt.Fprintf(w, "- Phrases found: %d\n", d.Phrases)
	fmt.Fprintf(w, "- Fiducial text length: %d\n", d.FiducialTextLength)
	fmt.Fprintf(w, "- Reduced text length: %d\n", d.ReducedTextLength)
	fmt.Fprintf(w, "- Unmatched tokens: %d\n", d.Unmatched)
	if d.Regression.Defined {
		fmt.Fprintf(w, "- Regression: %s with b = %.4f, m = %.4f over %d phrases\n",
			d.Regression.Formula, d.Regression.Intercept, d.Regression.Slope, d.Regression.Points)
	} else {
		fmt.Fprintf(w, "- Regression: %s undefined (%d phrases)\n", d.Regression.Formula, d.Regression.Points)
	}

	if len(report.Signals) > 0 {
		fmt.Fprintf(w, "\n## Signals\n\n")
		for _, sig := range report.Signals {
			fmt.Fprintf(w, "- **%s** `%s`: %s\n", sig.Severity, sig.Type, sig.Description)
		}
	}
}

// RenderHTML writes one marked-up HTML page per file with claimed spans into
// dir and returns the written paths.
func (r *Renderer) RenderHTML(res *Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create HTML directory: %w", err)
	}
	spans := make(map[string][]model.MarkSpan, len(res.Report.Marks))
	for _, fm := range res.Report.Marks {
		spans[fm.File] = fm.Spans
	}

	var written []string
	used := make(map[string]int)
	for _, src := range res.Corpus.Sources {
		name := SanitizeFilename(src.Name)
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name = fmt.Sprintf("%s-%d", name, n+1)
		} else {
			used[name] = 1
		}
		path := filepath.Join(dir, name+".html")
		if err := os.WriteFile(path, []byte(MarkedPage(src, spans[src.Name])), 0644); err != nil {
			return written, fmt.Errorf("write HTML: %w", err)
		}
		written = append(written, path)
	}
	return written, nil
}

// MarkedPage wraps MarkedText in a standalone HTML document
func MarkedPage(src corpus.Source, spans []model.MarkSpan) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(src.Name))
	b.WriteString("</title>\n<style>span{background:#ffe08a}</style></head>\n<body><pre>")
	b.WriteString(MarkedText(src.Data, spans))
	b.WriteString("</pre></body></html>\n")
	return b.String()
}

// MarkedText escapes data and wraps every span in <span>. A "|" separates
// spans with nothing but whitespace between them.
func MarkedText(data []byte, spans []model.MarkSpan) string {
	sorted := append([]model.MarkSpan(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	pos := int64(0)
	prevEnd := int64(-1)
	for _, s := range sorted {
		if s.Start < pos || s.End > int64(len(data)) || s.End <= s.Start {
			continue
		}
		gap := data[pos:s.Start]
		if prevEnd >= 0 && len(bytes.TrimSpace(gap)) == 0 {
			b.WriteByte('|')
		}
		b.WriteString(html.EscapeString(string(gap)))
		b.WriteString("<span>")
		b.WriteString(html.EscapeString(string(data[s.Start:s.End])))
		b.WriteString("</span>")
		pos, prevEnd = s.End, s.End
	}
	b.WriteString(html.EscapeString(string(data[pos:])))
	return b.String()
}

// WriteSummary prints a short styled summary for the terminal
func (r *Renderer) WriteSummary(w io.Writer, report *model.Report) {
	title, label, value, dim := lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle(), lipgloss.NewStyle()
	if r.color {
		title = title.Bold(true).Foreground(lipgloss.Color("39"))
		label = label.Foreground(lipgloss.Color("245"))
		value = value.Bold(true)
		dim = dim.Foreground(lipgloss.Color("241"))
	}

	fmt.Fprintln(w, title.Render("Repetitiveness "+fmt.Sprintf("%.4f", report.Repetitiveness)))
	fmt.Fprintf(w, "%s %s\n", label.Render("Task:       "), report.Task)
	fmt.Fprintf(w, "%s %s tokens, %s types, %s files\n", label.Render("Corpus:     "),
		value.Render(humanize.Comma(int64(report.Diagnostics.Tokens))),
		value.Render(humanize.Comma(int64(report.Diagnostics.Types))),
		value.Render(humanize.Comma(int64(len(report.Files)))))
	fmt.Fprintf(w, "%s %s counted of %s found\n", label.Render("Phrases:    "),
		value.Render(humanize.Comma(int64(len(report.Phrases)))),
		humanize.Comma(int64(report.Diagnostics.Phrases)))
	fmt.Fprintf(w, "%s %s, fuzzy %s, %s words\n", label.Render("Settings:   "),
		report.Settings.Model, report.Settings.FuzzyLabel, report.Settings.LengthRange())

	for _, p := range r.rows(report) {
		fmt.Fprintf(w, "  %s %s %s\n",
			dim.Render(fmt.Sprintf("%4d.", p.Rank)),
			value.Render(fmt.Sprintf("x%d", p.RealCount)),
			p.Text)
	}
	for _, sig := range report.Signals {
		if sig.Severity == model.SeverityInfo {
			continue
		}
		style := lipgloss.NewStyle()
		if r.color {
			style = style.Foreground(lipgloss.Color("214"))
			if sig.Severity == model.SeverityCritical {
				style = style.Foreground(lipgloss.Color("196"))
			}
		}
		fmt.Fprintf(w, "%s %s\n", style.Render("! "+string(sig.Severity)), sig.Description)
	}
}

func (r *Renderer) rows(report *model.Report) []model.PhraseRow {
	if r.top > 0 && len(report.Phrases) > r.top {
		return report.Phrases[:r.top]
	}
	return report.Phrases
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func mdCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// SanitizeFilename turns an input name or URL into a safe file base name
func SanitizeFilename(s string) string {
	if isURL(s) {
		s = urlFileName(s)
	}
	s = filepath.Base(filepath.Clean(s))

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	s = replacer.Replace(s)
	if s == "" || s == "." {
		s = "input"
	}
	return s
}
