// package formatter renders event lists, sync progress and sync history for the terminal and for export
// (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/dustin/go-humanize"
)

// DisplayLayout is the date format used wherever a timestamp is shown to a user.
const DisplayLayout = "2 January 2006, 3:04 PM"

// Zones converts naive CRM timestamps for display.
//
// System is the zone the CRM stores wall clocks in; Display is the user's zone. Nil zones are UTC.
type Zones struct {
	System  *time.Location
	Display *time.Location
}

// Time interprets ts in the system zone and renders it in the display zone.
// A zero timestamp renders as an empty string.
func (z Zones) Time(ts models.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	display := z.Display
	if display == nil {
		display = time.UTC
	}
	return ts.In(z.System).In(display).Format(DisplayLayout)
}

// Range renders start and end, dropping the repeated date when both fall on the same display day.
func (z Zones) Range(start, end models.Timestamp) string {
	from, to := z.Time(start), z.Time(end)
	if from == "" || to == "" {
		return from + to
	}
	if sameDay(from, to) {
		return from + " to " + to[strings.LastIndex(to, ", ")+2:]
	}
	return from + " to " + to
}

func sameDay(a, b string) bool {
	i, j := strings.LastIndex(a, ", "), strings.LastIndex(b, ", ")
	return i >= 0 && j >= 0 && a[:i] == b[:j]
}

func kindLabel(e models.ScheduledEvent) string {
	if e.IsSlot() {
		return "slot"
	}
	return "event"
}

func participantLabels(ps []models.EventParticipant) []string {
	labels := make([]string, 0, len(ps))
	for _, p := range ps {
		labels = append(labels, p.Label())
	}
	return labels
}

// EventsToCSV converts events to CSV with one row per confirmed event or slot proposal.
//
// Columns: Name, Type, Subject, Status, Slot, Start, End, Location, Participants
func EventsToCSV(events []models.ScheduledEvent, z Zones) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Name", "Type", "Subject", "Status", "Slot", "Start", "End", "Location", "Participants"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range events {
		participants := strings.Join(participantLabels(e.Participants), "; ")
		row := func(slot string, start, end models.Timestamp) []string {
			return []string{e.Name, kindLabel(e), e.Subject, e.Status, slot, z.Time(start), z.Time(end), e.Location, participants}
		}

		records := [][]string{row("", e.StartsOn, e.EndsOn)}
		if e.IsSlot() {
			records = records[:0]
			for _, p := range e.Proposals {
				records = append(records, row(strconv.Itoa(p.Idx), p.StartsOn, p.EndsOn))
			}
		}
		for _, record := range records {
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// EventsToMarkdown converts the event list of ref to Markdown
func EventsToMarkdown(ref models.Reference, events []models.ScheduledEvent, z Zones) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s %s\n\n", ref.Doctype, ref.Docname)
	fmt.Fprintf(&buf, "**Events**: %d\n\n", len(events))

	for _, e := range events {
		fmt.Fprintf(&buf, "## %s\n\n", e.Subject)
		fmt.Fprintf(&buf, "- **Name**: %s\n", e.Name)
		fmt.Fprintf(&buf, "- **Type**: %s\n", kindLabel(e))
		if e.Status != "" {
			fmt.Fprintf(&buf, "- **Status**: %s\n", e.Status)
		}
		if !e.IsSlot() {
			fmt.Fprintf(&buf, "- **When**: %s\n", z.Range(e.StartsOn, e.EndsOn))
		}
		if e.Location != "" {
			fmt.Fprintf(&buf, "- **Location**: %s\n", e.Location)
		}
		if e.MeetingLink != "" {
			fmt.Fprintf(&buf, "- **Meeting**: [Join](%s)\n", e.MeetingLink)
		}
		if len(e.Participants) > 0 {
			fmt.Fprintf(&buf, "- **Participants**: %s\n", strings.Join(participantLabels(e.Participants), ", "))
		}
		if e.IsSlot() {
			buf.WriteString("\n### Proposed slots\n\n")
			for _, p := range e.Proposals {
				fmt.Fprintf(&buf, "%d. %s\n", p.Idx, z.Range(p.StartsOn, p.EndsOn))
			}
		}
		if e.Description != "" {
			fmt.Fprintf(&buf, "\n%s\n", e.Description)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// EventsToText converts events to a numbered plain text list
func EventsToText(events []models.ScheduledEvent, z Zones) ([]byte, error) {
	var buf bytes.Buffer

	if len(events) == 0 {
		buf.WriteString("No events\n")
		return buf.Bytes(), nil
	}

	for i, e := range events {
		status := e.Status
		if status == "" {
			status = "Open"
		}
		fmt.Fprintf(&buf, "%d. %s [%s, %s]\n", i+1, e.Subject, kindLabel(e), status)
		if e.IsSlot() {
			for _, p := range e.Proposals {
				fmt.Fprintf(&buf, "   slot %d: %s\n", p.Idx, z.Range(p.StartsOn, p.EndsOn))
			}
		} else {
			fmt.Fprintf(&buf, "   %s\n", z.Range(e.StartsOn, e.EndsOn))
		}
		if len(e.Participants) > 0 {
			fmt.Fprintf(&buf, "   with %s\n", strings.Join(participantLabels(e.Participants), ", "))
		}
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON summary of the list (reference, counts and export time)
func ToMetadataJSON(ref models.Reference, events []models.ScheduledEvent, exportedAt time.Time) ([]byte, error) {
	slots := 0
	for _, e := range events {
		if e.IsSlot() {
			slots++
		}
	}
	meta := struct {
		Doctype    string    `json:"reference_doctype"`
		Docname    string    `json:"reference_docname"`
		Events     int       `json:"events"`
		Slots      int       `json:"slots"`
		ExportedAt time.Time `json:"exported_at"`
	}{ref.Doctype, ref.Docname, len(events) - slots, slots, exportedAt.UTC()}
	return json.MarshalIndent(meta, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	EventsFile   string
	MetadataFile string
}

// WriteCSVExport exports events to CSV with an accompanying metadata JSON file.
//
// Defaults to the reference docname as the base filename & creates {base}_events.csv and {base}_metadata.json
func WriteCSVExport(ref models.Reference, events []models.ScheduledEvent, z Zones, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = ref.Docname
	}

	csvData, err := EventsToCSV(events, z)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	eventsFile := baseFilepath + "_events.csv"
	if err := os.WriteFile(eventsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(ref, events, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{EventsFile: eventsFile, MetadataFile: metadataFile}, nil
}

// WriteMarkdownExport writes the Markdown list to {dir}/README.md. Directory name defaults to the reference docname.
func WriteMarkdownExport(ref models.Reference, events []models.ScheduledEvent, z Zones, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = ref.Docname
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := EventsToMarkdown(ref, events, z)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return mdFile, nil
}

// WriteTextExport writes the plain text list. Defaults to {docname}_events.txt as the filename.
func WriteTextExport(ref models.Reference, events []models.ScheduledEvent, z Zones, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_events.txt", ref.Docname)
	}

	textData, err := EventsToText(events, z)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// ProgressLine renders "title [####------] 1,200/3,000 (40%)" with a bar of width cells.
func ProgressLine(title string, progress, total, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if total > 0 {
		filled = min(width, progress*width/total)
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)

	pct := 0
	if total > 0 {
		pct = progress * 100 / total
	}
	return fmt.Sprintf("%s [%s] %s/%s (%d%%)", title, bar, humanize.Comma(int64(progress)), humanize.Comma(int64(total)), pct)
}

// SyncHistory renders one line per job, newest first as given, with times relative to now.
func SyncHistory(jobs []models.SyncJob, now time.Time) []byte {
	var buf bytes.Buffer

	if len(jobs) == 0 {
		buf.WriteString("No sync runs recorded\n")
		return buf.Bytes()
	}

	for _, j := range jobs {
		fmt.Fprintf(&buf, "#%-4d %-16s %-10s %s/%s  started %s",
			j.Sequence, j.Kind, j.Status,
			humanize.Comma(int64(j.Progress)), humanize.Comma(int64(j.Total)),
			humanize.RelTime(j.StartedAt, now, "ago", "from now"))
		if j.FinishedAt != nil {
			fmt.Fprintf(&buf, ", took %s", j.FinishedAt.Sub(j.StartedAt).Round(time.Second))
		}
		if j.Error != "" {
			fmt.Fprintf(&buf, "  error: %s", j.Error)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}
