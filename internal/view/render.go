package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cv-app-yz/cv-app/internal/result"
	"github.com/cv-app-yz/cv-app/internal/submission"
)

const (
	placeholder = "The AI analysis result will appear here."
	noJobs      = "No matching job postings."
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	feedbackStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	failedStyle = feedbackStyle.
			BorderForeground(lipgloss.Color("160"))

	noticeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	jobTitleStyle = lipgloss.NewStyle().Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)
)

// Render formats a snapshot for the terminal.
func Render(s submission.Snapshot) string {
	var b strings.Builder

	if s.Notice != "" {
		b.WriteString(noticeStyle.Render(s.Notice))
		b.WriteString("\n\n")
	}

	b.WriteString(titleStyle.Render("AI Analysis Result"))
	b.WriteString("\n")

	switch s.Status {
	case submission.Idle:
		b.WriteString(mutedStyle.Render(placeholder))
		b.WriteString("\n")
		return b.String()
	case submission.InFlight:
		b.WriteString(mutedStyle.Render("Analyzing..."))
		b.WriteString("\n")
		return b.String()
	case submission.Failed:
		b.WriteString(failedStyle.Render(s.FeedbackText))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(feedbackStyle.Render(s.FeedbackText))
	b.WriteString("\n")

	if s.HasDownload() {
		b.WriteString("\n📄 Optimized CV is ready to download")
		if !strings.HasPrefix(s.DownloadURL, "data:") {
			b.WriteString(": " + linkStyle.Render(s.DownloadURL))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderJobs(s.Jobs))

	return b.String()
}

func renderJobs(jobs []result.JobListing) string {
	if len(jobs) == 0 {
		return mutedStyle.Render(noJobs) + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Matched jobs (%d)", len(jobs))))
	b.WriteString("\n")

	for i, job := range jobs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, jobTitleStyle.Render(JobLabel(job)))

		details := []string{}
		if job.Location != "" {
			details = append(details, job.Location)
		}
		if job.MatchRate != "" {
			details = append(details, "match "+job.MatchRate)
		}
		if len(details) > 0 {
			b.WriteString("   " + mutedStyle.Render(strings.Join(details, " · ")) + "\n")
		}
		if job.ApplyLink != "" {
			b.WriteString("   " + linkStyle.Render(job.ApplyLink) + "\n")
		}
	}

	return b.String()
}

// JobLabel is the one-line name of a listing. Blank listings get a placeholder.
func JobLabel(job result.JobListing) string {
	switch {
	case job.Title != "" && job.Company != "":
		return fmt.Sprintf("%s @ %s", job.Title, job.Company)
	case job.Title != "":
		return job.Title
	case job.Company != "":
		return job.Company
	default:
		return "(untitled posting)"
	}
}
