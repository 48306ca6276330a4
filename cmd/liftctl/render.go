package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/claude/liftlog/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	restStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

type printer struct {
	w      io.Writer
	styled bool
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatClock renders seconds as m:ss, or h:mm:ss from one hour.
func formatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, secs%3600/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func (p *printer) view(v models.SessionView) {
	if v.Active == nil {
		fmt.Fprintln(p.w, p.style(mutedStyle, "no active workout"))
		return
	}

	phase := string(v.Phase)
	switch v.Phase {
	case models.PhaseRunning:
		phase = p.style(runningStyle, phase)
	case models.PhasePaused:
		phase = p.style(pausedStyle, phase)
	}
	fmt.Fprintf(p.w, "%s  %s  %s\n", p.style(titleStyle, v.Active.Title), phase, formatClock(v.Timing.ElapsedSeconds))

	if v.Rest.IsResting {
		fmt.Fprintln(p.w, p.style(restStyle, fmt.Sprintf("rest (%s) %s remaining", v.Rest.Type, formatClock(v.RestRemaining))))
	}

	for _, ex := range v.Active.Exercises {
		name := ex.Name
		if ex.Done() {
			name = p.style(doneStyle, name)
		} else {
			name = p.style(labelStyle, name)
		}
		fmt.Fprintf(p.w, "%s %s\n", name, p.style(mutedStyle, "["+ex.ID+"]"))
		for i := range ex.CompletedReps {
			mark := "[ ]"
			if ex.SetsCompleted[i] {
				mark = p.style(doneStyle, "[x]")
			}
			line := fmt.Sprintf("  %s set %d: %d/%d", mark, i+1, ex.CompletedReps[i], ex.Reps)
			if i < len(ex.LastPerformance) {
				line += p.style(mutedStyle, fmt.Sprintf("  (last %d)", ex.LastPerformance[i]))
			}
			fmt.Fprintln(p.w, line)
		}
	}

	if v.Complete {
		fmt.Fprintln(p.w, p.style(doneStyle, "all sets complete"))
	}
}

func (p *printer) workouts(list []models.TemplateSummary) {
	if len(list) == 0 {
		fmt.Fprintln(p.w, p.style(mutedStyle, "no workouts"))
		return
	}
	for _, s := range list {
		last := "never"
		if s.LastCompletedAt != nil {
			last = s.LastCompletedAt.Local().Format("2006-01-02")
		}
		fmt.Fprintf(p.w, "%s  %s  %d min, %d exercises, last %s\n",
			p.style(mutedStyle, s.ID), p.style(labelStyle, s.Title), s.TotalTime, len(s.Exercises), last)
	}
}

func (p *printer) history(list []models.CompletedSession) {
	if len(list) == 0 {
		fmt.Fprintln(p.w, p.style(mutedStyle, "no sessions"))
		return
	}
	for _, s := range list {
		sets := 0
		for _, ex := range s.Exercises {
			for _, c := range ex.SetsCompleted {
				if c {
					sets++
				}
			}
		}
		fmt.Fprintf(p.w, "%s  %s  %s  %d sets\n",
			s.CompletedAt.Local().Format(time.DateTime), p.style(labelStyle, s.Title), formatClock(s.Duration), sets)
	}
}

func (p *printer) finished(s models.CompletedSession) {
	fmt.Fprintf(p.w, "%s %s in %s\n", p.style(doneStyle, "finished"), s.Title, formatClock(s.Duration))
}

// exerciseLabel trims an exercise argument so users can paste ids with brackets.
func exerciseLabel(arg string) string {
	return strings.Trim(arg, "[] ")
}
