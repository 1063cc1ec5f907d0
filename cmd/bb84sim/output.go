package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	yesStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	noStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
)

func yesNo(b bool) string {
	if b {
		return yesStyle.Render("YES")
	}
	return noStyle.Render("NO")
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

const photonHeader = "Photon#  Alice  Basis  Eve    Bob    Same?  Bob bit  Key"

// photonRow renders one event as a line of the photon table.
func photonRow(e bb84.Event) string {
	eve := "-"
	if e.Eavesdropper != nil {
		eve = fmt.Sprintf("%v:%d", e.Eavesdropper.Basis, e.Eavesdropper.Measurement)
		if e.Disturbed {
			eve += "!"
		}
	}
	key := "-"
	if e.KeyBit != nil {
		key = strconv.Itoa(int(*e.KeyBit))
	}
	same := "NO"
	if e.BasesMatch {
		same = "YES"
	}
	return fmt.Sprintf("%-8d %-6d %-6v %-6s %-6v %-6s %-8d %s",
		e.Index, e.SenderBit, e.SenderBasis, eve, e.ReceiverBasis, same, e.ReceiverBit, key)
}

func statsTable(s bb84.Stats, eavesdropper bool) string {
	t := newTable("Total Photons Sent", "Same Basis Cases", "Matching Bits", "Final Key Bits")
	t.Row(strconv.Itoa(s.TotalPhotons), strconv.Itoa(s.SameBasisCases), strconv.Itoa(s.MatchingBits), strconv.Itoa(s.FinalKeyBits))
	out := t.String()
	if eavesdropper {
		e := newTable("Eve Interceptions", "Disturbed Photons", "Normal Transmissions", "Error Rate")
		e.Row(strconv.Itoa(s.Interceptions), strconv.Itoa(s.Disturbed), strconv.Itoa(s.NormalTransmissions()), fmt.Sprintf("%.2f%%", s.ErrorRate()))
		out += "\n" + e.String()
	}
	return out
}

func analysisTable(an bb84.Analysis) string {
	t := newTable("Scenario", "Photons", "Same Basis", "Compared", "Errors", "Error Rate", "Sample Rate", "Disturbance", "Verdict")
	for _, r := range an.Results() {
		verdict := yesStyle.Render("KEY ACCEPTED")
		if r.Verdict == bb84.Rejected {
			verdict = noStyle.Render("KEY REJECTED")
		}
		t.Row(
			r.Scenario,
			strconv.Itoa(r.PhotonsTransmitted),
			strconv.Itoa(r.SameBasisCases),
			strconv.Itoa(r.BitsCompared),
			strconv.Itoa(r.Errors),
			fmt.Sprintf("%.2f%%", r.ErrorRate),
			fmt.Sprintf("%.2f%% [%.1f, %.1f]", r.SampleErrorRate, r.ConfidenceLow, r.ConfidenceHigh),
			fmt.Sprintf("%.2f%%", r.DisturbanceRate),
			verdict,
		)
	}
	return t.String()
}

// formatKey groups a key into bytes, eleven to a line.
func formatKey(key string) string {
	var groups []string
	for i := 0; i < len(key); i += 8 {
		end := i + 8
		if end > len(key) {
			end = len(key)
		}
		groups = append(groups, key[i:end])
	}
	var lines []string
	for i := 0; i < len(groups); i += 11 {
		end := i + 11
		if end > len(groups) {
			end = len(groups)
		}
		lines = append(lines, strings.Join(groups[i:end], " "))
	}
	return strings.Join(lines, "\n")
}
