package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/session"
)

func (a *app) printActive() {
	rec, ok := a.tracker.Store.Active()
	if !ok {
		fmt.Fprintln(a.out, "No active order.")
		return
	}
	printRecord(a.out, rec)
}

func printRecord(w io.Writer, rec model.OrderRecord) {
	if rec.OrderID != "" {
		fmt.Fprintf(w, "Order:      %s\n", rec.OrderID)
	}
	fmt.Fprintf(w, "Status:     %s\n", rec.Status.Label())
	if rec.Patient != nil {
		line := rec.Patient.DisplayName()
		if rec.Patient.MRN != "" {
			line += " (MRN " + rec.Patient.MRN + ")"
		}
		fmt.Fprintf(w, "Patient:    %s\n", line)
	}
	if rec.Medication != nil && rec.Medication.Name != "" {
		fmt.Fprintf(w, "Medication: %s\n", rec.Medication.Name)
	}
	if rec.Message != "" {
		fmt.Fprintf(w, "Message:    %s\n", rec.Message)
	}
	if rec.Error != nil {
		if rec.Error.Transient {
			fmt.Fprintf(w, "Refresh failed: %s\n", rec.Error.Message)
		} else {
			fmt.Fprintf(w, "Error:      %s\n", rec.Error.Message)
		}
	}
	if rec.HasCarePlan() {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(rec.CarePlan.Content, "\n"))
	}
}

func printResults(w io.Writer, res model.SearchResults) {
	if res.Count == 0 || len(res.Orders) == 0 {
		fmt.Fprintln(w, "No orders found.")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ORDER", "PATIENT", "MRN", "MEDICATION", "STATUS", "CREATED")
	for _, o := range res.Orders {
		created := ""
		if o.CreatedAt != nil {
			created = o.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		t.Row(o.OrderID, o.PatientName, o.PatientMRN, o.Medication, o.Status.Label(), created)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%d order(s)\n", res.Count)
}

func clearSession(a *app) error {
	if err := session.Clear(a.cfg.SessionFile); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Active order cleared.")
	return nil
}
