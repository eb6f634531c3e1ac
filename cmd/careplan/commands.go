package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/archive"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/download"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/intake"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/tracker"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/tui"
)

func newSubmitCmd(a *app) *cobra.Command {
	var (
		form        intake.Form
		recordsFile string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new care plan order and make it the active order",
		Example: `  careplan submit --first-name Jane --last-name Doe --dob 1980-01-01 --mrn 123456 \
    --provider "Dr. Smith" --npi 1234567890 --medication Pyridostigmine \
    --diagnosis G70.00 --additional-diagnoses "I10, K21.9" --records-file notes.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if recordsFile != "" {
				text, err := intake.ReadPatientRecords(recordsFile)
				if err != nil {
					return err
				}
				form.PatientRecords = text
			}
			if missing := form.Missing(); len(missing) > 0 {
				return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
			}
			return a.run(cmd.Context(), func(ctx context.Context) error {
				err := a.tracker.Submitter.Submit(ctx, form)
				a.printActive()
				return err
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.PatientFirstName, "first-name", "", "Patient first name")
	f.StringVar(&form.PatientLastName, "last-name", "", "Patient last name")
	f.StringVar(&form.PatientDOB, "dob", "", "Patient date of birth (YYYY-MM-DD)")
	f.StringVar(&form.PatientMRN, "mrn", "", "Patient MRN (6 digits)")
	f.StringVar(&form.ProviderName, "provider", "", "Referring provider name")
	f.StringVar(&form.ProviderNPI, "npi", "", "Provider NPI (10 digits)")
	f.StringVar(&form.MedicationName, "medication", "", "Medication name")
	f.StringVar(&form.PrimaryDiagnosis, "diagnosis", "", "Primary diagnosis (ICD-10)")
	f.StringVar(&form.AdditionalDiagnoses, "additional-diagnoses", "", "Comma separated ICD-10 codes")
	f.StringVar(&form.MedicationHistory, "medication-history", "", "Comma separated prior medications")
	f.StringVar(&form.PatientRecords, "records", "", "Patient records as free text")
	f.StringVar(&recordsFile, "records-file", "", "Read patient records from a text or PDF file")
	cmd.MarkFlagsMutuallyExclusive("records", "records-file")
	return cmd
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the latest status of the active order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context) error {
				err := a.tracker.Refresher.Refresh(ctx)
				if errors.Is(err, tracker.ErrNoActiveOrder) {
					return errors.New("no active order; submit or select one first")
				}
				a.printActive()
				return err
			})
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active order without contacting the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, ok := a.tracker.Store.Active()
			if !asJSON {
				a.printActive()
				return nil
			}
			if !ok {
				_, err := fmt.Fprintln(a.out, "null")
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the active order as JSON")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search orders by patient name, MRN, medication, or order id",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			res, err := a.tracker.Searcher.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			a.session.LastQuery = query
			printResults(a.out, res)
			return a.persist()
		},
	}
}

func newSelectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "select <order-id>",
		Short: "Load an order by id and make it the active order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context) error {
				err := a.tracker.Selector.Select(ctx, args[0])
				a.printActive()
				return err
			})
		},
	}
}

func newDownloadCmd(a *app) *cobra.Command {
	var (
		outDir    string
		noArchive bool
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the care plan of the active order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ref, err := a.tracker.Exporter.Resolve()
			if err != nil {
				return err
			}
			saver, err := a.saver(ctx, outDir, !noArchive)
			if err != nil {
				return err
			}
			res, err := saver.Save(ctx, a.tracker.Store.Snapshot().OrderID(), ref)
			if res.Path != "" {
				fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", res.Path, res.Size)
			}
			if res.ArchiveKey != "" {
				fmt.Fprintf(a.out, "Archived as s3://%s/%s\n", a.cfg.Archive.Bucket, res.ArchiveKey)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the care plan into")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip the archive upload even when an archive is configured")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the active order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearSession(a)
		},
	}
}

func newTUICmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Track orders interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			saver, err := a.saver(ctx, outDir, true)
			if err != nil {
				return err
			}
			model := tui.New(ctx, a.tracker,
				tui.WithSaver(saver),
				tui.WithLogger(a.log),
				tui.WithQuery(a.session.LastQuery),
			)
			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			_, runErr := program.Run()
			if q := strings.TrimSpace(model.Query()); q != "" {
				a.session.LastQuery = q
			}
			if err := a.persist(); err != nil && runErr == nil {
				runErr = err
			}
			if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory downloads are written into")
	return cmd
}

// saver wires the download target, adding the archive when configured.
func (a *app) saver(ctx context.Context, outDir string, withArchive bool) (download.Saver, error) {
	s := download.Saver{Fetcher: a.api, Dir: outDir}
	if !withArchive || !a.cfg.Archive.Enabled() {
		return s, nil
	}
	arch, err := archive.New(a.cfg.Archive)
	if err != nil {
		return s, err
	}
	if err := arch.EnsureBucket(ctx); err != nil {
		return s, err
	}
	s.Archiver = arch
	return s, nil
}
