// Package processing runs the stub server's care plan generation in a small
// goroutine pool. Orders move pending → processing → completed (or failed)
// with a configurable pause between steps so clients can observe each state.
package processing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/storage"
)

// Job asks the pool to generate the plan for one order.
type Job struct {
	OrderID string
}

// Generator produces care plan content for an order.
type Generator interface {
	Generate(ctx context.Context, order storage.Order) (model.CarePlan, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, order storage.Order) (model.CarePlan, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, order storage.Order) (model.CarePlan, error) {
	return f(ctx, order)
}

// Processor consumes Jobs and updates order lifecycle in the store.
type Processor struct {
	store     *storage.MemoryStore
	generator Generator
	queue     chan Job
	workers   int
	step      time.Duration
	log       zerolog.Logger
}

// New builds a Processor with queue capacity tied to worker count.
func New(store *storage.MemoryStore, gen Generator, workers int, step time.Duration, log zerolog.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if gen == nil {
		gen = TemplateGenerator{}
	}
	return &Processor{
		store:     store,
		generator: gen,
		queue:     make(chan Job, workers*4),
		workers:   workers,
		step:      step,
		log:       log.With().Str("component", "processing").Logger(),
	}
}

// Start launches worker goroutines that exit when ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
}

// Submit queues a job. A full queue fails the order instead of blocking the
// HTTP handler.
func (p *Processor) Submit(job Job) {
	select {
	case p.queue <- job:
	default:
		p.log.Warn().Str("order_id", job.OrderID).Msg("processing queue full, failing order")
		_ = p.store.UpdateStatus(job.OrderID, model.StatusFailed, "processing queue full")
	}
}

func (p *Processor) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			p.process(ctx, job)
		}
	}
}

func (p *Processor) process(ctx context.Context, job Job) {
	log := p.log.With().Str("order_id", job.OrderID).Logger()
	if !p.pause(ctx) {
		return
	}
	if err := p.store.UpdateStatus(job.OrderID, model.StatusProcessing, ""); err != nil {
		log.Error().Err(err).Msg("mark processing")
		return
	}
	order, err := p.store.Get(job.OrderID)
	if err != nil {
		log.Error().Err(err).Msg("load order")
		return
	}
	if !p.pause(ctx) {
		return
	}
	plan, err := p.generator.Generate(ctx, *order)
	if err != nil {
		log.Warn().Err(err).Msg("care plan generation failed")
		_ = p.store.UpdateStatus(job.OrderID, model.StatusFailed, err.Error())
		return
	}
	if err := p.store.Complete(job.OrderID, plan); err != nil {
		log.Error().Err(err).Msg("store care plan")
		return
	}
	log.Info().Msg("care plan generated")
}

func (p *Processor) pause(ctx context.Context) bool {
	if p.step <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(p.step)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// TemplateModel is reported as the llm_model of template plans.
const TemplateModel = "careplan-stub-template"

// TemplateGenerator fills a fixed markdown outline from the order fields.
type TemplateGenerator struct{}

// Generate implements Generator.
func (TemplateGenerator) Generate(_ context.Context, o storage.Order) (model.CarePlan, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Care Plan: %s\n\n", o.Medication.Name)
	fmt.Fprintf(&b, "Patient: %s (MRN %s, DOB %s)\n", o.PatientName(), o.Patient.MRN, o.Patient.DOB)
	fmt.Fprintf(&b, "Provider: %s (NPI %s)\n", o.Provider.Name, o.Provider.NPI)
	fmt.Fprintf(&b, "Primary Diagnosis: %s\n", orNone(o.Medication.PrimaryDiagnosis))
	fmt.Fprintf(&b, "Additional Diagnoses: %s\n", joinOrNone(o.Medication.AdditionalDiagnoses))
	fmt.Fprintf(&b, "Medication History: %s\n\n", joinOrNone(o.Medication.MedicationHistory))
	b.WriteString("## 1. Problem List / Drug Therapy Problems\n\n")
	fmt.Fprintf(&b, "- Monitor for adverse reactions and interactions with %s.\n\n", o.Medication.Name)
	b.WriteString("## 2. Goals (SMART)\n\n- Achieve therapeutic response within 12 weeks.\n\n")
	b.WriteString("## 3. Pharmacist Interventions / Plan\n\n- Confirm dosing and administration with the prescriber.\n\n")
	b.WriteString("## 4. Monitoring Plan & Lab Schedule\n\n- Baseline labs before the first dose, then every 4 weeks.\n")
	if strings.TrimSpace(o.PatientRecords) != "" {
		b.WriteString("\n## Patient Records\n\n")
		b.WriteString(strings.TrimSpace(o.PatientRecords))
		b.WriteString("\n")
	}
	return model.CarePlan{Content: b.String(), LLMModel: TemplateModel}, nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

func joinOrNone(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return "None"
	}
	return strings.Join(out, ", ")
}
