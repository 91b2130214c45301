package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chatbot"
)

type benchOptions struct {
	Personality string
	Sessions    int
	Concurrency int
	Compare     bool
	Format      string
}

type scriptStep struct {
	Message   string
	Technique string
}

var script = []scriptStep{
	{Message: "Hello, how are you?", Technique: "standard"},
	{Message: "Explain machine learning", Technique: "chain_of_thought"},
	{Message: "Help me debug Python code", Technique: "few_shot"},
	{Message: "Plan a marketing strategy", Technique: "step_by_step"},
	{Message: "Write a story outline", Technique: "analogical"},
	{Message: "What should I ask before choosing a database?", Technique: "socratic"},
}

// Result is the timing of one scripted exchange.
type Result struct {
	Message        string  `json:"message" yaml:"message"`
	Technique      string  `json:"technique" yaml:"technique"`
	LatencyMs      float64 `json:"latencyMs" yaml:"latency_ms"`
	ResponseLength int     `json:"responseLength" yaml:"response_length"`
}

// Report summarises a bench run.
type Report struct {
	Personality string   `json:"personality" yaml:"personality"`
	Sessions    int      `json:"sessions" yaml:"sessions"`
	Exchanges   int      `json:"exchanges" yaml:"exchanges"`
	Comparisons int64    `json:"comparisons" yaml:"comparisons"`
	TotalMs     float64  `json:"totalMs" yaml:"total_ms"`
	AvgMs       float64  `json:"avgMs" yaml:"avg_ms"`
	Results     []Result `json:"results" yaml:"results"`
}

func runBench(ctx context.Context, o benchOptions) (Report, error) {
	if o.Sessions <= 0 {
		return Report{}, errors.New("sessions must be positive")
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}

	personas := persona.NewRegistry(persona.Seed())
	engine := chatbot.New(personas, chat.NewStore(chat.WithMaxSessions(o.Sessions)))

	start := time.Now()
	var (
		mu      sync.Mutex
		results []Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for i := 0; i < o.Sessions; i++ {
		g.Go(func() error {
			session, err := engine.CreateSession(gctx, o.Personality)
			if err != nil {
				return err
			}
			local := make([]Result, 0, len(script))
			for _, step := range script {
				reply, err := engine.SendMessage(gctx, session.ID, step.Message, step.Technique)
				if err != nil {
					return err
				}
				local = append(local, Result{
					Message:        step.Message,
					Technique:      string(reply.Technique),
					LatencyMs:      reply.LatencyMs,
					ResponseLength: len(reply.Response),
				})
				if o.Compare {
					if _, err := engine.Compare(gctx, step.Message, step.Technique); err != nil {
						return err
					}
				}
			}
			mu.Lock()
			results = append(results, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	snap := engine.Metrics()
	report := Report{
		Personality: o.Personality,
		Sessions:    o.Sessions,
		Exchanges:   len(results),
		Comparisons: snap.Comparisons,
		TotalMs:     float64(time.Since(start)) / float64(time.Millisecond),
		AvgMs:       snap.AvgResponseTimeMs,
		Results:     results,
	}
	if o.Sessions > 1 {
		// per-step rows from the first session are enough for a readable report
		report.Results = results[:len(script)]
	}
	return report, nil
}
