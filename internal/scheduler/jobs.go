package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/smart-ea/internal/graph"
	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/modelloop"
	"github.com/ducminhle1904/smart-ea/internal/risk"
)

// Job names.
const (
	JobEvaluate      = "evaluate"
	JobRetrain       = "retrain"
	JobReOptimize    = "reoptimize"
	JobDrawdownCheck = "drawdown-check"
)

// Intervals sets how often each standard job runs.
type Intervals struct {
	Evaluate      time.Duration `yaml:"evaluate"`
	Retrain       time.Duration `yaml:"retrain"`
	ReOptimize    time.Duration `yaml:"reoptimize"`
	DrawdownCheck time.Duration `yaml:"drawdown_check"`
}

// DefaultIntervals: daily evaluation, retrain every 3 days, weekly
// re-optimization, hourly drawdown check.
func DefaultIntervals() Intervals {
	return Intervals{
		Evaluate:      24 * time.Hour,
		Retrain:       72 * time.Hour,
		ReOptimize:    168 * time.Hour,
		DrawdownCheck: time.Hour,
	}
}

// EventSink records structured events.
type EventSink interface {
	Log(ctx context.Context, level logger.LogLevel, message string, data map[string]interface{}) error
}

// StandardJobs builds the model-loop and drawdown jobs. events and g may be
// nil.
func StandardJobs(loop *modelloop.Loop, overseer *risk.Overseer, iv Intervals, events EventSink, g journal.EntityCreator) []Job {
	def := DefaultIntervals()
	if iv.Evaluate <= 0 {
		iv.Evaluate = def.Evaluate
	}
	if iv.Retrain <= 0 {
		iv.Retrain = def.Retrain
	}
	if iv.ReOptimize <= 0 {
		iv.ReOptimize = def.ReOptimize
	}
	if iv.DrawdownCheck <= 0 {
		iv.DrawdownCheck = def.DrawdownCheck
	}

	return []Job{
		{
			Name:  JobEvaluate,
			Every: iv.Evaluate,
			Run: func(ctx context.Context) error {
				if _, err := loop.EvaluatePerformance(ctx); err != nil {
					return err
				}
				return scheduleEvent(ctx, events, g, "Daily evaluation completed")
			},
		},
		{
			Name:  JobRetrain,
			Every: iv.Retrain,
			Run: func(ctx context.Context) error {
				_, err := loop.Retrain(ctx)
				return err
			},
		},
		{
			Name:  JobReOptimize,
			Every: iv.ReOptimize,
			Run: func(ctx context.Context) error {
				_, err := loop.ReOptimize(ctx)
				return err
			},
		},
		{
			Name:  JobDrawdownCheck,
			Every: iv.DrawdownCheck,
			Run: func(ctx context.Context) error {
				overseer.CheckDrawdown(ctx)
				return nil
			},
		},
	}
}

func scheduleEvent(ctx context.Context, events EventSink, g journal.EntityCreator, observation string) error {
	if events != nil {
		if err := events.Log(ctx, logger.LogLevelInfo, observation, map[string]interface{}{"entity_type": "ScheduleEvent"}); err != nil {
			return err
		}
	}
	if g != nil {
		e := graph.Entity{
			Name:         fmt.Sprintf("Schedule_Log_%d", time.Now().Unix()),
			EntityType:   "ScheduleEvent",
			Observations: []string{observation},
		}
		if err := g.CreateEntities(ctx, []graph.Entity{e}); err != nil {
			return fmt.Errorf("record schedule event: %w", err)
		}
	}
	return nil
}
