package journal

import (
	"context"
	"fmt"

	"github.com/ducminhle1904/smart-ea/internal/graph"
	"github.com/ducminhle1904/smart-ea/internal/logger"
)

// Alerter delivers a leveled alert message.
type Alerter interface {
	SendAlert(level, message string) error
}

// AlertForwarder sends forwarded events as alerts.
type AlertForwarder struct {
	Alerter Alerter
}

func (f AlertForwarder) Forward(ctx context.Context, e Event) error {
	if e.Level == logger.LogLevelCritical {
		return f.Alerter.SendAlert("critical", "[CRITICAL] "+e.Message)
	}
	return f.Alerter.SendAlert("error", e.Message)
}

// EntityCreator adds nodes to a knowledge graph.
type EntityCreator interface {
	CreateEntities(ctx context.Context, entities []graph.Entity) error
}

// GraphForwarder records forwarded events as ErrorLog graph entities.
type GraphForwarder struct {
	Graph EntityCreator
}

func (f GraphForwarder) Forward(ctx context.Context, e Event) error {
	obs := []string{
		e.Message,
		fmt.Sprintf("level: %s", e.Level),
		fmt.Sprintf("timestamp: %s", formatTime(e.Timestamp)),
	}
	for k, v := range e.Data {
		obs = append(obs, fmt.Sprintf("%s: %v", k, v))
	}
	return f.Graph.CreateEntities(ctx, []graph.Entity{{
		Name:         "Error_" + e.ID,
		EntityType:   "ErrorLog",
		Observations: obs,
	}})
}
