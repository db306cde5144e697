package notifications

// Notifier defines the interface for notification services
type Notifier interface {
	// SendAlert sends an alert with the specified level and message
	SendAlert(level, message string) error
}

// Nop discards alerts. It stands in when no notifier is configured.
type Nop struct{}

func (Nop) SendAlert(level, message string) error { return nil }

// Multi fans an alert out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) SendAlert(level, message string) error {
	var first error
	for _, n := range m {
		if err := n.SendAlert(level, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Limiter decides whether another alert may go out now.
type Limiter interface {
	Allow() bool
}

// Throttled drops alerts the limiter refuses so a burst of errors does not
// flood the channel. Critical alerts always pass.
type Throttled struct {
	Notifier Notifier
	Limiter  Limiter
	// Dropped is called for each suppressed alert. May be nil.
	Dropped func(level, message string)
}

func (t Throttled) SendAlert(level, message string) error {
	if level != "critical" && !t.Limiter.Allow() {
		if t.Dropped != nil {
			t.Dropped(level, message)
		}
		return nil
	}
	return t.Notifier.SendAlert(level, message)
}
