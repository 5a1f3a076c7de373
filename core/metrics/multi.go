package metrics

// MultiSink fans records out to multiple sinks. Optional recorders are
// forwarded only to sinks that implement them.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink over the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPoll forwards the record to all sinks, returning the first error.
func (m *MultiSink) RecordPoll(rec PollRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordPoll(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordDecision forwards decision records.
func (m *MultiSink) RecordDecision(rec DecisionRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(DecisionRecorder); ok {
			if err := r.RecordDecision(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSession forwards session records.
func (m *MultiSink) RecordSession(rec SessionRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(SessionRecorder); ok {
			if err := r.RecordSession(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordActuation forwards actuation records.
func (m *MultiSink) RecordActuation(rec ActuationRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(ActuationRecorder); ok {
			if err := r.RecordActuation(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordForecast forwards forecast records.
func (m *MultiSink) RecordForecast(rec ForecastRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(ForecastRecorder); ok {
			if err := r.RecordForecast(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
