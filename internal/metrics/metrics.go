// Package metrics counts pipeline work for Prometheus. Every stage records
// into a Metrics value; a nil *Metrics discards everything.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons reported by the dataset builder.
const (
	ReasonEmptyText     = "empty_text"
	ReasonTooLong       = "too_long"
	ReasonPhonemization = "phonemization"
	ReasonMissingAudio  = "missing_audio"
)

// Metrics holds the pipeline counters and the registry they live in.
type Metrics struct {
	Registry *prometheus.Registry

	sentencesSegmented prometheus.Counter
	clipsSliced        prometheus.Counter
	sentencesMerged    prometheus.Counter
	wavsCopied         prometheus.Counter

	// clipsRepaired labels: mode ("pad", "silence").
	clipsRepaired *prometheus.CounterVec
	// samplesDropped labels: reason (see Reason* constants).
	samplesDropped *prometheus.CounterVec
	// samplesWritten labels: split ("train", "val").
	samplesWritten *prometheus.CounterVec
}

// New registers all counters in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		sentencesSegmented: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dswav_sentences_segmented_total",
			Help: "Sentences produced by transcript segmentation",
		}),
		clipsSliced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dswav_clips_sliced_total",
			Help: "Sentence clips extracted from source recordings",
		}),
		sentencesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dswav_sentences_merged_total",
			Help: "Sentences imported from merge sources",
		}),
		wavsCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dswav_wavs_copied_total",
			Help: "Audio files copied from merge sources",
		}),
		clipsRepaired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dswav_clips_repaired_total",
			Help: "Clips rewritten by the audio repair pass",
		}, []string{"mode"}),
		samplesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dswav_samples_dropped_total",
			Help: "Sentences excluded from a dataset build",
		}, []string{"reason"}),
		samplesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dswav_samples_written_total",
			Help: "Manifest lines written by a dataset build",
		}, []string{"split"}),
	}

	m.Registry.MustRegister(
		m.sentencesSegmented,
		m.clipsSliced,
		m.sentencesMerged,
		m.wavsCopied,
		m.clipsRepaired,
		m.samplesDropped,
		m.samplesWritten,
	)
	return m
}

func (m *Metrics) SentencesSegmented(n int) {
	if m != nil {
		m.sentencesSegmented.Add(float64(n))
	}
}

func (m *Metrics) ClipSliced() {
	if m != nil {
		m.clipsSliced.Inc()
	}
}

func (m *Metrics) SentencesMerged(n int) {
	if m != nil {
		m.sentencesMerged.Add(float64(n))
	}
}

func (m *Metrics) WavCopied() {
	if m != nil {
		m.wavsCopied.Inc()
	}
}

func (m *Metrics) ClipRepaired(mode string) {
	if m != nil {
		m.clipsRepaired.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) SamplesDropped(reason string, n int) {
	if m != nil {
		m.samplesDropped.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) SamplesWritten(split string, n int) {
	if m != nil {
		m.samplesWritten.WithLabelValues(split).Add(float64(n))
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
