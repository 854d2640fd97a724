// MIT License
//
// Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts keystore and signature operations.
type Metrics struct {
	KeysGenerated   *prometheus.CounterVec
	Signatures      *prometheus.CounterVec
	SpentRejections prometheus.Counter
	Verifications   *prometheus.CounterVec
	OpLatency       *prometheus.HistogramVec
}

// NewMetrics initializes the Prometheus collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		KeysGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lamport_keys_generated_total",
				Help: "Number of one-time key pairs generated",
			},
			[]string{"digest"},
		),
		Signatures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lamport_signatures_total",
				Help: "Number of signatures issued",
			},
			[]string{"digest"},
		),
		SpentRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lamport_spent_rejections_total",
				Help: "Number of sign attempts refused because the key was already spent",
			},
		),
		Verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lamport_verifications_total",
				Help: "Number of signature verifications by outcome",
			},
			[]string{"result"},
		),
		OpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lamport_operation_seconds",
				Help:    "Latency of keystore operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.KeysGenerated, m.Signatures, m.SpentRejections, m.Verifications, m.OpLatency)
	}
	return m
}

// ObserveVerify records a verification outcome.
func (m *Metrics) ObserveVerify(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.Verifications.WithLabelValues(result).Inc()
}

// Since records the time elapsed since start under op.
func (m *Metrics) Since(op string, start time.Time) {
	m.OpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
