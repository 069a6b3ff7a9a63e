// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsPipeline holds Prometheus metrics for the conversion pipeline.
type metricsPipeline struct {
	once sync.Once

	entriesSeen        prometheus.Counter
	entriesSelected    prometheus.Counter
	entriesRejected    prometheus.Counter
	entriesExtracted   prometheus.Counter
	entriesFailed      prometheus.Counter
	entriesQuarantined prometheus.Counter

	definitionsWritten prometheus.Counter
	relationsWritten   prometheus.Counter
	aliasesWritten     prometheus.Counter

	batchesCommitted prometheus.Counter
	batchRetries     prometheus.Counter

	checkpointAdvances prometheus.Counter

	extractDuration prometheus.Histogram
	writeDuration   prometheus.Histogram
	queueDepth      prometheus.Gauge
}

var pipelineMetrics metricsPipeline

func (m *metricsPipeline) init() {
	m.once.Do(func() {
		m.entriesSeen = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_entries_seen_total", Help: "Archive directory entries visited"})
		m.entriesSelected = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_entries_selected_total", Help: "Entries accepted by the selection policy"})
		m.entriesRejected = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_entries_rejected_total", Help: "Entries rejected by the selection policy"})
		m.entriesExtracted = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_entries_extracted_total", Help: "Entries successfully extracted"})
		m.entriesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_entries_failed_total", Help: "Entries that failed extraction"})
		m.entriesQuarantined = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_entries_quarantined_total", Help: "Entries dropped after a second write failure"})

		m.definitionsWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_definitions_written_total", Help: "Definition rows written"})
		m.relationsWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_relations_written_total", Help: "Relation rows written"})
		m.aliasesWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_aliases_written_total", Help: "Lemma alias rows written"})

		m.batchesCommitted = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_batches_committed_total", Help: "Write batches committed"})
		m.batchRetries = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_batch_retries_total", Help: "Write batches retried record-by-record after a constraint failure"})

		m.checkpointAdvances = prometheus.NewCounter(prometheus.CounterOpts{Name: "zimrs_checkpoint_advances_total", Help: "Checkpoint watermark advances"})

		buckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
		m.extractDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "zimrs_extract_seconds", Help: "Per-entry extraction duration", Buckets: buckets})
		m.writeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "zimrs_write_batch_seconds", Help: "Per-batch write duration", Buckets: buckets})

		m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{Name: "zimrs_queue_depth", Help: "Entries queued for extraction but not yet written"})

		prometheus.MustRegister(
			m.entriesSeen, m.entriesSelected, m.entriesRejected, m.entriesExtracted, m.entriesFailed, m.entriesQuarantined,
			m.definitionsWritten, m.relationsWritten, m.aliasesWritten,
			m.batchesCommitted, m.batchRetries,
			m.checkpointAdvances,
			m.extractDuration, m.writeDuration, m.queueDepth,
		)
	})
}
