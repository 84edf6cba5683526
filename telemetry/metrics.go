// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
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

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const (
	dispatchCounterName           = "looper.dispatch.count"
	dispatchDurationHistogramName = "looper.dispatch.duration"
	dispatchPanicCounterName      = "looper.dispatch.panics"
	transactionCounterName        = "binder.transaction.count"
	transactionFailureCounterName = "binder.transaction.failures"
)

// LooperMetrics holds the instruments recorded by a dispatch loop
type LooperMetrics struct {
	dispatchCount    metric.Int64Counter
	dispatchDuration metric.Float64Histogram
	panicCount       metric.Int64Counter
}

// NewLooperMetrics creates the dispatch loop instruments
func NewLooperMetrics(meter metric.Meter) (*LooperMetrics, error) {
	metrics := new(LooperMetrics)
	var err error

	if metrics.dispatchCount, err = meter.Int64Counter(
		dispatchCounterName,
		metric.WithDescription("The total number of messages dispatched by the looper"),
	); err != nil {
		return nil, fmt.Errorf("failed to create dispatch count instrument, %v", err)
	}

	if metrics.dispatchDuration, err = meter.Float64Histogram(
		dispatchDurationHistogramName,
		metric.WithDescription("The latency of a dispatched message in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create dispatch duration instrument, %v", err)
	}

	if metrics.panicCount, err = meter.Int64Counter(
		dispatchPanicCounterName,
		metric.WithDescription("The total number of handlers that panicked"),
	); err != nil {
		return nil, fmt.Errorf("failed to create panic count instrument, %v", err)
	}

	return metrics, nil
}

// DispatchCount returns the dispatch counter
func (x *LooperMetrics) DispatchCount() metric.Int64Counter {
	return x.dispatchCount
}

// DispatchDuration returns the dispatch latency histogram
func (x *LooperMetrics) DispatchDuration() metric.Float64Histogram {
	return x.dispatchDuration
}

// PanicCount returns the panic counter
func (x *LooperMetrics) PanicCount() metric.Int64Counter {
	return x.panicCount
}

// TransactionMetrics holds the instruments recorded by a transaction channel
type TransactionMetrics struct {
	transactionCount metric.Int64Counter
	failureCount     metric.Int64Counter
}

// NewTransactionMetrics creates the transaction channel instruments
func NewTransactionMetrics(meter metric.Meter) (*TransactionMetrics, error) {
	metrics := new(TransactionMetrics)
	var err error

	if metrics.transactionCount, err = meter.Int64Counter(
		transactionCounterName,
		metric.WithDescription("The total number of transactions sent"),
	); err != nil {
		return nil, fmt.Errorf("failed to create transaction count instrument, %v", err)
	}

	if metrics.failureCount, err = meter.Int64Counter(
		transactionFailureCounterName,
		metric.WithDescription("The total number of transactions answered with a nonzero status"),
	); err != nil {
		return nil, fmt.Errorf("failed to create transaction failure instrument, %v", err)
	}

	return metrics, nil
}

// TransactionCount returns the transaction counter
func (x *TransactionMetrics) TransactionCount() metric.Int64Counter {
	return x.transactionCount
}

// FailureCount returns the transaction failure counter
func (x *TransactionMetrics) FailureCount() metric.Int64Counter {
	return x.failureCount
}
