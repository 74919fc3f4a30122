// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package tracer

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	_service = "iotex-sbt"
)

type (
	// Option the tracer provider option
	Option func(ops *optionParams) error

	optionParams struct {
		serviceName   string
		endpoint      string
		instanceID    string
		samplingRatio float64
	}
)

// WithServiceName defines service name
func WithServiceName(name string) Option {
	return func(ops *optionParams) error {
		ops.serviceName = name
		return nil
	}
}

// WithEndpoint defines the jaeger collector endpoint
func WithEndpoint(endpoint string) Option {
	return func(ops *optionParams) error {
		ops.endpoint = endpoint
		return nil
	}
}

// WithInstanceID defines the instance id
func WithInstanceID(instanceID string) Option {
	return func(ops *optionParams) error {
		ops.instanceID = instanceID
		return nil
	}
}

// WithSamplingRatio defines the sampling ratio
func WithSamplingRatio(rate string) Option {
	return func(ops *optionParams) error {
		ratio, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return err
		}
		ops.samplingRatio = ratio
		return nil
	}
}

// NewProvider creates an instance of trace provider, nil if no endpoint is set
func NewProvider(opts ...Option) (*tracesdk.TracerProvider, error) {
	ops := optionParams{
		serviceName:   _service,
		samplingRatio: 1,
	}
	for _, opt := range opts {
		if err := opt(&ops); err != nil {
			return nil, err
		}
	}
	if ops.endpoint == "" {
		return nil, nil
	}
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(ops.endpoint)))
	if err != nil {
		return nil, err
	}
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ops.serviceName),
			semconv.ServiceInstanceIDKey.String(ops.instanceID),
		)),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ops.samplingRatio))),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// NewSpan creates a span under the global tracer provider
func NewSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(_service).Start(ctx, spanName, opts...)
}

// SpanFromContext returns the span in ctx
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
