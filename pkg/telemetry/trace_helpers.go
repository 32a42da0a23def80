package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// Tracer returns a named tracer from the global provider, ServiceName when
// name is empty
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = ServiceName
	}
	return otel.GetTracerProvider().Tracer(name)
}

// WithSpan runs f inside a span and records its error on the span
func WithSpan(ctx context.Context, name string, f func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := Tracer(ServiceName).Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	if err := f(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// ContextAttributes describes a project context on a span
func ContextAttributes(pc skilltypes.ProjectContext) []attribute.KeyValue {
	limits := pc.Limits()
	return []attribute.KeyValue{
		attribute.String("project.type", pc.ProjectType),
		attribute.StringSlice("project.technologies", pc.Technologies),
		attribute.Bool("project.compliance_required", pc.ComplianceRequired),
		attribute.String("project.security_level", string(pc.SecurityLevel)),
		attribute.Int("constraints.max_tokens", limits.MaxTokens),
		attribute.Int("constraints.max_execution_seconds", limits.MaxExecutionSeconds),
		attribute.Int("constraints.max_skills", limits.MaxSkills),
	}
}

// CompositionAttributes describes a composition on a span
func CompositionAttributes(comp *skilltypes.SkillComposition) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.StringSlice("composition.execution_order", comp.ExecutionOrder),
		attribute.Int("composition.skills", len(comp.Skills)),
		attribute.Int("composition.total_tokens", comp.TotalTokenBudget),
		attribute.Int("composition.total_seconds", comp.TotalExecutionSeconds),
		attribute.Bool("composition.used_fallback", comp.UsedFallback),
	}
}

// AddEvent adds an event to the span in ctx
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the span in ctx
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
