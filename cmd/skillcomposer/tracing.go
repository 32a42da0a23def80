package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillcomposer/pkg/telemetry"
	"github.com/jingkaihe/skillcomposer/pkg/version"
)

var tracer = telemetry.Tracer("skillcomposer.cli")

// untracedFlags carry free text or file paths; the composition span records
// the parsed context instead
var untracedFlags = map[string]bool{
	"idea":    true,
	"context": true,
}

func initTracing(ctx context.Context) (func(context.Context) error, error) {
	return telemetry.InitTracer(ctx, telemetry.Config{
		Enabled:        viper.GetBool("tracing.enabled"),
		ServiceName:    telemetry.ServiceName,
		ServiceVersion: version.Get().Version,
		SamplerType:    viper.GetString("tracing.sampler"),
		SamplerRatio:   viper.GetFloat64("tracing.ratio"),
	})
}

// commandAttributes describes an invocation: the command path, how many
// positional arguments it got and every flag set explicitly
func commandAttributes(cmd *cobra.Command, args []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("cli.command", cmd.CommandPath()),
		attribute.Int("cli.args", len(args)),
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if untracedFlags[f.Name] {
			return
		}
		attrs = append(attrs, attribute.String("cli.flag."+f.Name, f.Value.String()))
	})
	return attrs
}

// withTracing runs the command inside a span named after it
func withTracing(cmd *cobra.Command) *cobra.Command {
	run := cmd.Run
	cmd.Run = func(cmd *cobra.Command, args []string) {
		ctx, span := tracer.Start(cmd.Context(), "cli."+cmd.Name(),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(commandAttributes(cmd, args)...))
		defer span.End()

		cmd.SetContext(ctx)
		run(cmd, args)
	}
	return cmd
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("tracing-enabled", false, "Export OpenTelemetry traces over OTLP/HTTP")
	flags.String("tracing-sampler", "ratio", "Trace sampler: always, never or ratio")
	flags.Float64("tracing-ratio", 1, "Fraction of traces sampled by the ratio sampler")

	for key, flag := range map[string]string{
		"tracing.enabled": "tracing-enabled",
		"tracing.sampler": "tracing-sampler",
		"tracing.ratio":   "tracing-ratio",
	} {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}
