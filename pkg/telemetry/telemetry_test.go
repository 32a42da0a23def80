package telemetry

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, Sampler(Config{SamplerType: "always"}).Description(), "AlwaysOn")
	assert.Contains(t, Sampler(Config{}).Description(), "AlwaysOn")
	assert.Contains(t, Sampler(Config{SamplerType: "never"}).Description(), "AlwaysOff")
	assert.Contains(t, Sampler(Config{SamplerType: "ratio", SamplerRatio: 0.5}).Description(), "ParentBased")
}

func TestWithSpan(t *testing.T) {
	called := false
	err := WithSpan(context.Background(), "test", func(ctx context.Context) error {
		called = true
		AddEvent(ctx, "event", attribute.String("k", "v"))
		SetAttributes(ctx, attribute.Int("n", 1))
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	err = WithSpan(context.Background(), "test", func(context.Context) error { return boom })
	assert.Equal(t, boom, err)
}

func TestAttributes(t *testing.T) {
	pc := skilltypes.ProjectContext{ProjectType: "microservices", ComplianceRequired: true}
	attrs := ContextAttributes(pc)
	got := map[attribute.Key]attribute.Value{}
	for _, a := range attrs {
		got[a.Key] = a.Value
	}
	assert.Equal(t, "microservices", got["project.type"].AsString())
	assert.True(t, got["project.compliance_required"].AsBool())
	assert.Equal(t, int64(skilltypes.DefaultMaxTokens), got["constraints.max_tokens"].AsInt64())

	comp := &skilltypes.SkillComposition{ExecutionOrder: []string{"a"}, TotalTokenBudget: 10, UsedFallback: true}
	assert.Len(t, CompositionAttributes(comp), 5)
}
