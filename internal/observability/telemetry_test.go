package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", sampler(0).Description())
	assert.Equal(t, "AlwaysOnSampler", sampler(1).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, Options{}.exporterOptions(), 1, "адрес по умолчанию задаётся всегда")
	assert.Len(t, Options{Endpoint: "otel:4318", Insecure: true}.exporterOptions(), 2)
}
