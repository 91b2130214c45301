package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
)

func TestRunBench(t *testing.T) {
	report, err := runBench(context.Background(), benchOptions{
		Personality: "technical_expert",
		Sessions:    3,
		Concurrency: 2,
		Compare:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3*len(script), report.Exchanges)
	assert.Len(t, report.Results, len(script))
	assert.EqualValues(t, 3*len(script), report.Comparisons)
	for _, r := range report.Results {
		assert.Positive(t, r.ResponseLength)
		assert.GreaterOrEqual(t, r.LatencyMs, 0.0)
	}
}

func TestRunBenchUnknownPersonality(t *testing.T) {
	_, err := runBench(context.Background(), benchOptions{Personality: "learning_tutor", Sessions: 1})
	assert.ErrorIs(t, err, persona.ErrNotFound)
}

func TestWriteReportFormats(t *testing.T) {
	report := Report{Personality: "creative_partner", Sessions: 1, Exchanges: 1,
		Results: []Result{{Message: "hi", Technique: "none", LatencyMs: 0.5, ResponseLength: 10}}}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report, "yaml"))
	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "creative_partner", decoded.Personality)

	buf.Reset()
	require.NoError(t, writeReport(&buf, report, "text"))
	assert.Contains(t, buf.String(), "exchanges: 1")

	assert.Error(t, writeReport(&buf, report, "xml"))
}
