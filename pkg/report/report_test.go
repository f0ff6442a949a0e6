package report

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/config"
	"github.com/ethpandaops/runmonitor/pkg/generator"
	"github.com/ethpandaops/runmonitor/pkg/status"
	"github.com/ethpandaops/runmonitor/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	st := store.NewStore(log, &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{Path: ":memory:"},
	})
	require.NoError(t, st.Start(context.Background()))

	t.Cleanup(func() { _ = st.Stop() })

	return st
}

// seedRuns persists n runs, one minute apart, ending at baseTime.
func seedRuns(t *testing.T, st store.Store, n int) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	for i := 0; i < n; i++ {
		stamp := baseTime.Add(time.Duration(i-n+1) * time.Minute)
		gen := generator.New(log, rand.New(rand.NewPCG(uint64(i), 1)),
			generator.WithClock(func() time.Time { return stamp }))

		summary, drafts, err := gen.Generate(config.DefaultParams)
		require.NoError(t, err)

		_, err = st.CreateRunWithRecords(context.Background(), summary, drafts)
		require.NoError(t, err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{input: "markdown", expected: FormatMarkdown},
		{input: "md", expected: FormatMarkdown},
		{input: "JSON", expected: FormatJSON},
		{input: " yaml ", expected: FormatYAML},
		{input: "yml", expected: FormatYAML},
		{input: "html", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownFormat)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestBuild_EmptyStore(t *testing.T) {
	st := setupTestStore(t)

	d, err := Build(context.Background(), st, 50)
	require.NoError(t, err)

	assert.Nil(t, d.Latest)
	assert.Empty(t, d.History)
	assert.Empty(t, d.Records)

	md := Markdown(d, baseTime)
	assert.Contains(t, md, NoRunsPlaceholder)
	assert.Contains(t, md, NoRecordsPlaceholder)
	assert.NotContains(t, md, "| ID |")
}

func TestBuild_WithRuns(t *testing.T) {
	st := setupTestStore(t)
	seedRuns(t, st, 3)

	d, err := Build(context.Background(), st, 2)
	require.NoError(t, err)

	require.NotNil(t, d.Latest)
	require.Len(t, d.History, 2)
	assert.Equal(t, d.Latest.ID, d.History[0].ID)
	assert.Len(t, d.Records, d.Latest.TotalRecords)

	for _, rec := range d.Records {
		assert.Equal(t, d.Latest.ID, rec.RunID)
	}
}

func TestMarkdown(t *testing.T) {
	st := setupTestStore(t)
	seedRuns(t, st, 2)

	d, err := Build(context.Background(), st, 10)
	require.NoError(t, err)

	md := Markdown(d, baseTime.Add(2*time.Hour))

	assert.NotContains(t, md, NoRunsPlaceholder)
	assert.NotContains(t, md, NoRecordsPlaceholder)
	assert.Contains(t, md, "## Run history")
	assert.Contains(t, md, "2 hours ago")
	assert.Contains(t, md, store.FormatTimestamp(d.Latest.CreatedAt))
	assert.Contains(t, md, string(d.Latest.DisplayStatus()))

	recordLines := 0

	for _, line := range strings.Split(md, "\n") {
		if strings.Contains(line, "| S-") {
			recordLines++
		}
	}

	assert.Equal(t, d.Latest.TotalRecords, recordLines)
}

func TestMarkdown_StatusDerivedFromCounts(t *testing.T) {
	run := store.RunView{
		ID: 1,
		RunSummary: generator.RunSummary{
			CreatedAt:    baseTime,
			Status:       status.OK,
			TotalRecords: 3,
			OKRecords:    1,
			FailRecords:  2,
		},
	}

	md := Markdown(&Dashboard{Latest: &run, History: []store.RunView{run}}, baseTime)
	assert.Contains(t, md, "| WARN | 3 | 1 | 0 | 2 |")
	assert.NotContains(t, md, "| OK | 3 |")
}

func TestMarkdown_RunWithoutRecords(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	id, err := st.CreateRun(ctx, generator.RunSummary{
		CreatedAt:    baseTime,
		Status:       status.OK,
		TotalRecords: 2,
		OKRecords:    2,
	})
	require.NoError(t, err)

	d, err := Build(ctx, st, 10)
	require.NoError(t, err)
	require.NotNil(t, d.Latest)
	assert.Equal(t, id, d.Latest.ID)
	assert.Empty(t, d.Records)

	md := Markdown(d, baseTime)
	assert.Contains(t, md, EmptyRunPlaceholder)
	assert.NotContains(t, md, NoRecordsPlaceholder)
	assert.NotContains(t, md, NoRunsPlaceholder)
}

func TestBuildRun(t *testing.T) {
	st := setupTestStore(t)
	seedRuns(t, st, 2)

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)

	oldest := runs[len(runs)-1]

	d, err := BuildRun(context.Background(), st, oldest)
	require.NoError(t, err)

	assert.Equal(t, oldest.ID, d.Latest.ID)
	assert.Empty(t, d.History)
	assert.Len(t, d.Records, oldest.TotalRecords)

	md := Markdown(d, baseTime)
	assert.NotContains(t, md, "## Run history")
}

func TestRender(t *testing.T) {
	st := setupTestStore(t)
	seedRuns(t, st, 1)

	d, err := Build(context.Background(), st, 10)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		b, err := Render(d, FormatJSON, baseTime)
		require.NoError(t, err)

		var decoded Dashboard
		require.NoError(t, json.Unmarshal(b, &decoded))
		require.NotNil(t, decoded.Latest)
		assert.Equal(t, d.Latest.ID, decoded.Latest.ID)
		assert.Len(t, decoded.Records, len(d.Records))
	})

	t.Run("yaml", func(t *testing.T) {
		b, err := Render(d, FormatYAML, baseTime)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(b, &decoded))
		assert.Contains(t, decoded, "latest")
		assert.Contains(t, decoded, "history")
		assert.Contains(t, decoded, "records")

		latest, ok := decoded["latest"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, latest, "ok_records")
	})

	t.Run("markdown", func(t *testing.T) {
		b, err := Render(d, FormatMarkdown, baseTime)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), "# Data Collection Monitor"))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Render(d, Format("pdf"), baseTime)
		require.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "md", FormatMarkdown.Extension())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "yaml", FormatYAML.Extension())
}
