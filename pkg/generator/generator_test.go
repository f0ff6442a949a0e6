package generator

import (
	"errors"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/status"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sourceIDPattern = regexp.MustCompile(`^S-[1-9][0-9]{2}$`)

type sequenceSource struct {
	values []float64
	pos    int
}

func (s *sequenceSource) Float64() float64 {
	v := s.values[s.pos%len(s.values)]
	s.pos++

	return v
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{name: "defaults", params: Params{MinRecords: 10, MaxRecords: 30, OKRatio: 0.75, WarnRatio: 0.2}},
		{name: "equal bounds", params: Params{MinRecords: 5, MaxRecords: 5, OKRatio: 1, WarnRatio: 0}},
		{name: "ratios above one allowed", params: Params{MinRecords: 1, MaxRecords: 2, OKRatio: 0.9, WarnRatio: 0.4}},
		{name: "zero min", params: Params{MinRecords: 0, MaxRecords: 5}, wantErr: true},
		{name: "negative min", params: Params{MinRecords: -1, MaxRecords: 5}, wantErr: true},
		{name: "min above max", params: Params{MinRecords: 20, MaxRecords: 10, OKRatio: 0.5}, wantErr: true},
		{name: "negative ok ratio", params: Params{MinRecords: 1, MaxRecords: 1, OKRatio: -0.1}, wantErr: true},
		{name: "ok ratio above one", params: Params{MinRecords: 1, MaxRecords: 1, OKRatio: 1.1}, wantErr: true},
		{name: "warn ratio above one", params: Params{MinRecords: 1, MaxRecords: 1, WarnRatio: 2}, wantErr: true},
		{name: "max at limit", params: Params{MinRecords: 1, MaxRecords: MaxRecordsLimit, OKRatio: 0.5}},
		{name: "max above limit", params: Params{MinRecords: 1, MaxRecords: MaxRecordsLimit + 1, OKRatio: 0.5}, wantErr: true},
		{name: "huge bounds", params: Params{MinRecords: 1 << 50, MaxRecords: 1 << 50, OKRatio: 0.5}, wantErr: true},
		{name: "nan ratio", params: Params{MinRecords: 1, MaxRecords: 1, OKRatio: math.NaN()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidParameter))

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestParams_ExhaustsFail(t *testing.T) {
	assert.False(t, Params{OKRatio: 0.75, WarnRatio: 0.2}.ExhaustsFail())
	assert.True(t, Params{OKRatio: 0.95, WarnRatio: 0.04}.ExhaustsFail())
}

func TestGenerate_InvalidParamsDoNotDraw(t *testing.T) {
	src := &sequenceSource{values: []float64{0.5}}
	g := New(testLogger(), src)

	summary, drafts, err := g.Generate(Params{MinRecords: 10, MaxRecords: 5})
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Nil(t, drafts)
	assert.Equal(t, RunSummary{}, summary)
	assert.Equal(t, 0, src.pos)
}

func TestGenerate_FixedSequence(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Draw order: total, then status/value/source per record.
	src := &sequenceSource{values: []float64{
		0.5,
		0.1, 0.0, 0.0,
		0.99, 0.999999, 0.5,
	}}

	g := New(testLogger(), src, fixedClock(now))

	summary, drafts, err := g.Generate(Params{
		MinRecords: 2, MaxRecords: 2, OKRatio: 0.75, WarnRatio: 0.2,
	})
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, RecordDraft{
		SourceID:  "S-100",
		Value:     10.0,
		Status:    status.OK,
		CreatedAt: now.Add(-6 * time.Second),
	}, drafts[0])

	assert.Equal(t, RecordDraft{
		SourceID:  "S-550",
		Value:     100.0,
		Status:    status.FAIL,
		CreatedAt: now.Add(-3 * time.Second),
	}, drafts[1])

	assert.Equal(t, RunSummary{
		CreatedAt:    now,
		Status:       status.OK,
		TotalRecords: 2,
		OKRecords:    1,
		WarnRecords:  0,
		FailRecords:  1,
	}, summary)
	assert.Equal(t, 7, src.pos)
}

func TestGenerate_Properties(t *testing.T) {
	paramSets := []Params{
		{MinRecords: 5, MaxRecords: 20, OKRatio: 0.75, WarnRatio: 0.2},
		{MinRecords: 10, MaxRecords: 50, OKRatio: 0.5, WarnRatio: 0.4},
		{MinRecords: 1, MaxRecords: 1, OKRatio: 0.3, WarnRatio: 0.3},
		{MinRecords: 20, MaxRecords: 20, OKRatio: 0.95, WarnRatio: 0.0},
	}

	for seed := uint64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7))
		g := New(testLogger(), rng)

		for _, p := range paramSets {
			summary, drafts, err := g.Generate(p)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, summary.TotalRecords, p.MinRecords)
			assert.LessOrEqual(t, summary.TotalRecords, p.MaxRecords)
			assert.Len(t, drafts, summary.TotalRecords)
			assert.Equal(t, summary.TotalRecords,
				summary.OKRecords+summary.WarnRecords+summary.FailRecords)
			assert.Equal(t, status.ForRun(summary.OKRecords, summary.FailRecords), summary.Status)
			require.NoError(t, summary.Validate())

			var tally status.Tally

			for idx, d := range drafts {
				tally.Add(d.Status)

				assert.True(t, d.Status.Valid())
				assert.GreaterOrEqual(t, d.Value, 10.0)
				assert.LessOrEqual(t, d.Value, 100.0)
				assert.InDelta(t, d.Value, math.Round(d.Value*100)/100, 1e-9)
				assert.Regexp(t, sourceIDPattern, d.SourceID)

				assert.False(t, d.CreatedAt.After(summary.CreatedAt))

				expected := summary.CreatedAt.Add(
					-time.Duration(summary.TotalRecords-idx) * RecordSpacing,
				)
				assert.True(t, expected.Equal(d.CreatedAt))

				if idx > 0 {
					assert.Equal(t, RecordSpacing, d.CreatedAt.Sub(drafts[idx-1].CreatedAt))
				}
			}

			assert.Equal(t, summary.OKRecords, tally.OK)
			assert.Equal(t, summary.WarnRecords, tally.WARN)
			assert.Equal(t, summary.FailRecords, tally.FAIL)
		}
	}
}

func TestGenerate_CoversWholeCountRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 4242))
	g := New(testLogger(), rng)

	seen := make(map[int]struct{}, 4)

	for i := 0; i < 500; i++ {
		summary, _, err := g.Generate(Params{MinRecords: 3, MaxRecords: 6, OKRatio: 0.5, WarnRatio: 0.25})
		require.NoError(t, err)

		seen[summary.TotalRecords] = struct{}{}
	}

	assert.Len(t, seen, 4, "every count in [3,6] should eventually appear")
}

func TestGenerate_SourceIDRange(t *testing.T) {
	g := New(testLogger(), &sequenceSource{values: []float64{0.999999999}})

	_, drafts, err := g.Generate(Params{MinRecords: 1, MaxRecords: 1, OKRatio: 1})
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	id, err := strconv.Atoi(drafts[0].SourceID[2:])
	require.NoError(t, err)
	assert.Equal(t, 999, id)
}

func TestGenerate_AllOK(t *testing.T) {
	g := New(testLogger(), rand.New(rand.NewPCG(7, 11)))

	summary, drafts, err := g.Generate(Params{MinRecords: 5, MaxRecords: 5, OKRatio: 1.0, WarnRatio: 0.0})
	require.NoError(t, err)
	require.Len(t, drafts, 5)

	for _, d := range drafts {
		assert.Equal(t, status.OK, d.Status)
	}

	assert.Equal(t, status.OK, summary.Status)
	assert.Equal(t, 5, summary.OKRecords)
	assert.Equal(t, 0, summary.WarnRecords)
	assert.Equal(t, 0, summary.FailRecords)
}

func TestGenerate_AllFail(t *testing.T) {
	g := New(testLogger(), rand.New(rand.NewPCG(3, 5)))

	summary, drafts, err := g.Generate(Params{MinRecords: 5, MaxRecords: 15, OKRatio: 0.0, WarnRatio: 0.0})
	require.NoError(t, err)

	for _, d := range drafts {
		assert.Equal(t, status.FAIL, d.Status)
	}

	assert.Equal(t, status.WARN, summary.Status)
	assert.Equal(t, 0, summary.OKRecords)
	assert.Equal(t, summary.TotalRecords, summary.FailRecords)
}

func TestGenerate_TimestampsAreUTCMicroseconds(t *testing.T) {
	loc := time.FixedZone("test", 2*60*60)
	now := time.Date(2024, 1, 2, 3, 4, 5, 123456789, loc)

	g := New(testLogger(), rand.New(rand.NewPCG(1, 1)), fixedClock(now))

	summary, _, err := g.Generate(Params{MinRecords: 1, MaxRecords: 3, OKRatio: 0.5, WarnRatio: 0.5})
	require.NoError(t, err)

	assert.Equal(t, time.UTC, summary.CreatedAt.Location())
	assert.Equal(t, 123456000, summary.CreatedAt.Nanosecond())
	assert.True(t, now.Truncate(time.Microsecond).Equal(summary.CreatedAt))
}

func TestRunSummary_Validate(t *testing.T) {
	now := time.Now()

	valid := RunSummary{CreatedAt: now, Status: status.OK, TotalRecords: 3, OKRecords: 1, WarnRecords: 1, FailRecords: 1}
	require.NoError(t, valid.Validate())

	mismatch := valid
	mismatch.TotalRecords = 4
	assert.Error(t, mismatch.Validate())

	failStatus := valid
	failStatus.Status = status.FAIL
	assert.Error(t, failStatus.Validate())

	negative := valid
	negative.OKRecords = -1
	negative.TotalRecords = 1
	assert.Error(t, negative.Validate())

	noTime := valid
	noTime.CreatedAt = time.Time{}
	assert.Error(t, noTime.Validate())
}
