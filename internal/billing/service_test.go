package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicestudio/internal/monday"
	"invoicestudio/internal/types"
)

type mockRunner struct {
	runQueryFn func(ctx context.Context, query string, variables map[string]any) (*monday.QueryResult, error)
	calls      int
}

func (m *mockRunner) RunQuery(ctx context.Context, query string, variables map[string]any) (*monday.QueryResult, error) {
	m.calls++
	return m.runQueryFn(ctx, query, variables)
}

func configuredSource() types.AmpConfig {
	return types.AmpConfig{
		BoardID: "777",
		Columns: types.AmpColumns{
			AccountID: "text_account",
			EventType: "status_event",
			CreatedAt: "date_created",
		},
	}
}

func boardResult(rows ...[3]string) *monday.QueryResult {
	page := &monday.ItemsPage{}
	for i, row := range rows {
		page.Items = append(page.Items, monday.Item{
			ID: string(rune('1' + i)),
			ColumnValues: []monday.ColumnValue{
				{ID: "text_account", Text: row[0]},
				{ID: "status_event", Text: row[1]},
				{ID: "date_created", Text: row[2]},
			},
		})
	}
	return &monday.QueryResult{Data: &monday.QueryData{Boards: []monday.Board{
		{ID: "777", ItemsPage: page},
	}}}
}

func TestAccountPlanStatusMockPresets(t *testing.T) {
	tests := []struct {
		preset types.MockPreset
		want   types.PlanState
	}{
		{types.PresetFree, types.PlanFree},
		{types.PresetTrial, types.PlanTrial},
		{types.PresetPaid, types.PlanPaid},
		{types.PresetCancelled, types.PlanCancelled},
		{types.MockPreset("bogus"), types.PlanFree},
		{"", types.PlanFree},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			runner := &mockRunner{
				runQueryFn: func(context.Context, string, map[string]any) (*monday.QueryResult, error) {
					t.Fatal("mock path must not query monday")
					return nil, nil
				},
			}

			svc := NewService(types.AmpConfig{}, runner, Fallback{UseMock: true, Preset: tt.preset})

			state, err := svc.AccountPlanStatus(context.Background(), "acct-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
			assert.Zero(t, runner.calls)
		})
	}
}

func TestAccountPlanStatusFallbackPlan(t *testing.T) {
	svc := NewService(types.AmpConfig{}, nil, Fallback{Plan: types.PlanPaid})

	state, err := svc.AccountPlanStatus(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanPaid, state)
}

func TestAccountPlanStatusUnconfiguredNoMockNoFallback(t *testing.T) {
	svc := NewService(types.AmpConfig{}, nil, Fallback{})

	state, err := svc.AccountPlanStatus(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanFree, state)
}

func TestAccountPlanStatusConfiguredDerivesFromBoard(t *testing.T) {
	runner := &mockRunner{
		runQueryFn: func(context.Context, string, map[string]any) (*monday.QueryResult, error) {
			return boardResult(
				[3]string{"acct-1", "app_installed", "2024-01-01T00:00:00Z"},
				[3]string{"acct-1", "subscription_started", "2024-01-10T00:00:00Z"},
				[3]string{"acct-2", "trial_started", "2024-01-02T00:00:00Z"},
			), nil
		},
	}

	svc := NewService(configuredSource(), runner, Fallback{UseMock: true, Preset: types.PresetCancelled})

	state, err := svc.AccountPlanStatus(context.Background(), "acct-1")
	require.NoError(t, err)
	// The configured board wins over any mock setting.
	assert.Equal(t, types.PlanPaid, state)

	state, err = svc.AccountPlanStatus(context.Background(), "acct-2")
	require.NoError(t, err)
	assert.Equal(t, types.PlanTrial, state)
}

func TestAccountPlanStatusConfiguredUnknownAccountIsFree(t *testing.T) {
	runner := &mockRunner{
		runQueryFn: func(context.Context, string, map[string]any) (*monday.QueryResult, error) {
			return boardResult([3]string{"acct-1", "subscription_started", "2024-01-10T00:00:00Z"}), nil
		},
	}

	svc := NewService(configuredSource(), runner, Fallback{})

	state, err := svc.AccountPlanStatus(context.Background(), "acct-stranger")
	require.NoError(t, err)
	assert.Equal(t, types.PlanFree, state)
}

func TestAccountPlanStatusConfiguredUnknownAccountUsesFallback(t *testing.T) {
	runner := &mockRunner{
		runQueryFn: func(context.Context, string, map[string]any) (*monday.QueryResult, error) {
			return boardResult([3]string{"acct-1", "subscription_started", "2024-01-10T00:00:00Z"}), nil
		},
	}

	svc := NewService(configuredSource(), runner, Fallback{Plan: types.PlanTrial})

	state, err := svc.AccountPlanStatus(context.Background(), "acct-stranger")
	require.NoError(t, err)
	assert.Equal(t, types.PlanTrial, state)
}

func TestAccountPlanStatusPropagatesQueryError(t *testing.T) {
	boom := errors.New("monday: request failed")
	runner := &mockRunner{
		runQueryFn: func(context.Context, string, map[string]any) (*monday.QueryResult, error) {
			return nil, boom
		},
	}

	svc := NewService(configuredSource(), runner, Fallback{})

	_, err := svc.AccountPlanStatus(context.Background(), "acct-1")
	assert.ErrorIs(t, err, boom)
}

func TestAccountPlanStatusNoCaching(t *testing.T) {
	responses := []*monday.QueryResult{
		boardResult([3]string{"acct-1", "subscription_started", "2024-01-10T00:00:00Z"}),
		boardResult(
			[3]string{"acct-1", "subscription_started", "2024-01-10T00:00:00Z"},
			[3]string{"acct-1", "subscription_cancelled", "2024-02-10T00:00:00Z"},
		),
	}
	runner := &mockRunner{}
	runner.runQueryFn = func(context.Context, string, map[string]any) (*monday.QueryResult, error) {
		return responses[runner.calls-1], nil
	}

	svc := NewService(configuredSource(), runner, Fallback{})

	state, err := svc.AccountPlanStatus(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanPaid, state)

	state, err = svc.AccountPlanStatus(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanCancelled, state)
	assert.Equal(t, 2, runner.calls)
}

func TestIsPaidPlan(t *testing.T) {
	svc := NewService(types.AmpConfig{}, nil, Fallback{UseMock: true, Preset: types.PresetPaid})

	paid, err := svc.IsPaidPlan(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, paid)

	svc = NewService(types.AmpConfig{}, nil, Fallback{UseMock: true, Preset: types.PresetTrial})
	paid, err = svc.IsPaidPlan(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestCanExportPDF(t *testing.T) {
	tests := []struct {
		preset types.MockPreset
		want   types.PdfPolicy
	}{
		{types.PresetPaid, types.PdfPolicy{Allowed: true}},
		{types.PresetTrial, types.PdfPolicy{Allowed: true}},
		{types.PresetFree, types.PdfPolicy{Allowed: true, Limit: 5}},
		{types.PresetCancelled, types.PdfPolicy{Allowed: false}},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			svc := NewService(types.AmpConfig{}, nil, Fallback{UseMock: true, Preset: tt.preset})

			policy, err := svc.CanExportPDF(context.Background(), "acct-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, policy)
		})
	}
}

func TestVerifySource(t *testing.T) {
	t.Run("unconfigured passes vacuously", func(t *testing.T) {
		svc := NewService(types.AmpConfig{}, nil, Fallback{UseMock: true})
		assert.NoError(t, svc.VerifySource(context.Background()))
	})

	t.Run("existing board passes", func(t *testing.T) {
		runner := &mockRunner{
			runQueryFn: func(context.Context, string, map[string]any) (*monday.QueryResult, error) {
				return &monday.QueryResult{Data: &monday.QueryData{Boards: []monday.Board{{ID: "777"}}}}, nil
			},
		}
		svc := NewService(configuredSource(), runner, Fallback{})
		assert.NoError(t, svc.VerifySource(context.Background()))
	})

	t.Run("vanished board is ErrSourceMissing", func(t *testing.T) {
		runner := &mockRunner{
			runQueryFn: func(context.Context, string, map[string]any) (*monday.QueryResult, error) {
				return &monday.QueryResult{Data: &monday.QueryData{}}, nil
			},
		}
		svc := NewService(configuredSource(), runner, Fallback{})
		assert.ErrorIs(t, svc.VerifySource(context.Background()), ErrSourceMissing)
	})

	t.Run("query failure is not ErrSourceMissing", func(t *testing.T) {
		boom := errors.New("monday: request failed")
		runner := &mockRunner{
			runQueryFn: func(context.Context, string, map[string]any) (*monday.QueryResult, error) {
				return nil, boom
			},
		}
		svc := NewService(configuredSource(), runner, Fallback{})
		err := svc.VerifySource(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrSourceMissing)
	})
}

func TestPresetEventsSubstitutesAccount(t *testing.T) {
	events := PresetEvents(types.PresetPaid, "acct-42")
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, "acct-42", ev.AccountID)
	}

	// The canned history must stay pristine between calls.
	again := PresetEvents(types.PresetPaid, "acct-other")
	assert.Equal(t, "acct-other", again[0].AccountID)
	assert.Equal(t, "acct-42", events[0].AccountID)
}
