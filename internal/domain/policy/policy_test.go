package policy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelanceshield/claims-engine/internal/domain/values"
)

func TestNew(t *testing.T) {
	owner := uuid.New()
	coverage := values.MustNewMoneyFromString("10000.00", values.USD)
	premium := values.MustNewMoneyFromString("250.00", values.USD)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 6, 0)

	tests := []struct {
		name          string
		owner         uuid.UUID
		coverage      values.Money
		premium       values.Money
		start, end    time.Time
		waitingPeriod time.Duration
		wantErr       string
	}{
		{
			name:          "valid policy",
			owner:         owner,
			coverage:      coverage,
			premium:       premium,
			start:         start,
			end:           end,
			waitingPeriod: 14 * 24 * time.Hour,
		},
		{
			name:          "nil owner",
			owner:         uuid.Nil,
			coverage:      coverage,
			premium:       premium,
			start:         start,
			end:           end,
			wantErr:       "owner cannot be nil",
		},
		{
			name:          "zero coverage",
			owner:         owner,
			coverage:      values.Zero(values.USD),
			premium:       premium,
			start:         start,
			end:           end,
			wantErr:       "coverage amount must be positive",
		},
		{
			name:          "end before start",
			owner:         owner,
			coverage:      coverage,
			premium:       premium,
			start:         end,
			end:           start,
			wantErr:       "end date must be after start date",
		},
		{
			name:          "negative waiting period",
			owner:         owner,
			coverage:      coverage,
			premium:       premium,
			start:         start,
			end:           end,
			waitingPeriod: -time.Hour,
			wantErr:       "waiting period cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.owner, tt.coverage, tt.premium, tt.start, tt.end, tt.waitingPeriod)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, p.Owner)
			assert.True(t, p.IsActive)
			assert.Equal(t, 0, p.ClaimCount)
			assert.Equal(t, tt.start.Add(tt.waitingPeriod), p.WaitingPeriodEnd)
			assert.True(t, p.TotalPaidAmount.IsZero())
		})
	}
}

func TestPolicy_CoverageWindows(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 6, 0)

	p, err := New(uuid.New(),
		values.MustNewMoneyFromString("5000.00", values.USD),
		values.MustNewMoneyFromString("100.00", values.USD),
		start, end, 14*24*time.Hour)
	require.NoError(t, err)

	assert.False(t, p.InCoveragePeriod(start.Add(-time.Hour)))
	assert.True(t, p.InCoveragePeriod(start))
	assert.True(t, p.InCoveragePeriod(start.AddDate(0, 3, 0)))
	assert.False(t, p.InCoveragePeriod(end.Add(time.Hour)))

	assert.False(t, p.WaitingPeriodOver(start.Add(13*24*time.Hour)))
	assert.True(t, p.WaitingPeriodOver(start.Add(14*24*time.Hour)))

	assert.Equal(t, 5*24*time.Hour, p.AgeAt(start.Add(5*24*time.Hour)))
	assert.Equal(t, end.Sub(start), p.TimeToExpiry(start))
}

func TestPolicy_RecordPayment(t *testing.T) {
	mockClock := &MockClock{CurrentTime: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	SetClock(mockClock)
	defer ResetClock()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := New(uuid.New(),
		values.MustNewMoneyFromString("5000.00", values.USD),
		values.MustNewMoneyFromString("100.00", values.USD),
		start, start.AddDate(1, 0, 0), 0)
	require.NoError(t, err)

	p.RecordClaim()
	assert.Equal(t, 1, p.ClaimCount)

	require.NoError(t, p.RecordPayment(values.MustNewMoneyFromString("1200.00", values.USD)))
	require.NoError(t, p.RecordPayment(values.MustNewMoneyFromString("800.00", values.USD)))
	assert.Equal(t, 2, p.PaidClaimCount)
	assert.True(t, p.TotalPaidAmount.Equal(values.MustNewMoneyFromString("2000.00", values.USD)))
	assert.Equal(t, mockClock.CurrentTime, p.UpdatedAt)

	// Currency mismatch is refused
	err = p.RecordPayment(values.MustNewMoneyFromString("10.00", values.EUR))
	assert.Error(t, err)
}

func TestPolicy_Deactivate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := New(uuid.New(),
		values.MustNewMoneyFromString("5000.00", values.USD),
		values.MustNewMoneyFromString("100.00", values.USD),
		start, start.AddDate(1, 0, 0), 0)
	require.NoError(t, err)

	p.Deactivate()
	assert.False(t, p.IsActive)
}
