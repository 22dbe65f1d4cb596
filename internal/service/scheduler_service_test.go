package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-tasks/internal/calendar"
)

func TestBuildDailySpec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "00:00", want: "0 0 0 * * *"},
		{raw: "23:15", want: "0 15 23 * * *"},
		{raw: " 7:05 ", want: "0 5 7 * * *"},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "noon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := buildDailySpec(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestScheduleDailyFiresAtMidnightInZone(t *testing.T) {
	t.Parallel()
	s := NewSchedulerService(calendar.Zone, zerolog.Nop())
	id, err := s.ScheduleDaily("00:00", func() {})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	next := s.Next(id).In(calendar.Zone)
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestScheduleIntervalRunsJob(t *testing.T) {
	t.Parallel()
	s := NewSchedulerService(time.UTC, zerolog.Nop())

	_, err := s.ScheduleInterval(0, func() {})
	assert.Error(t, err)

	var runs atomic.Int32
	_, err = s.ScheduleInterval(time.Second, func() { runs.Add(1) })
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}
