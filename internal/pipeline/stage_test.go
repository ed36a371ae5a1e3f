package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStageState(t *testing.T) {
	st := NewStageState("segment", "Segment dump")

	assert.Equal(t, "segment", st.ID)
	assert.Equal(t, "Segment dump", st.Name)
	assert.Equal(t, StageStatusPending, st.Status)
	assert.Nil(t, st.StartTime)
	assert.Nil(t, st.EndTime)
	assert.Nil(t, st.Error)
}

func TestStageStateTransitions(t *testing.T) {
	tests := []struct {
		name       string
		transition func(*StageState)
		wantStatus StageStatus
		check      func(*testing.T, *StageState)
	}{
		{
			name:       "start",
			transition: func(s *StageState) { s.Start() },
			wantStatus: StageStatusActive,
			check: func(t *testing.T, s *StageState) {
				assert.NotNil(t, s.StartTime)
				assert.Nil(t, s.EndTime)
			},
		},
		{
			name: "complete",
			transition: func(s *StageState) {
				s.Start()
				s.Complete()
			},
			wantStatus: StageStatusCompleted,
			check: func(t *testing.T, s *StageState) {
				assert.NotNil(t, s.EndTime)
			},
		},
		{
			name: "fail",
			transition: func(s *StageState) {
				s.Start()
				s.Fail(errors.New("disk full"))
			},
			wantStatus: StageStatusFailed,
			check: func(t *testing.T, s *StageState) {
				assert.NotNil(t, s.EndTime)
				assert.EqualError(t, s.Error, "disk full")
			},
		},
		{
			name:       "skip",
			transition: func(s *StageState) { s.Skip("no workbook requested") },
			wantStatus: StageStatusSkipped,
			check: func(t *testing.T, s *StageState) {
				assert.NotNil(t, s.EndTime)
				assert.Equal(t, "no workbook requested", s.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewStageState("test", "Test")
			tt.transition(st)
			assert.Equal(t, tt.wantStatus, st.Status)
			tt.check(t, st)
		})
	}
}

func TestStageStateDuration(t *testing.T) {
	st := NewStageState("test", "Test")
	assert.Zero(t, st.Duration(), "unstarted stage has no duration")

	st.Start()
	time.Sleep(10 * time.Millisecond)
	assert.Greater(t, st.Duration(), time.Duration(0))

	st.Complete()
	frozen := st.Duration()
	require.Greater(t, frozen, time.Duration(0))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, frozen, st.Duration(), "duration is fixed once the stage ends")
}

func TestBaseStage(t *testing.T) {
	b := NewBaseStage("verify", "Verify outputs")
	assert.Equal(t, "verify", b.ID())
	assert.Equal(t, "Verify outputs", b.Name())
}

func TestBaseStageNilReceiver(t *testing.T) {
	var b *BaseStage
	assert.Equal(t, "", b.ID())
	assert.Equal(t, "", b.Name())
}
