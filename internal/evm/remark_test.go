package evm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"evm-report/internal/model"
)

func TestClassifyQuadrants(t *testing.T) {
	tests := []struct {
		name     string
		spi, cpi float64
		want     Remark
		tone     Tone
	}{
		{"both favourable", 1.2, 1.1, RemarkAheadUnderBudget, ToneFavorable},
		{"boundary is favourable", 1, 1, RemarkAheadUnderBudget, ToneFavorable},
		{"ahead over budget", 1, 0.99, RemarkAheadOverBudget, ToneMixed},
		{"behind under budget", 0.99, 1, RemarkBehindUnderBudget, ToneMixed},
		{"both unfavourable", 0.5, 0.5, RemarkBehindOverBudget, ToneUnfavorable},
		{"zero indices", 0, 0, RemarkBehindOverBudget, ToneUnfavorable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.spi, tt.cpi)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.tone, got.Tone())
		})
	}
}

func TestClassifyRecordUsesCumulativeIndices(t *testing.T) {
	rows := Derive(scenario())
	assert.Equal(t, RemarkBehindOverBudget, ClassifyRecord(rows[0]))
	assert.Equal(t, RemarkAheadUnderBudget, ClassifyRecord(rows[1]))

	r := model.DerivedPeriodRecord{SchedulePerformanceIndex: 2, CostPerformanceIndex: 0.2}
	assert.Equal(t, RemarkAheadOverBudget, ClassifyRecord(r))
}

func TestColumnTones(t *testing.T) {
	assert.Equal(t, ToneFavorable, ColSPI.Tone(1))
	assert.Equal(t, ToneUnfavorable, ColCPI.Tone(0.999))
	assert.Equal(t, ToneFavorable, ColSV.Tone(0))
	assert.Equal(t, ToneUnfavorable, ColCV.Tone(-0.01))
	assert.Equal(t, ToneNeutral, ColPlannedValue.Tone(-5))
}
