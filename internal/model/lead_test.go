package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceExpert(t *testing.T) {
	assert.False(t, SourceGoogleMaps.Expert())
	assert.True(t, SourceLinkedIn.Expert())
	assert.True(t, SourceClutch.Expert())
}

func TestStatsResponseRate(t *testing.T) {
	assert.Zero(t, Stats{}.ResponseRate())
	assert.InDelta(t, 25.0, Stats{OutreachAttempts: 4, ResponsesReceived: 1}.ResponseRate(), 0.01)
	assert.InDelta(t, 100.0, Stats{OutreachAttempts: 2, ResponsesReceived: 2}.ResponseRate(), 0.01)
}
