package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/amwatch/models"
)

func TestCheckRetrieved(t *testing.T) {
	now := time.Now().UTC()

	r := models.Retrieved{DatetimeRetrieved: now}
	assert.NoError(t, r.CheckRetrieved(now))

	r.DatetimeRetrieved = time.Time{}
	assert.Error(t, r.CheckRetrieved(now))

	r.DatetimeRetrieved = now.In(time.FixedZone("EST", -5*3600))
	assert.Error(t, r.CheckRetrieved(now))

	r.DatetimeRetrieved = now.Add(time.Minute)
	assert.Error(t, r.CheckRetrieved(now))
}

func TestCheckRetrievedStale(t *testing.T) {
	now := time.Now().UTC()

	r := models.Retrieved{DatetimeRetrieved: now.Add(-models.FreshnessWindow - time.Second)}
	err := r.CheckRetrieved(now)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStale)
}

func TestCheckStatus(t *testing.T) {
	now := time.Now().UTC()

	status := models.RaceStatus{MTP: 5}
	status.DatetimeRetrieved = now
	assert.NoError(t, status.CheckStatus(now))

	status.MTP = -1
	assert.Error(t, status.CheckStatus(now))
}

func TestCheckStatusResultsRequireClosedWagering(t *testing.T) {
	now := time.Now().UTC()

	status := models.RaceStatus{ResultsPosted: true, WageringClosed: false}
	status.DatetimeRetrieved = now
	err := status.CheckStatus(now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wagering must be closed")

	status.WageringClosed = true
	assert.NoError(t, status.CheckStatus(now))
}
