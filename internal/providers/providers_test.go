package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	providers []Provider
}

func (s *stubSource) ListActive(context.Context, string) ([]Provider, error) {
	return s.providers, nil
}

func (s *stubSource) Get(_ context.Context, _ string, id string) (*Provider, error) {
	for _, p := range s.providers {
		if p.ID == id {
			copy := p
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

func TestDirectoryParsesWeeklyHours(t *testing.T) {
	source := &stubSource{providers: []Provider{
		{
			ID:          "prov-1",
			Name:        "Dr. Rivera",
			Specialty:   "general",
			WeeklyHours: `{"mon":["08:00-12:00"],"wed":["13:00-18:00"]}`,
			Active:      true,
		},
	}}
	dir := NewDirectory(source, nil)

	schedules, err := dir.ListActive(context.Background(), "clinic-1")
	require.NoError(t, err)
	require.Len(t, schedules, 1)

	avail := schedules[0].Availability
	assert.True(t, avail.WorksOn(time.Monday))
	assert.True(t, avail.WorksOn(time.Wednesday))
	assert.False(t, avail.WorksOn(time.Friday))
}

func TestDirectoryFallsBackOnBadHours(t *testing.T) {
	source := &stubSource{providers: []Provider{
		{ID: "prov-1", Name: "Dr. Rivera", WeeklyHours: "garbage", Active: true},
	}}
	dir := NewDirectory(source, nil)

	schedule, err := dir.Get(context.Background(), "clinic-1", "prov-1")
	require.NoError(t, err)
	assert.True(t, schedule.Availability.WorksOn(time.Monday))
	assert.True(t, schedule.Availability.WorksOn(time.Friday))
	assert.False(t, schedule.Availability.WorksOn(time.Saturday))
}

func TestDirectoryGetUnknown(t *testing.T) {
	dir := NewDirectory(&stubSource{}, nil)
	_, err := dir.Get(context.Background(), "clinic-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
