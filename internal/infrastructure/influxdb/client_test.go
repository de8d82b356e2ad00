package influxdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panks123/pizza-app-auth-service/internal/infrastructure/config"
)

// fakeWriteAPI captures points instead of sending them.
type fakeWriteAPI struct {
	mu      sync.Mutex
	points  []*write.Point
	flushed int
	errs    chan error
}

func newFakeWriteAPI() *fakeWriteAPI {
	return &fakeWriteAPI{errs: make(chan error, 1)}
}

func (f *fakeWriteAPI) WriteRecord(string) {}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed++
}

func (f *fakeWriteAPI) Errors() <-chan error { return f.errs }

func (f *fakeWriteAPI) SetWriteFailedCallback(_ api.WriteFailedCallback) {}

func (f *fakeWriteAPI) snapshot() []*write.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*write.Point(nil), f.points...)
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestWriteAuthEvent(t *testing.T) {
	fake := newFakeWriteAPI()
	c := newClient(nil, fake)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.WriteAuthEvent(AuthEvent{Action: "login", EntityType: "user", Source: "api", Time: at})

	points := fake.snapshot()
	require.Len(t, points, 1)

	p := points[0]
	assert.Equal(t, MeasurementAuthEvents, p.Name())
	assert.Equal(t, at, p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"action": "login", "entity_type": "user", "source": "api"}, tags)

	require.Len(t, p.FieldList(), 1)
	assert.Equal(t, "count", p.FieldList()[0].Key)
}

func TestWrite_AfterCloseIsNoop(t *testing.T) {
	fake := newFakeWriteAPI()
	c := newClient(nil, fake)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, fake.flushed)

	c.WriteAuthEvent(AuthEvent{Action: "login"})
	c.WritePoint("custom", nil, map[string]interface{}{"v": 1})
	c.Flush()

	assert.Empty(t, fake.snapshot())
	assert.Equal(t, 1, fake.flushed)
	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrNotConnected)
}

func TestSetOnError(t *testing.T) {
	fake := newFakeWriteAPI()
	c := newClient(nil, fake)

	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	fake.errs <- assert.AnError

	select {
	case err := <-got:
		assert.ErrorIs(t, err, assert.AnError)
	case <-time.After(2 * time.Second):
		t.Fatal("error callback not invoked")
	}
}
