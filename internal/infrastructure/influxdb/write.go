package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementAuthEvents is the measurement holding one point per auth event.
const MeasurementAuthEvents = "auth_events"

// AuthEvent is one countable auth occurrence.
//
// Tags stay low-cardinality (action, entity type, source); ids are not tagged.
type AuthEvent struct {
	Action     string
	EntityType string
	Source     string
	Time       time.Time
}

// WriteAuthEvent records one auth event with a count field of 1, so a
// sum() over a window yields the event rate.
func (c *Client) WriteAuthEvent(e AuthEvent) {
	if !c.IsConnected() {
		return
	}

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	tags := map[string]string{"action": e.Action}
	if e.EntityType != "" {
		tags["entity_type"] = e.EntityType
	}
	if e.Source != "" {
		tags["source"] = e.Source
	}

	c.writeAPI.WritePoint(write.NewPoint(MeasurementAuthEvents, tags, map[string]interface{}{"count": 1}, ts))
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
