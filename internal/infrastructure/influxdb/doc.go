// Package influxdb records auth event counters in InfluxDB 2.x.
//
// Every recorded event becomes one point in the auth_events measurement,
// tagged by action, entity type and source, so dashboards can chart sign-up,
// login and failed-login rates. The integration is optional (influxdb.enabled).
//
// Writes are batched and non-blocking; they never slow a request down.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteAuthEvent(influxdb.AuthEvent{Action: "login", EntityType: "user", Source: "api"})
package influxdb
