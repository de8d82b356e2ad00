// Package mqtt publishes auth service events to an MQTT broker.
//
// It is optional infrastructure: when mqtt.enabled is false the service runs
// without it. Other services subscribe to react to sign-ups, logins and
// account changes without polling.
//
// # Topics
//
//	<prefix>/events/<action>   auth events (register, login, logout, ...)
//	<prefix>/system/status     retained online/offline status (with LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().Event("login"), event)
package mqtt
