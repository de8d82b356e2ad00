// Package audit records what happened to accounts and tenants.
//
// Every register, login (successful or not), refresh, logout and every admin
// change to a user or tenant becomes an Entry in the audit_logs table. A
// FanOut recorder also broadcasts the entry over MQTT and counts it in
// InfluxDB when those integrations are enabled.
//
// Entries carry ids and actions only. Passwords and tokens are never part of
// an event.
package audit
