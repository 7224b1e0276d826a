// Package metrics records pipeline observations behind the Recorder interface.
//
// Components default to NoopRecorder so metrics never need nil checks. The
// run and schedule commands inject a PrometheusRecorder backed by a private
// registry; its samples are written to a node-exporter textfile after each run
// (WriteTextfile) and, in schedule mode, served over HTTP (HTTPHandler).
package metrics
