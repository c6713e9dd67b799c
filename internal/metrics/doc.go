// Package metrics records task outcomes for relkit.
//
// Components receive a Recorder through dependency injection. NoopRecorder is the
// default; PrometheusRecorder backs it with a registry that the CLI writes to a
// node_exporter textfile after each task, since relkit runs as a short-lived
// process with nothing to scrape.
package metrics
