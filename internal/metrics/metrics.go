// Package metrics holds the process-wide prometheus collectors.
package metrics

const FitmetricsNamespace = "fitmetrics"
