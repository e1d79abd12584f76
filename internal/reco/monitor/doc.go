// Package monitor renders replay diagnostics: FSR association histograms
// as PNG files and the stage cutflow as an interactive HTML bar chart,
// either written to disk or served over HTTP from the run store.
package monitor
