// Package mock provides a scripted llm.Client for testing streaming
// completion code without real API calls.
//
// Features:
// - Pre-configured streams, start errors and mid-stream errors
// - Echo responses once the script is exhausted
// - Latency simulation
// - Call logging
package mock
