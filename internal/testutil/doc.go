// Package testutil contains helper builders and test doubles used across
// tests: a fluent JobSpec builder, a counting JobRunner that records peak
// concurrency, and a fake training executable driven by the test binary
// itself (helper-process pattern). They are not intended for production usage.
package testutil
