// Package scheduler bounds how many jobs run at once and dispatches queued
// jobs to free worker slots in submission order. There is no priority or
// preemption: the first pending job claims the next free slot.
package scheduler
