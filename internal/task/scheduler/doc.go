// Package scheduler provides schedule registration and trigger calculation.
//
// The scheduler is trigger-only: it registers cron/interval schedules,
// computes next trigger times, and enqueues tasks into the task engine,
// which owns execution.
package scheduler
