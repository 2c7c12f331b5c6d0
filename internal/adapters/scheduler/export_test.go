package scheduler

// Unschedulable exposes the sweeper's terminal-failure classification to the
// external test package.
var Unschedulable = unschedulable
