package executor

import (
	"sort"
	"syscall"
)

// track registers a running process in the process table, enabling external
// cancellation by pid.
func (e *ProcessExecutor) track(pid int, handle processHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processes[pid] = handle
}

// untrack removes a process from the table after it exits.
func (e *ProcessExecutor) untrack(pid int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.processes, pid)
	delete(e.backgroundPIDs, pid)
}

// consumeCancelled reports whether pid was explicitly cancelled, clearing the
// mark so later attempts are unaffected.
func (e *ProcessExecutor) consumeCancelled(pid int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelledPIDs == nil {
		return false
	}
	_, ok := e.cancelledPIDs[pid]
	delete(e.cancelledPIDs, pid)
	return ok
}

// Cancel sends sig (SIGTERM when zero) to a tracked process and removes it
// from the table. Cancelling an untracked pid is a no-op returning false.
// Cancellation is best-effort: a process ignoring SIGTERM is not escalated.
func (e *ProcessExecutor) Cancel(pid int, sig syscall.Signal) bool {
	if sig == 0 {
		sig = syscall.SIGTERM
	}

	e.mu.Lock()
	handle, ok := e.processes[pid]
	if ok {
		delete(e.processes, pid)
		delete(e.backgroundPIDs, pid)
		if e.cancelledPIDs == nil {
			e.cancelledPIDs = make(map[int]struct{})
		}
		e.cancelledPIDs[pid] = struct{}{}
	}
	e.mu.Unlock()

	if !ok {
		return false
	}

	// Signal the process group so shell-forked children die with the shell.
	// The direct handle is the fallback for processes without their own group.
	if groupErr := syscall.Kill(-pid, sig); groupErr != nil {
		if err := handle.Signal(sig); err != nil {
			e.logger.Warn("failed to signal process", "pid", pid, "signal", signalName(sig), "error", err)
		}
	}
	return true
}

// CancelAll signals every tracked process and empties the table. It returns
// the number of processes signalled.
func (e *ProcessExecutor) CancelAll(sig syscall.Signal) int {
	e.mu.Lock()
	pids := make([]int, 0, len(e.processes))
	for pid := range e.processes {
		pids = append(pids, pid)
	}
	e.mu.Unlock()

	count := 0
	for _, pid := range pids {
		if e.Cancel(pid, sig) {
			count++
		}
	}
	return count
}

// ActivePIDs returns the pids of all tracked processes, sorted.
func (e *ProcessExecutor) ActivePIDs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	pids := make([]int, 0, len(e.processes))
	for pid := range e.processes {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// BackgroundPIDs returns the pids of detached background processes, sorted.
func (e *ProcessExecutor) BackgroundPIDs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	pids := make([]int, 0, len(e.backgroundPIDs))
	for pid := range e.backgroundPIDs {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}
