// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package nodestats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rodaine/table"
)

type (
	// APIReport is the report of an API call
	APIReport struct {
		Method       string
		HandlingTime time.Duration
		Success      bool
	}

	// RPCLocalStats collects API calls and reports them periodically
	RPCLocalStats interface {
		ReportCall(report APIReport, size int64)
		BuildReport() string
	}

	apiMethodStats struct {
		Successes          int
		Errors             int
		AvgTimeOfErrors    int64
		AvgTimeOfSuccesses int64
		MaxTimeOfError     int64
		MaxTimeOfSuccess   int64
		TotalSize          int64
	}

	// APILocalStats is the struct for getting API stats
	APILocalStats struct {
		mutex        sync.Mutex
		allTimeStats map[string]*apiMethodStats
		currentStats map[string]*apiMethodStats
	}
)

var _ RPCLocalStats = (*APILocalStats)(nil)

// AvgSize returns the average request size of the method
func (m *apiMethodStats) AvgSize() int64 {
	if m.Successes+m.Errors == 0 {
		return 0
	}
	return m.TotalSize / int64(m.Successes+m.Errors)
}

func (m *apiMethodStats) add(elapsed int64, success bool, size int64) {
	if success {
		m.Successes++
		m.AvgTimeOfSuccesses = (m.AvgTimeOfSuccesses*int64(m.Successes-1) + elapsed) / int64(m.Successes)
		if elapsed > m.MaxTimeOfSuccess {
			m.MaxTimeOfSuccess = elapsed
		}
	} else {
		m.Errors++
		m.AvgTimeOfErrors = (m.AvgTimeOfErrors*int64(m.Errors-1) + elapsed) / int64(m.Errors)
		if elapsed > m.MaxTimeOfError {
			m.MaxTimeOfError = elapsed
		}
	}
	m.TotalSize += size
}

// merge folds other into m
func (m *apiMethodStats) merge(other *apiMethodStats) {
	if m.Successes+other.Successes > 0 {
		m.AvgTimeOfSuccesses = (m.AvgTimeOfSuccesses*int64(m.Successes) + other.AvgTimeOfSuccesses*int64(other.Successes)) / int64(m.Successes+other.Successes)
	}
	if m.Errors+other.Errors > 0 {
		m.AvgTimeOfErrors = (m.AvgTimeOfErrors*int64(m.Errors) + other.AvgTimeOfErrors*int64(other.Errors)) / int64(m.Errors+other.Errors)
	}
	m.Successes += other.Successes
	m.Errors += other.Errors
	if other.MaxTimeOfError > m.MaxTimeOfError {
		m.MaxTimeOfError = other.MaxTimeOfError
	}
	if other.MaxTimeOfSuccess > m.MaxTimeOfSuccess {
		m.MaxTimeOfSuccess = other.MaxTimeOfSuccess
	}
	m.TotalSize += other.TotalSize
}

// NewAPILocalStats creates a new APILocalStats
func NewAPILocalStats() *APILocalStats {
	return &APILocalStats{
		allTimeStats: make(map[string]*apiMethodStats),
		currentStats: make(map[string]*apiMethodStats),
	}
}

// ReportCall reports a call to the API
func (s *APILocalStats) ReportCall(report APIReport, size int64) {
	if report.Method == "" {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	elapsed := report.HandlingTime.Microseconds()
	for _, stats := range []map[string]*apiMethodStats{s.currentStats, s.allTimeStats} {
		m, ok := stats[report.Method]
		if !ok {
			m = &apiMethodStats{}
			stats[report.Method] = m
		}
		m.add(elapsed, report.Success, size)
	}
}

// AllTimeCalls returns the number of calls of method since start
func (s *APILocalStats) AllTimeCalls(method string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	m, ok := s.allTimeStats[method]
	if !ok {
		return 0
	}
	return m.Successes + m.Errors
}

// BuildReport renders the calls since the last report and resets them
func (s *APILocalStats) BuildReport() string {
	s.mutex.Lock()
	snapshot := s.currentStats
	s.currentStats = make(map[string]*apiMethodStats)
	s.mutex.Unlock()

	if len(snapshot) == 0 {
		return ""
	}
	methods := make([]string, 0, len(snapshot))
	for method := range snapshot {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	sb := strings.Builder{}
	sb.WriteString("***** API CALL report *****\n")
	tb := table.New(
		"method",
		"successes", "avg time (µs)", "max time (µs)",
		"errors", "avg time (µs)", "max time (µs)",
		"avg size", "total size",
	).WithWriter(&sb)
	total := &apiMethodStats{}
	for _, method := range methods {
		stats := snapshot[method]
		total.merge(stats)
		addRow(tb, method, stats)
	}
	addRow(tb, "TOTAL", total)
	tb.Print()
	return sb.String()
}

func addRow(tb table.Table, method string, stats *apiMethodStats) {
	tb.AddRow(
		method,
		stats.Successes,
		stats.AvgTimeOfSuccesses,
		stats.MaxTimeOfSuccess,
		stats.Errors,
		stats.AvgTimeOfErrors,
		stats.MaxTimeOfError,
		byteCountSI(stats.AvgSize()),
		byteCountSI(stats.TotalSize),
	)
}

func byteCountSI(b int64) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "kMGTPE"[exp])
}
