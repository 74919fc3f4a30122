// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package nodestats

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAPILocalStats(t *testing.T) {
	require := require.New(t)
	s := NewAPILocalStats()
	require.Empty(s.BuildReport())

	s.ReportCall(APIReport{Method: ""}, 10)
	s.ReportCall(APIReport{Method: "sbt_claim", HandlingTime: 200 * time.Microsecond, Success: true}, 300)
	s.ReportCall(APIReport{Method: "sbt_claim", HandlingTime: 400 * time.Microsecond, Success: false}, 300)
	s.ReportCall(APIReport{Method: "sbt_ownerOf", HandlingTime: 100 * time.Microsecond, Success: true}, 2000)
	require.Equal(2, s.AllTimeCalls("sbt_claim"))
	require.Zero(s.AllTimeCalls(""))

	report := s.BuildReport()
	require.True(strings.HasPrefix(report, "***** API CALL report *****\n"))
	require.Contains(report, "sbt_claim")
	require.Contains(report, "sbt_ownerOf")
	require.Contains(report, "TOTAL")
	require.Contains(report, "2.0 kB")
	require.Less(strings.Index(report, "sbt_claim"), strings.Index(report, "sbt_ownerOf"))

	// the current window is reset, all-time counters are kept
	require.Empty(s.BuildReport())
	require.Equal(1, s.AllTimeCalls("sbt_ownerOf"))
}

func TestMethodStats(t *testing.T) {
	require := require.New(t)
	m := &apiMethodStats{}
	require.Zero(m.AvgSize())
	m.add(100, true, 10)
	m.add(300, true, 30)
	m.add(50, false, 20)
	require.Equal(int64(200), m.AvgTimeOfSuccesses)
	require.Equal(int64(300), m.MaxTimeOfSuccess)
	require.Equal(int64(50), m.AvgTimeOfErrors)
	require.Equal(int64(20), m.AvgSize())

	total := &apiMethodStats{}
	total.merge(m)
	total.merge(&apiMethodStats{Successes: 2, AvgTimeOfSuccesses: 500, MaxTimeOfSuccess: 600})
	require.Equal(4, total.Successes)
	require.Equal(int64(350), total.AvgTimeOfSuccesses)
	require.Equal(int64(600), total.MaxTimeOfSuccess)
	require.Equal("999 B", byteCountSI(999))
	require.Equal("1.5 MB", byteCountSI(1500000))
}
