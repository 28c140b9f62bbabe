// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clauses

import "github.com/poiesic/clausewise/core"

// Stats are aggregate counts over a clause collection.
type Stats struct {
	Total int
	// HighRisk counts clauses with RiskScore >= core.HighThreshold.
	HighRisk int
	// Critical counts clauses with RiskScore >= core.CriticalThreshold.
	Critical   int
	Embedded   int
	ByCategory map[core.Severity]int
	BySection  map[string]int
}

// ComputeStats aggregates records.
func ComputeStats(records []*core.ClauseRecord) Stats {
	st := Stats{
		ByCategory: make(map[core.Severity]int, len(core.Severities)),
		BySection:  make(map[string]int),
	}
	for _, s := range core.Severities {
		st.ByCategory[s] = 0
	}
	for _, r := range records {
		st.Total++
		if r.RiskScore >= core.HighThreshold {
			st.HighRisk++
		}
		if r.RiskScore >= core.CriticalThreshold {
			st.Critical++
		}
		if r.HasEmbedding() {
			st.Embedded++
		}
		st.ByCategory[r.RiskCategory]++
		st.BySection[r.Section]++
	}
	return st
}
