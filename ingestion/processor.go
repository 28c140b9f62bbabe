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

package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clausewise/core"
)

// Processing stages reported in Failure.Stage.
const (
	StageSegment = "segment"
	StageScan    = "scan"
	StageEmbed   = "embed"
)

// previewLength bounds the input excerpt kept on a Failure.
const previewLength = 80

// Failure is one isolated per-item error.
type Failure struct {
	Index int    // fragment index, or chunk index for StageSegment
	Stage string // StageSegment, StageScan or StageEmbed
	Input string // preview of the offending input
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s failed for item %d (%q): %v", f.Stage, f.Index, f.Input, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

func newFailure(index int, stage, input string, err error) Failure {
	return Failure{Index: index, Stage: stage, Input: core.Preview(input, previewLength), Err: err}
}

// guard calls fn and converts a panic into an error wrapping ErrPanic.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}

// fanOut runs fn(i) for every i in [0, n) on pool and waits for all of them.
// Items not yet submitted when ctx is done are skipped and ctx.Err() is returned.
func fanOut(ctx context.Context, pool *ants.Pool, n int, fn func(i int)) error {
	var wg sync.WaitGroup
	var submitErr error

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			submitErr = err
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			fn(i)
		}); err != nil {
			wg.Done()
			submitErr = err
			break
		}
	}

	wg.Wait()
	return submitErr
}
