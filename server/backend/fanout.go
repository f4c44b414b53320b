/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package backend

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/yorkie-team/tripsync/pkg/errors"
)

// fanOut bounds the number of tasks FanOut runs at once across the server.
type fanOut struct {
	semaphore *semaphore.Weighted
}

// newFanOut creates a new fanOut with the given max concurrency.
func newFanOut(maxConcurrency int64) *fanOut {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &fanOut{
		semaphore: semaphore.NewWeighted(maxConcurrency),
	}
}

// FanOut runs fn for every task concurrently within the backend's
// concurrency limit and waits for all of them. The errors of the tasks are
// joined.
func FanOut[T any](
	ctx context.Context,
	be *Backend,
	tasks []T,
	fn func(ctx context.Context, task T) error,
) error {
	if len(tasks) == 0 {
		return nil
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task T) {
			defer wg.Done()

			if err := be.fanOut.semaphore.Acquire(ctx, 1); err != nil {
				errs[i] = err
				return
			}
			defer be.fanOut.semaphore.Release(1)

			errs[i] = fn(ctx, task)
		}(i, task)
	}
	wg.Wait()

	return errors.Join(errs...)
}
