// Copyright 2026 KrakLabs
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
//
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"io"
	"os"
)

// FileTailReader reads the last n bytes of a file on disk.
type FileTailReader struct {
	Path string
}

// Tail implements TailReader.
func (f FileTailReader) Tail(_ context.Context, n int) ([]byte, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	if int64(n) > size {
		n = int(size)
	}
	if n == 0 {
		return nil, nil
	}

	buf := make([]byte, n)
	if _, err := file.Seek(-int64(n), io.SeekEnd); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(file, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
