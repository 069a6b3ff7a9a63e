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

// Package artifact packages a finished SQLite database into a distributable
// tarball plus a SHA-256 checksum sidecar, for the build-artifacts command.
package artifact

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
)

// Result names the files build-artifacts produced.
type Result struct {
	TarballPath  string
	ChecksumPath string
	SHA256       string
	SizeBytes    int64
}

// Build tars and gzips dbPath into outDir/<name>.tar.gz, computes its
// SHA-256 digest, and writes outDir/<name>.tar.gz.sha256 using the same
// atomic temp-file-then-rename pattern the checkpoint manager uses.
func Build(dbPath, outDir, name string) (*Result, error) {
	if name == "" {
		name = filepath.Base(dbPath)
	}
	tarballPath := filepath.Join(outDir, name+".tar.gz")

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, zerrors.NewDatabaseIO("cannot create artifact output directory", err.Error(), "check the output path is writable", err)
	}

	size, err := writeTarball(dbPath, tarballPath)
	if err != nil {
		return nil, zerrors.NewDatabaseIO("cannot build artifact tarball", err.Error(), "check disk space and database file permissions", err)
	}

	digest, err := sha256File(tarballPath)
	if err != nil {
		return nil, zerrors.NewDatabaseIO("cannot checksum artifact tarball", err.Error(), "", err)
	}

	checksumPath := tarballPath + ".sha256"
	if err := writeAtomic(checksumPath, []byte(fmt.Sprintf("%s  %s\n", digest, filepath.Base(tarballPath)))); err != nil {
		return nil, zerrors.NewDatabaseIO("cannot write checksum sidecar", err.Error(), "", err)
	}

	return &Result{TarballPath: tarballPath, ChecksumPath: checksumPath, SHA256: digest, SizeBytes: size}, nil
}

func writeTarball(dbPath, tarballPath string) (int64, error) {
	src, err := os.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return 0, err
	}

	tmpPath := tarballPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = out.Close() }()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	hdr := &tar.Header{
		Name: filepath.Base(dbPath),
		Mode: 0o644,
		Size: info.Size(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if _, err := io.Copy(tw, src); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := tw.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := gz.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	if err := os.Rename(tmpPath, tarballPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	return info.Size(), nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
