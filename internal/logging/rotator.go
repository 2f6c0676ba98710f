package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Rotator is an io.Writer that appends to a log file and rotates it
// by size, compressing and pruning old backups. Used by the daemon
// for its on-disk log sink.
type Rotator struct {
	mu          sync.Mutex
	dir         string
	name        string
	maxSize     int64
	maxAge      time.Duration
	maxBackups  int
	compress    bool
	currentFile *os.File
	currentSize int64
}

// NewRotator opens (creating if needed) dir/name for appending.
// maxSizeMB bounds the live file, maxBackups and maxAgeDays bound the
// rotated ones; zero disables the respective limit.
func NewRotator(dir, name string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) (*Rotator, error) {
	r := &Rotator{
		dir:        dir,
		name:       name,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxAge:     time.Duration(maxAgeDays) * 24 * time.Hour,
		maxBackups: maxBackups,
		compress:   compress,
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rotator) open() error {
	path := filepath.Join(r.dir, r.name)

	if info, err := os.Stat(path); err == nil {
		r.currentSize = info.Size()
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	r.currentFile = file
	return nil
}

// Write appends p, rotating first when the live file would exceed its
// size limit.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentFile == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	if r.maxSize > 0 && r.currentSize+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.currentFile.Write(p)
	r.currentSize += int64(n)
	return n, err
}

// Close closes the live file. The rotator reopens it on next Write.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentFile == nil {
		return nil
	}
	err := r.currentFile.Close()
	r.currentFile = nil
	return err
}

func (r *Rotator) rotate() error {
	if r.currentFile != nil {
		warnIfErr("close rotated log file", r.currentFile.Close())
	}

	current := filepath.Join(r.dir, r.name)
	backup := filepath.Join(r.dir, fmt.Sprintf("%s.%s", r.name, time.Now().Format("2006-01-02-15-04-05")))

	if err := os.Rename(current, backup); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	if r.compress {
		if err := r.compressFile(backup); err != nil {
			warnIfErr("compress log backup", err)
		} else {
			warnIfErr("remove uncompressed log backup", os.Remove(backup))
		}
	}

	r.cleanup()

	r.currentSize = 0
	return r.open()
}

func (r *Rotator) compressFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { warnIfErr("close compression input", in.Close()) }()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer func() { warnIfErr("close compression output", out.Close()) }()

	gz := gzip.NewWriter(out)
	defer func() { warnIfErr("close gzip writer", gz.Close()) }()

	_, err = io.Copy(gz, in)
	return err
}

// cleanup prunes rotated files past the age limit, then enforces the
// backup count keeping the newest.
func (r *Rotator) cleanup() {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return
	}

	var backups []os.FileInfo
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), r.name+".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if r.maxAge > 0 && now.Sub(info.ModTime()) > r.maxAge {
			warnIfErr("remove expired log backup", os.Remove(filepath.Join(r.dir, entry.Name())))
			continue
		}
		backups = append(backups, info)
	}

	if r.maxBackups <= 0 || len(backups) <= r.maxBackups {
		return
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].ModTime().Before(backups[j].ModTime())
	})
	for _, info := range backups[:len(backups)-r.maxBackups] {
		warnIfErr("remove excess log backup", os.Remove(filepath.Join(r.dir, info.Name())))
	}
}

func warnIfErr(what string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to %s: %v\n", what, err)
	}
}
