package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// RecoveryOutcome is the result of Recover.
type RecoveryOutcome string

const (
	RecoveryHealthy  RecoveryOutcome = "healthy"
	RecoveryWAL      RecoveryOutcome = "wal_replayed"
	RecoveryRestored RecoveryOutcome = "restored_from_backup"
	RecoveryFailed   RecoveryOutcome = "failed"
)

// ErrUnrecoverable is returned when no recovery step produced a sound file.
var ErrUnrecoverable = errors.New("database could not be recovered")

// RecoveryReport describes what Recover found and did.
type RecoveryReport struct {
	Outcome    RecoveryOutcome
	Path       string
	BackupUsed string
	Preserved  string // where the damaged file was moved, if it was
	Steps      []RecoveryStep
}

// RecoveryStep is one attempted recovery action.
type RecoveryStep struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Recover makes sure the file at dbPath is usable before Open. It checks
// integrity, then tries a WAL checkpoint, then restores the newest backup
// from backupDir that passes its own integrity check. A missing file is
// healthy: the first run creates it.
func Recover(ctx context.Context, dbPath, backupDir string, logger *slog.Logger) (*RecoveryReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	report := &RecoveryReport{Path: dbPath}

	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		report.Outcome = RecoveryHealthy
		return report, nil
	}

	if report.run("integrity_check", func() error { return checkFile(ctx, dbPath) }) {
		report.Outcome = RecoveryHealthy
		return report, nil
	}
	logger.Warn("database failed integrity check", "path", dbPath)

	if _, err := os.Stat(dbPath + "-wal"); err == nil {
		ok := report.run("wal_checkpoint", func() error { return replayWAL(ctx, dbPath) }) &&
			report.run("integrity_recheck", func() error { return checkFile(ctx, dbPath) })
		if ok {
			report.Outcome = RecoveryWAL
			logger.Info("database recovered by WAL checkpoint", "path", dbPath)
			return report, nil
		}
	}

	if backupDir != "" {
		var used, preserved string
		restored := report.run("restore_backup", func() error {
			var err error
			used, preserved, err = restoreNewest(ctx, dbPath, backupDir, logger)
			return err
		})
		if restored {
			report.Outcome = RecoveryRestored
			report.BackupUsed = used
			report.Preserved = preserved
			logger.Warn("database restored from backup", "path", dbPath, "backup", used, "damaged_copy", preserved)
			return report, nil
		}
	}

	report.Outcome = RecoveryFailed
	logger.Error("database recovery failed", "path", dbPath, "steps", len(report.Steps))
	return report, ErrUnrecoverable
}

func (r *RecoveryReport) run(name string, fn func() error) bool {
	start := time.Now()
	err := fn()
	r.Steps = append(r.Steps, RecoveryStep{Name: name, Err: err, Duration: time.Since(start)})
	return err == nil
}

func checkFile(ctx context.Context, path string) error {
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return integrityCheck(ctx, conn)
}

func replayWAL(ctx context.Context, path string) error {
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s", path))
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA wal_checkpoint(RESTART)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	return nil
}

// restoreNewest replaces dbPath with the newest sound backup. The damaged
// file is kept beside the original with a .damaged suffix.
func restoreNewest(ctx context.Context, dbPath, backupDir string, logger *slog.Logger) (used, preserved string, err error) {
	candidates, err := listBackups(backupDir)
	if err != nil {
		return "", "", err
	}
	for _, b := range candidates {
		if err := checkFile(ctx, b); err != nil {
			logger.Debug("skipping unsound backup", "path", b, "error", err)
			continue
		}

		preserved = dbPath + ".damaged." + time.Now().UTC().Format("20060102-150405")
		if err := os.Rename(dbPath, preserved); err != nil {
			logger.Warn("could not preserve damaged database", "error", err)
			preserved = ""
		}
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")

		if err := copyFile(b, dbPath); err != nil {
			return "", preserved, fmt.Errorf("copying backup: %w", err)
		}
		return b, preserved, nil
	}
	return "", "", errors.New("no sound backup found")
}

// listBackups returns backup files newest first.
func listBackups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}
	type file struct {
		path string
		mod  time.Time
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() || !isBackupName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, file{filepath.Join(dir, e.Name()), info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
