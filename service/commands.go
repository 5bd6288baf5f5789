package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"postroom/app/repositories"
)

// ErrCancelled is returned when the user declines a destructive prompt.
var ErrCancelled = errors.New("operation cancelled")

// maintenance runs the database housekeeping commands against dbPath.
type maintenance struct {
	dbPath string
	in     io.Reader
	out    io.Writer
	// yes skips confirmation prompts.
	yes    bool
	logger badger.Logger
}

func (m *maintenance) confirm(question string) bool {
	if m.yes {
		return true
	}
	fmt.Fprintf(m.out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(m.in).ReadString('\n')
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}

func (m *maintenance) exists() bool {
	_, err := os.Stat(m.dbPath)
	return err == nil
}

// clean removes the database.
func (m *maintenance) clean() error {
	if !m.exists() {
		fmt.Fprintln(m.out, "Database is already clean (does not exist)")
		return nil
	}
	if !m.confirm("Are you sure you want to clean the database? This cannot be undone.") {
		return ErrCancelled
	}
	if err := os.RemoveAll(m.dbPath); err != nil {
		return fmt.Errorf("failed to clean database: %w", err)
	}
	fmt.Fprintln(m.out, "Database cleaned successfully")
	return nil
}

// initDB creates a new empty database.
func (m *maintenance) initDB() error {
	if m.exists() {
		fmt.Fprintln(m.out, "Database already exists. Use 'clean' first if you want to reinitialize.")
		return nil
	}
	store, err := repositories.Open(m.dbPath, m.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := store.Close(); err != nil {
		return err
	}
	fmt.Fprintln(m.out, "Database initialized successfully")
	return nil
}

// backup writes a full backup below backupDir and returns its path.
func (m *maintenance) backup(backupDir string) (string, error) {
	if !m.exists() {
		return "", fmt.Errorf("no database exists to backup at %s", m.dbPath)
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	store, err := repositories.Open(m.dbPath, m.logger)
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	backupFile := filepath.Join(backupDir, fmt.Sprintf("backup_%d.db", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if _, err := store.DB().Backup(f, 0); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	fmt.Fprintf(m.out, "Database backed up successfully to %s\n", backupFile)
	return backupFile, nil
}

// restore replaces the database with the contents of backupFile.
func (m *maintenance) restore(backupFile string) (err error) {
	fi, err := os.Stat(backupFile)
	if err != nil {
		return fmt.Errorf("backup file does not exist: %s", backupFile)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("backup file is empty: %s", backupFile)
	}

	if m.exists() {
		if !m.confirm("Existing database found. Do you want to replace it?") {
			return ErrCancelled
		}
		if err := os.RemoveAll(m.dbPath); err != nil {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	store, err := repositories.Open(m.dbPath, m.logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred during restore: %v", r)
		}
	}()
	if err := store.DB().Load(f, 4); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	fmt.Fprintln(m.out, "Database restored successfully")
	return nil
}
