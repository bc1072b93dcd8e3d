package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var ErrFileNotFound = errors.New("file not found")

// FileStorage keeps rendered payslips and other binary artifacts.
type FileStorage interface {
	// Upload stores the content under key and returns the cleaned key
	Upload(ctx context.Context, file io.Reader, key string, contentType string) (string, error)

	// Download returns ErrFileNotFound when nothing is stored under key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PayslipKey builds the storage key of one rendered revision of an employee's
// payslip for a period key such as "2025-03". Revisions never share a key.
func PayslipKey(companyID, periodKey, employeeID, revision string) string {
	return PayslipPrefix(companyID, periodKey, employeeID) + revision + ".pdf"
}

// PayslipPrefix is the key prefix shared by every revision of one payslip.
func PayslipPrefix(companyID, periodKey, employeeID string) string {
	return fmt.Sprintf("payslips/%s/%s/%s-", companyID, periodKey, employeeID)
}

// ReadAll downloads key fully into memory.
func ReadAll(ctx context.Context, fs FileStorage, key string) ([]byte, error) {
	rc, err := fs.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}
