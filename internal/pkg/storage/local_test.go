package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_UploadDownload(t *testing.T) {
	ctx := context.Background()
	fs, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := PayslipKey("company-1", "2025-03", "employee-1", "rev-1")
	assert.Equal(t, "payslips/company-1/2025-03/employee-1-rev-1.pdf", key)
	assert.True(t, strings.HasPrefix(key, PayslipPrefix("company-1", "2025-03", "employee-1")))

	stored, err := fs.Upload(ctx, bytes.NewReader([]byte("%PDF-1.3")), key, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, key, stored)

	exists, err := fs.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := ReadAll(ctx, fs, key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	require.NoError(t, fs.Delete(ctx, key))
	require.NoError(t, fs.Delete(ctx, key))

	_, err = fs.Download(ctx, key)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStorage_KeysStayInsideBase(t *testing.T) {
	ctx := context.Background()
	fs, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	stored, err := fs.Upload(ctx, bytes.NewReader([]byte("x")), "../../etc/passwd", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", stored)

	_, err = fs.Upload(ctx, bytes.NewReader([]byte("x")), "/", "text/plain")
	assert.Error(t, err)
}
