package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/tabledrop/internal/state"
	"github.com/a3tai/tabledrop/internal/storage"
)

// fakeProcessor writes a stub spreadsheet for every PDF it is given,
// unless the file name is listed in failFor.
type fakeProcessor struct {
	failFor map[string]bool
	calls   []string
}

func (f *fakeProcessor) Process(pdfPath, outputPath string) bool {
	name := filepath.Base(pdfPath)
	f.calls = append(f.calls, name)
	if f.failFor[name] {
		return false
	}
	return os.WriteFile(outputPath, []byte("workbook"), 0o644) == nil
}

func newTestPoller(t *testing.T, root string, proc Processor, opts Options) *Poller {
	t.Helper()
	client, err := storage.NewLocalClient(root)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewPoller(client, state.NewMemoryStore(), proc, opts, logger)
}

func writeFixture(t *testing.T, root string, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "inbox", name), []byte("%PDF-stub"), 0o644))
}

func TestRunOnce_ConvertsNewPDFs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inbox", "archive"), 0o755))
	writeFixture(t, root, "a.pdf")
	writeFixture(t, root, "b.PDF")
	writeFixture(t, root, "notes.txt")

	proc := &fakeProcessor{}
	poller := newTestPoller(t, root, proc, Options{Folder: "/inbox"})

	result, err := poller.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Converted)
	assert.Equal(t, 0, result.Failed)
	assert.ElementsMatch(t, []string{"a.pdf", "b.PDF"}, proc.calls)

	// Spreadsheets land next to their sources, extension swapped.
	assert.FileExists(t, filepath.Join(root, "inbox", "a.xlsx"))
	assert.FileExists(t, filepath.Join(root, "inbox", "b.xlsx"))
	assert.NoFileExists(t, filepath.Join(root, "inbox", "notes.xlsx"))
}

func TestRunOnce_SecondSweepSkips(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inbox"), 0o755))
	writeFixture(t, root, "a.pdf")

	proc := &fakeProcessor{}
	poller := newTestPoller(t, root, proc, Options{Folder: "/inbox"})

	_, err := poller.RunOnce(context.Background())
	require.NoError(t, err)

	result, err := poller.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Converted)
	assert.Len(t, proc.calls, 1, "already processed file must not be converted again")
}

func TestRunOnce_FailureDoesNotStopSweep(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inbox"), 0o755))
	writeFixture(t, root, "bad.pdf")
	writeFixture(t, root, "good.pdf")

	proc := &fakeProcessor{failFor: map[string]bool{"bad.pdf": true}}
	poller := newTestPoller(t, root, proc, Options{Folder: "/inbox"})

	result, err := poller.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 1, result.Failed)
	assert.FileExists(t, filepath.Join(root, "inbox", "good.xlsx"))
	assert.NoFileExists(t, filepath.Join(root, "inbox", "bad.xlsx"))

	// The failed file is retried on the next sweep.
	result, err = poller.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)
}

func TestRunOnce_ListError(t *testing.T) {
	poller := newTestPoller(t, t.TempDir(), &fakeProcessor{}, Options{Folder: "/missing"})

	_, err := poller.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inbox"), 0o755))

	poller := newTestPoller(t, root, &fakeProcessor{}, Options{
		Folder:   "/inbox",
		Interval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := poller.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"report.pdf", true},
		{"REPORT.PDF", true},
		{"report.Pdf", true},
		{"report.txt", false},
		{"report", false},
		{"pdf", false},
	}

	for _, tt := range tests {
		if got := isPDF(tt.name); got != tt.expected {
			t.Errorf("isPDF(%q) = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"/inbox/report.pdf", "/inbox/report.xlsx"},
		{"/inbox/REPORT.PDF", "/inbox/REPORT.xlsx"},
		{"report.pdf", "report.xlsx"},
		{"/a/b.c/doc.pdf", "/a/b.c/doc.xlsx"},
	}

	for _, tt := range tests {
		if got := outputPath(tt.in); got != tt.expected {
			t.Errorf("outputPath(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
