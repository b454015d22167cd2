package watch

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/a3tai/tabledrop/internal/state"
	"github.com/a3tai/tabledrop/internal/storage"
)

// Processor converts a downloaded PDF into a spreadsheet. It reports
// success or failure and must not leave a partial output file behind.
type Processor interface {
	Process(pdfPath, outputPath string) bool
}

// Options configures a Poller.
type Options struct {
	// Folder is the remote folder to watch for new PDFs.
	Folder string

	// Interval is the delay between polls. Defaults to one minute.
	Interval time.Duration
}

// SweepResult summarizes a single pass over the watched folder.
type SweepResult struct {
	Found     int
	Converted int
	Skipped   int
	Failed    int
}

// Poller repeatedly scans a remote folder, converts PDFs that have not
// been processed yet, and uploads the resulting spreadsheets next to
// their source files.
type Poller struct {
	client    storage.Client
	store     state.Store
	processor Processor
	opts      Options
	logger    *logrus.Logger
}

// NewPoller creates a poller over the given storage client, processed
// state store, and converter.
func NewPoller(client storage.Client, store state.Store, processor Processor, opts Options, logger *logrus.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Poller{
		client:    client,
		store:     store,
		processor: processor,
		opts:      opts,
		logger:    logger,
	}
}

// Run polls the folder until the context is cancelled. Listing and
// per-file failures are logged and retried on the next poll.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.WithFields(logrus.Fields{
		"folder":   p.opts.Folder,
		"interval": p.opts.Interval.String(),
	}).Info("Watching folder for new PDFs")

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.WithError(err).Error("Poll failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.opts.Interval):
		}
	}
}

// RunOnce performs a single sweep over the folder. One file failing
// does not stop the sweep; failures are counted and logged.
func (p *Poller) RunOnce(ctx context.Context) (*SweepResult, error) {
	entries, err := p.client.List(ctx, p.opts.Folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", p.opts.Folder, err)
	}

	result := &SweepResult{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !entry.IsFile || !isPDF(entry.Name) {
			continue
		}
		result.Found++

		processed, err := p.store.Contains(ctx, entry.Path)
		if err != nil {
			result.Failed++
			p.logger.WithError(err).WithField("path", entry.Path).Error("Failed to check processed state")
			continue
		}
		if processed {
			result.Skipped++
			continue
		}

		job := uuid.NewString()
		logger := p.logger.WithFields(logrus.Fields{"path": entry.Path, "job": job})
		logger.Info("New PDF found")

		if err := p.processFile(ctx, entry); err != nil {
			result.Failed++
			logger.WithError(err).Error("Failed to process file")
			continue
		}
		result.Converted++
		logger.WithField("output", outputPath(entry.Path)).Info("Converted and uploaded")
	}

	return result, nil
}

// processFile downloads the PDF into a scratch directory, converts it,
// and uploads the spreadsheet. The file is marked processed only after
// the upload succeeds.
func (p *Poller) processFile(ctx context.Context, entry storage.Entry) error {
	tmpDir, err := os.MkdirTemp("", "tabledrop-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	localPDF := filepath.Join(tmpDir, entry.Name)
	if err := p.client.Download(ctx, entry.Path, localPDF); err != nil {
		return fmt.Errorf("failed to download %s: %w", entry.Path, err)
	}

	localOut := filepath.Join(tmpDir, outputPath(entry.Name))
	if !p.processor.Process(localPDF, localOut) {
		return fmt.Errorf("conversion failed for %s", entry.Path)
	}

	remoteOut := outputPath(entry.Path)
	if err := p.client.Upload(ctx, localOut, remoteOut); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remoteOut, err)
	}

	if err := p.store.Add(ctx, entry.Path); err != nil {
		return fmt.Errorf("failed to mark %s as processed: %w", entry.Path, err)
	}
	return nil
}

// isPDF matches the .pdf extension in any case.
func isPDF(name string) bool {
	return strings.EqualFold(path.Ext(name), ".pdf")
}

// outputPath swaps the file extension for .xlsx, keeping the base name
// and folder.
func outputPath(remotePath string) string {
	return strings.TrimSuffix(remotePath, path.Ext(remotePath)) + ".xlsx"
}
