package legacy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/catalog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FileReader is the source of raw legacy exports.
type FileReader interface {
	ReadAllText(ctx context.Context, path string) (string, error)
}

// OSFileReader reads from the local filesystem. MaxBytes of zero means no limit.
type OSFileReader struct {
	MaxBytes int64
}

func (r OSFileReader) ReadAllText(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var src io.Reader = f
	if r.MaxBytes > 0 {
		src = io.LimitReader(f, r.MaxBytes+1)
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	if r.MaxBytes > 0 && int64(len(b)) > r.MaxBytes {
		return "", fmt.Errorf("%s exceeds %d bytes", path, r.MaxBytes)
	}
	return string(b), nil
}

type Config struct {
	Codes CodeTable
	// NewID defaults to random UUIDs.
	NewID func() string
}

type Importer struct {
	reader FileReader
	parser *Parser
	logger *slog.Logger
	tracer trace.Tracer
}

func NewImporter(reader FileReader, cat catalog.Provider, logger *slog.Logger, cfg Config) *Importer {
	if reader == nil {
		reader = OSFileReader{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{
		reader: reader,
		parser: NewParser(cfg.Codes, cat, cfg.NewID),
		logger: logger,
		tracer: otel.Tracer("legacy-import"),
	}
}

// Import reads path and imports its content. Only an unreadable source or a
// document damaged beyond repair produce an error; bad records are reported
// in Result.Failures.
func (im *Importer) Import(ctx context.Context, path string) (Result, error) {
	raw, err := im.reader.ReadAllText(ctx, path)
	if err != nil {
		im.logger.Error("legacy file unreadable", "path", path, "err", err)
		return Result{}, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, path, err)
	}
	return im.ImportText(ctx, raw)
}

func (im *Importer) ImportText(ctx context.Context, raw string) (Result, error) {
	_, span := im.tracer.Start(ctx, "legacy.import", trace.WithAttributes(
		attribute.Int("legacy.input_bytes", len(raw)),
	))
	defer span.End()

	fixed := Repair(raw)
	if len(fixed) != len(raw) {
		im.logger.Debug("legacy document repaired", "bytes_before", len(raw), "bytes_after", len(fixed))
	}

	res, err := im.parser.Parse(fixed)
	span.SetAttributes(
		attribute.Int("legacy.successes", len(res.Successes)),
		attribute.Int("legacy.failures", len(res.Failures)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed document")
		im.logger.Error("legacy document could not be fully parsed", "err", err, "records_decoded", res.Total())
		return res, err
	}

	for _, f := range res.Failures {
		im.logger.Warn("legacy record rejected", "record_id", f.RecordID, "reason", f.Kind.String(), "detail", f.Detail)
	}
	im.logger.Info("legacy import parsed", "successes", len(res.Successes), "failures", len(res.Failures))
	return res, nil
}
