package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/legacy"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
)

const feed = `<Appointment><CustomerName>Smith & Sons</CustomerName><Date>2024-03-22</Date>
<StartTime>10:00</StartTime><Duration>45</Duration><Services>CUT|SHAVE</Services></Appointment>
<Appointment><CustomerName>No Date</CustomerName><Date>yesterday</Date>
<StartTime>10:00</StartTime><Duration>45</Duration><Services>CUT</Services></Appointment>`

func writeFeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.xml")
	if err := os.WriteFile(path, []byte(feed), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

type saver struct {
	got []model.Appointment
	err error
}

func (s *saver) save(_ context.Context, appts []model.Appointment) error {
	s.got = appts
	return s.err
}

func runCmd(t *testing.T, opts importOptions, args ...string) (string, error) {
	t.Helper()
	n := 0
	opts.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	cmd := newImportCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportCommand_DryRun(t *testing.T) {
	s := &saver{}
	out, err := runCmd(t, importOptions{save: s.save}, writeFeed(t), "--dry-run")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "records: 2, imported: 1, rejected: 1") {
		t.Fatalf("missing summary in %q", out)
	}
	if !strings.Contains(out, "#2: invalid_date (yesterday)") {
		t.Fatalf("missing failure line in %q", out)
	}
	if s.got != nil {
		t.Fatal("dry run must not store")
	}
}

func TestImportCommand_Stores(t *testing.T) {
	s := &saver{}
	out, err := runCmd(t, importOptions{save: s.save}, writeFeed(t))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(s.got) != 1 || s.got[0].CustomerName != "Smith & Sons" || len(s.got[0].Services) != 2 {
		t.Fatalf("unexpected stored appointments %+v", s.got)
	}
	if !strings.Contains(out, "stored 1 appointments") {
		t.Fatalf("unexpected output %q", out)
	}

	failing := &saver{err: errors.New("db down")}
	if _, err := runCmd(t, importOptions{save: failing.save}, writeFeed(t)); err == nil {
		t.Fatal("expected store error")
	}
}

func TestImportCommand_Errors(t *testing.T) {
	s := &saver{}
	if _, err := runCmd(t, importOptions{save: s.save}); err == nil {
		t.Fatal("missing path must be a usage error")
	}
	_, err := runCmd(t, importOptions{save: s.save}, filepath.Join(t.TempDir(), "missing.xml"))
	if !errors.Is(err, legacy.ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource, got %v", err)
	}
}

func TestRunReturnsCommandErrors(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var out, errOut bytes.Buffer
	if err := run([]string{"--dry-run", writeFeed(t)}, &out, &errOut); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out.String(), "dry run: nothing stored") {
		t.Fatalf("unexpected output %q", out.String())
	}

	missing := filepath.Join(t.TempDir(), "missing.xml")
	err := run([]string{"--dry-run", missing}, &out, &errOut)
	if !errors.Is(err, legacy.ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource, got %v", err)
	}
}
