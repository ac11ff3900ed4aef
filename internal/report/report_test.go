package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"restorable.io/restorectl/internal/checksum"
	"restorable.io/restorectl/internal/restore"
	"restorable.io/restorectl/internal/signing"
)

func sampleDecision() restore.Decision {
	return restore.Decision{
		SiteID:            42,
		SiteName:          "blog",
		Storage:           "amazon",
		Servers:           []restore.ServerOption{{ID: 5, Label: "web-1 ( Current Server )", Current: true}},
		CanRestore:        true,
		DefaultTarget:     restore.TargetCurrent,
		NeedsVerification: true,
	}
}

func findCheck(t *testing.T, checks []CheckResult, name string) CheckResult {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not found in %+v", name, checks)
	return CheckResult{}
}

func TestBuildPlanReport(t *testing.T) {
	rpt := NewReportBuilder(KindPlan).
		WithID("r1").
		WithCaller(9).
		WithDecision(sampleDecision()).
		WithSnapshotCount(3).
		Build()

	if rpt.SiteID != 42 || rpt.Storage != "amazon" || rpt.Kind != KindPlan {
		t.Fatalf("unexpected report header: %+v", rpt)
	}
	if !rpt.Summary.Success || !rpt.Summary.Restorable || rpt.Summary.Verified {
		t.Fatalf("unexpected summary: %+v", rpt.Summary)
	}
	integrity := findCheck(t, rpt.Checks, "integrity")
	if integrity.Level != LevelInfo || integrity.Passed {
		t.Fatalf("pending verification should be an unpassed info check: %+v", integrity)
	}
}

func TestBuildReportCriticalFailures(t *testing.T) {
	d := sampleDecision()
	d.CanRestore = false
	d.Atomic = true
	d.Here = restore.Gate{Disabled: true, Reason: restore.ArchivedReason}

	rpt := NewReportBuilder(KindVerification).
		WithDecision(d).
		WithSnapshotCount(1).
		WithVerification(&checksum.Outcome{Success: false, Backend: checksum.BackendBackup, SnapshotID: "s1", Message: "etag mismatch"}).
		Build()

	if rpt.Summary.Success {
		t.Fatal("expected failed summary")
	}
	if rpt.Summary.CriticalFailures != 2 {
		t.Fatalf("expected restore_allowed and integrity to fail, got %+v", rpt.Summary)
	}
	if rpt.Summary.WarningFailures != 2 {
		t.Fatalf("expected current_target and atomic warnings, got %+v", rpt.Summary)
	}
	if c := findCheck(t, rpt.Checks, "current_target"); c.Message != restore.ArchivedReason {
		t.Fatalf("expected archived reason, got %q", c.Message)
	}
	if c := findCheck(t, rpt.Checks, "restore_allowed"); c.Message != "Restore is blocked by atomic deployment" {
		t.Fatalf("unexpected restore_allowed message %q", c.Message)
	}
}

func TestLocalStorageNeedsNoVerification(t *testing.T) {
	d := sampleDecision()
	d.Storage = "local"
	d.NeedsVerification = false

	rpt := NewReportBuilder(KindPlan).WithDecision(d).WithSnapshotCount(1).Build()
	if c := findCheck(t, rpt.Checks, "integrity"); !c.Passed || c.Level != LevelInfo {
		t.Fatalf("unexpected integrity check: %+v", c)
	}
}

func TestSignWriteLoadVerify(t *testing.T) {
	dir := t.TempDir()
	privPath := filepath.Join(dir, "keys", "signing.key")
	pubPath, err := signing.WriteKeyPair(privPath)
	if err != nil {
		t.Fatalf("WriteKeyPair failed: %v", err)
	}
	priv, err := signing.LoadPrivateKey(privPath)
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	pub, err := signing.LoadPublicKey(pubPath)
	if err != nil {
		t.Fatalf("LoadPublicKey failed: %v", err)
	}

	outcome := &checksum.Outcome{Success: true, Backend: checksum.BackendServer, SnapshotID: "s1", CheckedAt: time.Now()}
	rpt := NewReportBuilder(KindVerification).WithID("abc").WithDecision(sampleDecision()).
		WithSnapshotCount(1).WithVerification(outcome).Build()
	if err := Sign(rpt, priv); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	reportDir := filepath.Join(dir, "reports")
	path, err := WriteJSON(rpt, reportDir)
	if err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport failed: %v", err)
	}
	valid, err := Verify(loaded, pub)
	if err != nil || !valid {
		t.Fatalf("expected valid signature, got %v, %v", valid, err)
	}

	loaded.Summary.Success = false
	valid, err = Verify(loaded, pub)
	if err != nil || valid {
		t.Fatalf("expected tampered report to fail verification, got %v, %v", valid, err)
	}
}

func TestVerifyUnsigned(t *testing.T) {
	rpt := NewReportBuilder(KindPlan).Build()
	if _, err := Verify(rpt, nil); !errors.Is(err, ErrUnsigned) {
		t.Fatalf("expected ErrUnsigned, got %v", err)
	}
}

func TestVerifyRecordsSigningKey(t *testing.T) {
	pub, priv, err := signing.GenerateSigningKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	otherPub, _, err := signing.GenerateSigningKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	rpt := NewReportBuilder(KindPlan).WithID("k").WithDecision(sampleDecision()).Build()
	if err := Sign(rpt, priv); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if rpt.SignedBy != signing.KeyID(pub) {
		t.Fatalf("signed_by = %q, want %q", rpt.SignedBy, signing.KeyID(pub))
	}

	if _, err := Verify(rpt, otherPub); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch, got %v", err)
	}

	// The key id is covered by the signature.
	rpt.SignedBy = signing.KeyID(otherPub)
	if _, err := Verify(rpt, otherPub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid, _ := Verify(rpt, otherPub); valid {
		t.Fatal("rewritten key id must invalidate the signature")
	}
}

func TestListReports(t *testing.T) {
	dir := t.TempDir()

	older := NewReportBuilder(KindPlan).WithID("old").WithDecision(sampleDecision()).Build()
	older.Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := NewReportBuilder(KindPlan).WithID("new").WithDecision(sampleDecision()).Build()
	newer.Timestamp = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []*Report{older, newer} {
		if _, err := WriteJSON(r, dir); err != nil {
			t.Fatalf("WriteJSON failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	reports, err := ListReports(dir)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 2 || reports[0].ID != "new" || reports[1].ID != "old" {
		t.Fatalf("unexpected listing: %+v", reports)
	}

	missing, err := ListReports(filepath.Join(dir, "absent"))
	if err != nil || missing != nil {
		t.Fatalf("expected nil listing for missing dir, got %v, %v", missing, err)
	}
}
