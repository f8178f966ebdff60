package share

import (
	"path/filepath"
	"testing"

	"github.com/public/tahoe-lafs/pkg/storageindex"
)

func TestLayout_Paths(t *testing.T) {
	layout := NewLayout("/var/lib/sharenode")
	si, err := storageindex.Parse("aaaaaaaaaaaaaaaaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wantIncoming := filepath.Join("/var/lib/sharenode", "shares", "incoming", "aa", si.String(), "3")
	if got := layout.IncomingPath(si, 3); got != wantIncoming {
		t.Fatalf("IncomingPath: got %q, want %q", got, wantIncoming)
	}

	wantFinal := filepath.Join("/var/lib/sharenode", "shares", "aa", si.String(), "3")
	if got := layout.FinalPath(si, 3); got != wantFinal {
		t.Fatalf("FinalPath: got %q, want %q", got, wantFinal)
	}

	wantPrefixDir := filepath.Join("/var/lib/sharenode", "shares", "aa")
	if got := layout.PrefixDir("aa"); got != wantPrefixDir {
		t.Fatalf("PrefixDir: got %q, want %q", got, wantPrefixDir)
	}

	wantSIDir := filepath.Join("/var/lib/sharenode", "shares", "aa", si.String())
	if got := layout.StorageIndexDir(si); got != wantSIDir {
		t.Fatalf("StorageIndexDir: got %q, want %q", got, wantSIDir)
	}

	wantAccounts := filepath.Join("/var/lib/sharenode", "accounts")
	if got := layout.AccountsDir(); got != wantAccounts {
		t.Fatalf("AccountsDir: got %q, want %q", got, wantAccounts)
	}
}
