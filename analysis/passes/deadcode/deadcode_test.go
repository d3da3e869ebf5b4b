package deadcode

import (
	"testing"

	"honnef.co/go/dataflow/analysis/lint/testutil"

	"golang.org/x/tools/go/analysis"
)

func TestAll(t *testing.T) {
	testutil.Run(t, Analyzer)
}

func TestSettings(t *testing.T) {
	conf, err := settings(&analysis.Pass{})
	if err != nil {
		t.Fatal(err)
	}
	if !conf.Deadcode.ReportDeadStores || !conf.Deadcode.ReportUnreachable {
		t.Fatalf("defaults don't report everything: %+v", conf.Deadcode)
	}

	if err := Analyzer.Flags.Set("max-transfers", "7"); err != nil {
		t.Fatal(err)
	}
	defer Analyzer.Flags.Set("max-transfers", "0")
	conf, err = settings(&analysis.Pass{})
	if err != nil {
		t.Fatal(err)
	}
	if conf.Constprop.MaxTransfers != 7 {
		t.Errorf("max_transfers = %d, want 7", conf.Constprop.MaxTransfers)
	}
	if Analyzer.Run == nil {
		t.Error("analyzer has no Run function")
	}
}
