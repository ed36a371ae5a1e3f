package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Canonical section bodies for building test dumps. Each fixture starts
// with the header line its recognizer triggers on.

// RobinhoodSection returns a sales export section with the two canonical
// lots: one held just over a year, one held about six months.
func RobinhoodSection() string {
	return strings.Join([]string{
		"ASSET NAME,RECEIVED DATE,COST BASIS(USD),DATE SOLD,PROCEEDS",
		"AAPL,2020-01-01,100.00,2021-01-01,150.00",
		"TSLA,2020-06-01,200.00,2020-12-01,250.00",
	}, "\n")
}

// PersonalFinanceSection returns a personal finance export section.
func PersonalFinanceSection() string {
	return strings.Join([]string{
		"Date,Original Date,Account Type,Account Name,Account Number,Institution Name",
		"2023-01-15,2023-01-15,Checking,Main Checking,1234,First Bank",
		"2023-01-16,2023-01-16,Savings,Rainy Day,5678,First Bank",
	}, "\n")
}

// CryptoSection returns a crypto movements section.
func CryptoSection() string {
	return strings.Join([]string{
		"Transaction,Type,Input Currency,Input Amount,Output Currency",
		"tx-001,buy,USD,1000,BTC",
		"tx-002,sell,BTC,0.5,USD",
	}, "\n")
}

// BTCSection returns a daily BTC price history section.
func BTCSection() string {
	return strings.Join([]string{
		"Start,End,Open,High,Low,Close,Volume,Market Cap",
		"2023-01-01,2023-01-02,16500,16700,16400,16600,12000000,320000000000",
	}, "\n")
}

// ScriptableSection returns a Scriptable widget script section.
func ScriptableSection() string {
	return strings.Join([]string{
		"// Variables used by Scriptable.",
		"// These must be at the very top of the file.",
		"let widget = new ListWidget()",
		"Script.complete()",
	}, "\n")
}

// LogicAppSection returns a Logic App workflow definition section.
func LogicAppSection() string {
	return strings.Join([]string{
		`{"$schema": "https://schema.management.azure.com/schemas/2016-06-01/workflowdefinition.json#",`,
		`"contentVersion": "1.0.0.0",`,
		`"triggers": {}}`,
	}, "\n")
}

// BuildDump joins section bodies into a single dump, one blank line
// between sections the way exported dumps usually arrive.
func BuildDump(sections ...string) string {
	return strings.Join(sections, "\n\n")
}

// WriteDumpFile writes dump content under dir and returns the file path.
func WriteDumpFile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "dump.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write dump fixture: %v", err)
	}
	return path
}
