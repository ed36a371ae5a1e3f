package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumpsift/internal/shared/testutil"
)

func TestRunSplitsDump(t *testing.T) {
	dir := t.TempDir()
	dump := testutil.BuildDump(testutil.RobinhoodSection(), testutil.BTCSection(), testutil.LogicAppSection())
	dumpPath := testutil.WriteDumpFile(t, dir, dump)
	outDir := filepath.Join(dir, "out")

	code := run(options{dumpPath: dumpPath, outDir: outDir})

	assert.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(outDir, "robinhood_sales.csv"))
	assert.FileExists(t, filepath.Join(outDir, "btc_daily_prices.csv"))
	assert.FileExists(t, filepath.Join(outDir, "logic_app_json.json"))
	assert.FileExists(t, filepath.Join(outDir, "robinhood_gains_summary.csv"))
}

func TestRunMissingDump(t *testing.T) {
	dir := t.TempDir()

	code := run(options{
		dumpPath: filepath.Join(dir, "absent.txt"),
		outDir:   filepath.Join(dir, "out"),
	})

	assert.Equal(t, 1, code)
}

func TestRunPartialFailure(t *testing.T) {
	dir := t.TempDir()
	badCrypto := strings.Join([]string{
		"Transaction,Type,Input Currency,Input Amount,Output Currency",
		"tx-001,buy,USD,100.00,BTC,extra,fields,breaking,the,row",
	}, "\n")
	dump := testutil.BuildDump(testutil.RobinhoodSection(), badCrypto)
	dumpPath := testutil.WriteDumpFile(t, dir, dump)
	outDir := filepath.Join(dir, "out")

	code := run(options{dumpPath: dumpPath, outDir: outDir})

	assert.Equal(t, 1, code, "failed sections exit non-zero")
	assert.FileExists(t, filepath.Join(outDir, "robinhood_sales.csv"),
		"good sections are still written")
	assert.NoFileExists(t, filepath.Join(outDir, "crypto_movements.csv"))
}

func TestRunWithWorkbook(t *testing.T) {
	dir := t.TempDir()
	dump := testutil.BuildDump(testutil.RobinhoodSection(), testutil.BTCSection())
	dumpPath := testutil.WriteDumpFile(t, dir, dump)
	outDir := filepath.Join(dir, "out")

	code := run(options{dumpPath: dumpPath, outDir: outDir, xlsx: true})

	assert.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(outDir, "dump_workbook.xlsx"))
}

func TestRunWithBOM(t *testing.T) {
	dir := t.TempDir()
	dumpPath := testutil.WriteDumpFile(t, dir, testutil.BTCSection())
	outDir := filepath.Join(dir, "out")

	code := run(options{dumpPath: dumpPath, outDir: outDir, bom: true})

	require.Equal(t, 0, code)
	data, err := os.ReadFile(filepath.Join(outDir, "btc_daily_prices.csv"))
	require.NoError(t, err)
	require.True(t, len(data) >= 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])
}

func TestRunWithVerify(t *testing.T) {
	dir := t.TempDir()
	dumpPath := testutil.WriteDumpFile(t, dir, testutil.PersonalFinanceSection())
	outDir := filepath.Join(dir, "out")

	code := run(options{dumpPath: dumpPath, outDir: outDir, verify: true})

	assert.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(outDir, "personal_finance.csv"))
}

func TestRunEmptyDump(t *testing.T) {
	dir := t.TempDir()
	dumpPath := testutil.WriteDumpFile(t, dir, "nothing recognizable here\njust noise\n")
	outDir := filepath.Join(dir, "out")

	code := run(options{dumpPath: dumpPath, outDir: outDir})

	assert.Equal(t, 0, code, "a dump with no recognized sections is not an error")

	entries, err := os.ReadDir(outDir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestBuildStages(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	plain := buildStages(options{}, logger)
	withBOM := buildStages(options{bom: true}, logger)

	assert.Len(t, plain, 5)
	assert.Len(t, withBOM, 5)
}
