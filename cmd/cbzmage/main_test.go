package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cbzmage/internal/config"
	"cbzmage/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	library    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	library := filepath.Join(base, "library")
	testsupport.BuildBook(t, filepath.Join(library, "one.azw3"), testsupport.BookSpec{
		Title:      "first_volume",
		ContentKey: "CK-1",
		Images:     testsupport.FakeJPEGs(1, 3, 256),
		CoverIndex: 0,
		ThumbIndex: testsupport.NoImage,
	})
	testsupport.BuildHDContainer(t, filepath.Join(library, "one.azw.res"), testsupport.HDSpec{
		ContentKey: "CK-1",
		Slots:      testsupport.FakeJPEGs(5, 3, 1024),
	})
	testsupport.BuildBook(t, filepath.Join(library, "two.azw3"), testsupport.BookSpec{
		Title:      "Second Volume",
		Images:     testsupport.FakeJPEGs(10, 2, 256),
		CoverIndex: testsupport.NoImage,
		ThumbIndex: testsupport.NoImage,
	})
	return &cliTestEnv{cfg: cfg, configPath: configPath, library: library}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertCommandWritesArchives(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "convert", env.library, "--format", "json")
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	var summary struct {
		Mode      string `json:"mode"`
		Total     int    `json:"total"`
		Succeeded int    `json:"succeeded"`
		Books     []struct {
			Status string `json:"status"`
			Result struct {
				Name     string `json:"name"`
				HdImages int    `json:"hd_images"`
			} `json:"result"`
		} `json:"books"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Mode != "convert" || summary.Total != 2 || summary.Succeeded != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Books[0].Result.HdImages == 0 {
		t.Fatalf("first book should use HD images: %+v", summary.Books[0])
	}
	for _, book := range summary.Books {
		if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, book.Result.Name+".cbz")); err != nil {
			t.Fatalf("archive for %q: %v", book.Result.Name, err)
		}
	}
}

func TestConvertCommandReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.BuildBook(t, filepath.Join(env.library, "three.azw3"), testsupport.BookSpec{
		OmitEXTH: true,
		Images:   testsupport.FakeJPEGs(20, 1, 64),
	})

	out, err := env.run(t, "convert", env.library)
	if err == nil || !strings.Contains(err.Error(), "1 of 3 books failed") {
		t.Fatalf("expected failure error, got %v", err)
	}
	for _, want := range []string{"Total", "Failed", "three.azw3", "2 of 3 books succeeded"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestScanCommandRendersTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "scan", env.library)
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}
	for _, want := range []string{"Book", "Cover", "Scan:", "Fallback", "Hd"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Size") {
		t.Fatalf("scan output should not report archive sizes:\n%s", out)
	}
	entries, _ := os.ReadDir(env.cfg.Paths.OutputDir)
	if len(entries) != 0 {
		t.Fatalf("scan wrote %d files", len(entries))
	}
}

func TestConvertCoverOnlyFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	covers := filepath.Join(testsupport.BaseDir(env.cfg), "covers")

	out, err := env.run(t, "convert", env.library, "--cover-only", "--covers", covers)
	if err != nil {
		t.Fatalf("convert --cover-only: %v\n%s", err, out)
	}
	entries, err := os.ReadDir(covers)
	if err != nil {
		t.Fatalf("read covers: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("covers = %d, want 2", len(entries))
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".jpg" {
			t.Fatalf("unexpected cover file %s", entry.Name())
		}
	}
	archives, _ := filepath.Glob(filepath.Join(env.cfg.Paths.OutputDir, "*.cbz"))
	if len(archives) != 0 {
		t.Fatalf("cover-only wrote archives: %v", archives)
	}
}

func TestHistoryCommandListsBooks(t *testing.T) {
	env := setupCLITestEnv(t)
	if out, err := env.run(t, "convert", env.library); err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}

	out, err := env.run(t, "history", "--format", "yaml")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	if strings.Count(out, "primary_path:") != 2 {
		t.Fatalf("expected two history records:\n%s", out)
	}

	out, err = env.run(t, "history", "--limit", "1")
	if err != nil {
		t.Fatalf("history table: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Checked") || !strings.Contains(out, "convert") {
		t.Fatalf("unexpected history table:\n%s", out)
	}
}

func TestHistoryCommandDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHistory())
	if _, err := env.run(t, "history"); err == nil {
		t.Fatal("expected error when history is disabled")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	for _, want := range []string{"Config file", "Output directory", "Run history", "[OK]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(testsupport.BaseDir(env.cfg), "fresh", "config.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
	if out, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v\n%s", err, out)
	}

	out, err = env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.HasPrefix(out, "# loaded from "+env.configPath) {
		t.Fatalf("config show should name its source:\n%s", out)
	}
	if !strings.Contains(out, "[paths]") || !strings.Contains(out, env.cfg.Paths.OutputDir) {
		t.Fatalf("unexpected config show output:\n%s", out)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for value, want := range map[string]outputFormat{"": formatTable, "TABLE": formatTable, "json": formatJSON, "yml": formatYAML} {
		got, err := parseOutputFormat(value)
		if err != nil || got != want {
			t.Fatalf("parseOutputFormat(%q) = %v, %v", value, got, err)
		}
	}
	if _, err := parseOutputFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestCommandContextOverridesStayLocal(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := newCommandContext()
	ctx.configFile = env.configPath
	ctx.verbose = true

	override, err := ctx.conversionConfig(conversionFlags{workers: 7, compression: " Smallest ", outputDir: filepath.Join(env.library, "out")})
	if err != nil {
		t.Fatalf("conversionConfig: %v", err)
	}
	if override.Conversion.Workers != 7 || override.Conversion.Compression != "smallest" {
		t.Fatalf("overrides not applied: %+v", override.Conversion)
	}
	if override.Logging.Level != "debug" {
		t.Fatalf("verbose should raise log level, got %q", override.Logging.Level)
	}

	shared, err := ctx.ensureConfig()
	if err != nil {
		t.Fatalf("ensureConfig: %v", err)
	}
	if shared.Conversion.Workers == 7 || shared.Paths.OutputDir == override.Paths.OutputDir {
		t.Fatal("flag overrides leaked into the shared config")
	}
	if path, found := ctx.configSource(); !found || path != env.configPath {
		t.Fatalf("config source = %q (found %v)", path, found)
	}
}

func TestRootHelpGroupsCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, want := range []string{"Conversion:", "Inspection and setup:", "--verbose"} {
		if !strings.Contains(out, want) {
			t.Fatalf("help missing %q:\n%s", want, out)
		}
	}
}
