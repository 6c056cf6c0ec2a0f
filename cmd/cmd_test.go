package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mistraltools/internal/config"
	"mistraltools/internal/mistral"
	"mistraltools/internal/mistral/mistraltest"
	"mistraltools/internal/ocr/pdftest"
	"mistraltools/internal/requirements"
)

// executeCommand runs the root command with args and returns what it printed to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, c := range rootCmd.Commands() {
		resetFlags(c)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func useServer(t *testing.T) *mistraltest.Server {
	t.Helper()
	srv := mistraltest.NewServer(t)
	t.Setenv("MISTRALAI_API_KEY", mistraltest.APIKey)
	t.Setenv("MISTRAL_BASE_URL", srv.URL+"/v1")
	t.Setenv("MISTRAL_OCR_MODEL", "")
	t.Setenv("MISTRAL_CHAT_MODEL", "")
	t.Setenv("REQUIREMENTS_INPUT_FILE", "")
	t.Setenv("REQUIREMENTS_OUTPUT_FILE", "")
	t.Setenv(config.ConfigFileEnv, "")
	return srv
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestOCRCommand(t *testing.T) {
	srv := useServer(t)
	img := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv.OCRResponse = []byte(`{"pages":[{"index":0,"markdown":"# Title\n\n![img-0.png](img-0.png)",` +
		`"images":[{"id":"img-0.png","image_base64":"data:image/png;base64,` + img + `"}]}],` +
		`"model":"mistral-ocr-2503","usage_info":{"pages_processed":1}}`)

	dir := t.TempDir()
	pdfPath := pdftest.WriteFile(t, dir, "report.pdf", 1)
	outDir := filepath.Join(dir, "out")

	stdout, err := executeCommand(t, "ocr", pdfPath, "--output-dir", outDir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "# Title")
	assert.Contains(t, stdout, "![img-0.png](report_img-0.png)")

	assert.ElementsMatch(t, []string{"report.json", "report.md", "report_img-0.png"}, listDir(t, outDir))
	data, err := os.ReadFile(filepath.Join(outDir, "report_img-0.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "report.pdf", uploads[0].Name)
}

func TestOCRCommand_WritesNextToPDF(t *testing.T) {
	srv := useServer(t)
	srv.OCRResponse = []byte(`{"pages":[{"index":0,"markdown":"plain text","images":[]}]}`)

	dir := t.TempDir()
	pdfPath := pdftest.WriteFile(t, dir, "notes.pdf", 1)

	stdout, err := executeCommand(t, "ocr", pdfPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "plain text")
	assert.ElementsMatch(t, []string{"notes.json", "notes.md", "notes.pdf"}, listDir(t, dir))
}

func TestOCRCommand_MissingFile(t *testing.T) {
	srv := useServer(t)
	dir := t.TempDir()

	_, err := executeCommand(t, "ocr", filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDF file not found")
	assert.Empty(t, listDir(t, dir))
	assert.Zero(t, srv.Calls())
}

func TestOCRCommand_InvalidPDF(t *testing.T) {
	srv := useServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not really a pdf"), 0o644))

	_, err := executeCommand(t, "ocr", path)
	require.Error(t, err)
	assert.Equal(t, []string{"broken.pdf"}, listDir(t, dir))
	assert.Zero(t, srv.Calls())
}

func TestOCRCommand_PDFNewerThanLocalParser(t *testing.T) {
	srv := useServer(t)
	srv.OCRResponse = []byte(`{"pages":[{"index":0,"markdown":"version two","images":[]}]}`)

	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "v2.pdf")
	data := bytes.Replace(pdftest.Minimal(1), []byte("%PDF-1.4"), []byte("%PDF-2.0"), 1)
	require.NoError(t, os.WriteFile(pdfPath, data, 0o644))

	stdout, err := executeCommand(t, "ocr", pdfPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "version two")
	assert.ElementsMatch(t, []string{"v2.json", "v2.md", "v2.pdf"}, listDir(t, dir))

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, data, uploads[0].Data)
}

func TestOCRCommand_MissingArgument(t *testing.T) {
	srv := useServer(t)

	_, err := executeCommand(t, "ocr")
	assert.Error(t, err)
	assert.Zero(t, srv.Calls())
}

func TestOCRCommand_TooManyArguments(t *testing.T) {
	srv := useServer(t)
	dir := t.TempDir()
	a := pdftest.WriteFile(t, dir, "a.pdf", 1)
	b := pdftest.WriteFile(t, dir, "b.pdf", 1)

	_, err := executeCommand(t, "ocr", a, b)
	assert.Error(t, err)
	assert.Zero(t, srv.Calls())
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, listDir(t, dir))
}

func TestOCRCommand_Unauthorized(t *testing.T) {
	useServer(t)
	t.Setenv("MISTRALAI_API_KEY", "wrong-key")

	dir := t.TempDir()
	pdfPath := pdftest.WriteFile(t, dir, "doc.pdf", 1)

	_, err := executeCommand(t, "ocr", pdfPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, mistral.ErrUnauthorized)
	assert.Equal(t, []string{"doc.pdf"}, listDir(t, dir))
}

func TestOCRCommand_MissingAPIKey(t *testing.T) {
	useServer(t)
	t.Setenv("MISTRALAI_API_KEY", "")

	dir := t.TempDir()
	pdfPath := pdftest.WriteFile(t, dir, "doc.pdf", 1)

	_, err := executeCommand(t, "ocr", pdfPath)
	assert.ErrorIs(t, err, mistral.ErrMissingAPIKey)
}

func TestRequirementsCommand(t *testing.T) {
	srv := useServer(t)
	srv.ChatContent = "```json\n" +
		`[{"code":"R-1","description":"The unit shall weigh less than 2 kg.","category":"mechanical"},` +
		`{"code":"R-2","description":"The unit shall run on 28 V.","category":"electrical"}]` +
		"\n```"

	dir := t.TempDir()
	input := filepath.Join(dir, "input.md")
	require.NoError(t, os.WriteFile(input, []byte("R-1 less than 2 kg\nR-2 28 V supply\n"), 0o644))
	output := filepath.Join(dir, "out", "requirements.csv")
	raw := filepath.Join(dir, "out", "reply.txt")
	xlsx := filepath.Join(dir, "out", "requirements.xlsx")

	stdout, err := executeCommand(t, "requirements", "-i", input, "-o", output, "--raw", raw, "--xlsx", xlsx)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote 2 requirements")

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"code", "description", "category"},
		{"R-1", "The unit shall weigh less than 2 kg.", "mechanical"},
		{"R-2", "The unit shall run on 28 V.", "electrical"},
	}, rows)

	reply, err := os.ReadFile(raw)
	require.NoError(t, err)
	assert.Equal(t, srv.ChatContent, string(reply))
	assert.FileExists(t, xlsx)

	prompts := srv.ChatPrompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "R-2 28 V supply")
}

func TestRequirementsCommand_DefaultsFromEnv(t *testing.T) {
	srv := useServer(t)
	srv.ChatContent = `[{"code":"A","description":"B","category":"C"}]`

	dir := t.TempDir()
	input := filepath.Join(dir, "data.md")
	output := filepath.Join(dir, "result.csv")
	require.NoError(t, os.WriteFile(input, []byte("A shall B"), 0o644))
	t.Setenv("REQUIREMENTS_INPUT_FILE", input)
	t.Setenv("REQUIREMENTS_OUTPUT_FILE", output)

	_, err := executeCommand(t, "extract")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "code,description,category\nA,B,C\n", string(data))
}

func TestRequirementsCommand_MalformedReply(t *testing.T) {
	srv := useServer(t)
	srv.ChatContent = "Sorry, I cannot help with that."

	dir := t.TempDir()
	input := filepath.Join(dir, "input.md")
	require.NoError(t, os.WriteFile(input, []byte("R-1 something"), 0o644))
	output := filepath.Join(dir, "out", "requirements.csv")

	_, err := executeCommand(t, "requirements", "-i", input, "-o", output)
	assert.ErrorIs(t, err, requirements.ErrMalformedResponse)
	assert.NoFileExists(t, output)
}

func TestRequirementsCommand_MissingInput(t *testing.T) {
	srv := useServer(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "requirements.csv")

	_, err := executeCommand(t, "requirements", "-i", filepath.Join(dir, "missing.md"), "-o", output)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, output)
	assert.Zero(t, srv.Calls())
}

func TestRequirementsCommand_RejectsArguments(t *testing.T) {
	srv := useServer(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "requirements.csv")

	_, err := executeCommand(t, "requirements", "-o", output, "extra.md")
	assert.Error(t, err)
	assert.Zero(t, srv.Calls())
	assert.NoFileExists(t, output)
}
