package sandbox

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/vango-dev/pagefiles/internal/errors"
)

const homePage = `import "./styles.css";
import logo from "./logo.png";
import { analytics } from "not-installed-anywhere";

analytics.track("load");

export const Meta = () => ({ path: "/", title: "Home", icon: logo });

export default function Home() {
  return <img src={logo} />;
}
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestBundleStubsImports(t *testing.T) {
	file := writeFile(t, t.TempDir(), "Home.page.tsx", homePage)

	script, err := Bundle(file)
	require.NoError(t, err)
	assert.Contains(t, string(script), "new Proxy")
	assert.Contains(t, string(script), "writeSync")
}

func TestBundleSyntaxError(t *testing.T) {
	file := writeFile(t, t.TempDir(), "Broken.page.tsx", "export const Meta = () => ({ path: \"/\" ;\n")

	_, err := Bundle(file)
	require.Error(t, err)
	assert.True(t, pferrors.Is(err, pferrors.CodeUnableToExtractMeta))

	pe := pferrors.FromError(err)
	assert.Equal(t, filepath.ToSlash(file), pe.SourceFile())
	require.NotNil(t, pe.Location)
	assert.Equal(t, 1, pe.Location.Line)
	assert.Contains(t, pe.Detail, "esbuild:")
}

func TestBundleMissingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "Gone.page.tsx")

	_, err := Bundle(file)
	require.Error(t, err)
	assert.True(t, pferrors.Is(err, pferrors.CodeUnableToExtractMeta))
	assert.Equal(t, filepath.ToSlash(file), pferrors.FromError(err).SourceFile())
	assert.Empty(t, pferrors.FromError(err).Cause)
}

func TestExports(t *testing.T) {
	file := writeFile(t, t.TempDir(), "Home.page.tsx", homePage)

	exports, err := Exports(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"Meta", "default"}, exports)
}

func requireNode(t *testing.T) string {
	t.Helper()
	node, err := exec.LookPath("node")
	if err != nil {
		t.Skip("node not found on PATH")
	}
	return node
}

func TestNodeExtract(t *testing.T) {
	node := requireNode(t)
	file := writeFile(t, t.TempDir(), "Home.page.tsx", homePage)

	ex := New(Options{Runtime: &NodeRuntime{Binary: node}})
	rec, err := ex.Extract(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"path": "/", "title": "Home"}, rec.Meta)
	assert.True(t, rec.HasDefaultExport)
	assert.Equal(t, "Home", rec.DefaultExportName)
	assert.Equal(t, []string{"Meta", "default"}, rec.Exports)
}

func TestNodeExtractPlainObjectMeta(t *testing.T) {
	node := requireNode(t)
	file := writeFile(t, t.TempDir(), "About.page.tsx", `
console.log("noise on stdout");
export const Meta = { path: "/about", layout: null };
const About = () => null;
About.displayName = "AboutPage";
export default About;
`)

	ex := New(Options{Runtime: &NodeRuntime{Binary: node}})
	rec, err := ex.Extract(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"path": "/about", "layout": nil}, rec.Meta)
	assert.Equal(t, "AboutPage", rec.DefaultExportDisplayName)
}

func TestNodeExtractThrows(t *testing.T) {
	node := requireNode(t)
	file := writeFile(t, t.TempDir(), "Throws.page.tsx", `
throw new Error("top-level failure");
export const Meta = () => ({});
`)

	ex := New(Options{Runtime: &NodeRuntime{Binary: node}})
	_, err := ex.Extract(context.Background(), file)
	require.Error(t, err)
	assert.True(t, pferrors.Is(err, pferrors.CodeUnableToExtractMeta))
	assert.Contains(t, pferrors.FromError(err).Detail, "top-level failure")
}

func TestNodeExtractTimeout(t *testing.T) {
	node := requireNode(t)
	file := writeFile(t, t.TempDir(), "Hangs.page.tsx", `
while (true) {}
export const Meta = () => ({});
`)

	ex := New(Options{
		Runtime: &NodeRuntime{Binary: node, GracePeriod: 100 * time.Millisecond},
		Timeout: 500 * time.Millisecond,
	})

	start := time.Now()
	_, err := ex.Extract(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, pferrors.FromError(err).Detail, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}
